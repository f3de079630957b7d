package httpserver

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHeader identifies the shopping session. Requests without one get a
// fresh id, echoed back so the caller can reuse it.
const SessionHeader = "X-Session-ID"

const customerHeader = "X-Customer-ID"

type ctxKey string

const sessionCtxKey ctxKey = "sessionID"

const maxSessionIDLen = 128

func sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(SessionHeader))
		if id == "" || len(id) > maxSessionIDLen {
			id = uuid.NewString()
		}
		c.Header(SessionHeader, id)
		ctx := context.WithValue(c.Request.Context(), sessionCtxKey, id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	id, _ := c.Request.Context().Value(sessionCtxKey).(string)
	return id
}

func customerID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(customerHeader))
}
