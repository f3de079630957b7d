package httpserver

import (
	"errors"
	"net/http"

	"storefront-cart/internal/client"
	"storefront-cart/internal/domain"
	"storefront-cart/internal/service/checkout"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidBody     = "Solicitud no válida"
	msgCartEmpty       = "Tu carrito está vacío"
	msgFieldsRequired  = "Completa los campos obligatorios"
	msgCodeMissing     = "Código no proporcionado"
	msgCouponInvalid   = "Cupón no válido"
	msgSuperseded      = "La verificación del cupón fue reemplazada por una más reciente"
	msgSyncStale       = "El carrito cambió durante la sincronización"
	msgBadTransition   = "Paso de compra no disponible"
	msgUnauthenticated = "Usuario no autenticado"
	msgNotFound        = "No encontrado"
	msgInternal        = "Error interno"
	msgUnavailable     = "Servicio no disponible, intenta de nuevo"
	msgSyncUnavailable = "Sincronización no disponible"
	msgCartNotCleared  = "Pedido registrado; el carrito guardado no pudo vaciarse"
)

type envelope struct {
	Success    bool                      `json:"success"`
	Message    string                    `json:"message,omitempty"`
	Data       interface{}               `json:"data,omitempty"`
	Violations []checkout.FieldViolation `json:"errores,omitempty"`
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, envelope{Success: false, Message: message})
}

// respondFlowError maps a checkout error to a status and message. The
// current cart is always included so the caller can re-render.
func (h *handlers) respondFlowError(c *gin.Context, snap checkout.Snapshot, err error) {
	view := toCartView(snap)
	var fieldErr *checkout.FieldError
	switch {
	case errors.As(err, &fieldErr):
		c.JSON(http.StatusUnprocessableEntity, envelope{Message: msgFieldsRequired, Data: view, Violations: fieldErr.Violations})
	case errors.Is(err, checkout.ErrCartEmpty):
		c.JSON(http.StatusBadRequest, envelope{Message: msgCartEmpty, Data: view})
	case errors.Is(err, checkout.ErrCouponCodeRequired):
		c.JSON(http.StatusBadRequest, envelope{Message: msgCodeMissing, Data: view})
	case errors.Is(err, checkout.ErrCouponRejected):
		c.JSON(http.StatusBadRequest, envelope{Message: couponMessage(err), Data: view})
	case errors.Is(err, checkout.ErrCouponSuperseded):
		c.JSON(http.StatusConflict, envelope{Message: msgSuperseded, Data: view})
	case errors.Is(err, checkout.ErrSyncStale):
		c.JSON(http.StatusConflict, envelope{Message: msgSyncStale, Data: view})
	case errors.Is(err, checkout.ErrInvalidTransition):
		c.JSON(http.StatusConflict, envelope{Message: msgBadTransition, Data: view})
	case errors.Is(err, checkout.ErrSyncUnavailable):
		c.JSON(http.StatusServiceUnavailable, envelope{Message: msgSyncUnavailable, Data: view})
	case errors.Is(err, domain.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, envelope{Message: msgUnauthenticated, Data: view})
	default:
		h.logger.Printf("session=%s path=%s error=%v", sessionID(c), c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, envelope{Message: msgInternal, Data: view})
	}
}

// couponMessage prefers the remote server's own wording for a rejection.
func couponMessage(err error) string {
	var rejected *client.RejectedError
	if errors.As(err, &rejected) && rejected.Message != "" {
		return rejected.Message
	}
	return msgCouponInvalid
}
