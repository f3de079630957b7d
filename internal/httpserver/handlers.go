package httpserver

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/service/checkout"

	"github.com/gin-gonic/gin"
)

type handlers struct {
	deps   Deps
	logger *log.Logger
}

// flow resolves the session's checkout flow. When the stored cart cannot be
// read it answers 503 itself and reports false.
func (h *handlers) flow(c *gin.Context) (*checkout.Flow, bool) {
	flow, err := h.deps.Sessions.Get(c.Request.Context(), sessionID(c))
	if err != nil {
		h.logger.Printf("session=%s load error=%v", sessionID(c), err)
		respondError(c, http.StatusServiceUnavailable, msgUnavailable)
		return nil, false
	}
	return flow, true
}

func (h *handlers) getCart(c *gin.Context) {
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	respondOK(c, toCartView(flow.Snapshot()))
}

func (h *handlers) addItem(c *gin.Context) {
	var req domain.LineItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if req.ID = strings.TrimSpace(req.ID); req.ID == "" {
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	respondOK(c, toCartView(flow.AddItem(c.Request.Context(), req)))
}

type quantityRequest struct {
	ID       string `json:"id"`
	Quantity int    `json:"cantidad"`
}

func (h *handlers) updateQuantity(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if req.ID = strings.TrimSpace(req.ID); req.ID == "" {
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	respondOK(c, toCartView(flow.UpdateQuantity(c.Request.Context(), req.ID, req.Quantity)))
}

type itemRequest struct {
	ID string `json:"id"`
}

func (h *handlers) removeItem(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if req.ID = strings.TrimSpace(req.ID); req.ID == "" {
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	respondOK(c, toCartView(flow.RemoveItem(c.Request.Context(), req.ID)))
}

func (h *handlers) clearCart(c *gin.Context) {
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	respondOK(c, toCartView(flow.ClearCart(c.Request.Context())))
}

type couponRequest struct {
	Code string `json:"codigo"`
}

func (h *handlers) applyCoupon(c *gin.Context) {
	var req couponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	snap, err := flow.ApplyCoupon(c.Request.Context(), req.Code)
	if err != nil {
		h.respondFlowError(c, snap, err)
		return
	}
	respondOK(c, toCartView(snap))
}

func (h *handlers) removeCoupon(c *gin.Context) {
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	respondOK(c, toCartView(flow.RemoveCoupon(c.Request.Context())))
}

type shippingRequest struct {
	Method string `json:"metodo"`
}

func (h *handlers) selectShipping(c *gin.Context) {
	var req shippingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}
	method, err := domain.ParseShippingMethod(req.Method)
	if err != nil {
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	snap, err := flow.SelectShipping(c.Request.Context(), method)
	if err != nil {
		h.respondFlowError(c, snap, err)
		return
	}
	respondOK(c, toCartView(snap))
}

func (h *handlers) syncSession(c *gin.Context) {
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	snap, err := flow.Sync(c.Request.Context(), customerID(c))
	if err != nil {
		h.respondFlowError(c, snap, err)
		return
	}
	respondOK(c, toCartView(snap))
}

func (h *handlers) startCheckout(c *gin.Context) {
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	snap, err := flow.Start(c.Request.Context())
	if err != nil {
		h.respondFlowError(c, snap, err)
		return
	}
	respondOK(c, toCartView(snap))
}

func (h *handlers) cancelCheckout(c *gin.Context) {
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	respondOK(c, toCartView(flow.Cancel(c.Request.Context())))
}

func (h *handlers) submitAddress(c *gin.Context) {
	var req domain.Address
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	snap, err := flow.SubmitAddress(c.Request.Context(), req)
	if err != nil {
		h.respondFlowError(c, snap, err)
		return
	}
	respondOK(c, toCartView(snap))
}

type confirmResponse struct {
	Order domain.Order `json:"pedido"`
	Cart  cartView     `json:"carrito"`
}

func (h *handlers) confirm(c *gin.Context) {
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	order, snap, err := flow.Confirm(c.Request.Context())
	if errors.Is(err, checkout.ErrCartNotCleared) {
		h.logger.Printf("session=%s order_id=%s error=%v", sessionID(c), order.ID, err)
		c.JSON(http.StatusOK, envelope{Success: true, Message: msgCartNotCleared, Data: confirmResponse{Order: order, Cart: toCartView(snap)}})
		return
	}
	if err != nil {
		h.respondFlowError(c, snap, err)
		return
	}
	respondOK(c, confirmResponse{Order: order, Cart: toCartView(snap)})
}

func (h *handlers) listOrders(c *gin.Context) {
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	orders, err := flow.Orders(c.Request.Context())
	if err != nil {
		h.logger.Printf("session=%s list orders error=%v", sessionID(c), err)
		respondError(c, http.StatusInternalServerError, msgInternal)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	respondOK(c, orders)
}

// verifyCoupon answers with status 200 for unknown codes; success=false
// carries the rejection.
func (h *handlers) verifyCoupon(c *gin.Context) {
	var req couponRequest
	_ = c.ShouldBindJSON(&req)
	if domain.NormalizeCouponCode(req.Code) == "" {
		respondError(c, http.StatusOK, msgCodeMissing)
		return
	}
	coupon, err := h.deps.Coupons.VerifyCoupon(c.Request.Context(), req.Code)
	if err != nil {
		respondError(c, http.StatusOK, couponMessage(err))
		return
	}
	respondOK(c, couponData{Kind: coupon.Kind, Value: coupon.Value})
}

type mergeRequest struct {
	Items []domain.LineItem `json:"items"`
}

type mergeResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Cart    []domain.LineItem `json:"carrito"`
}

func (h *handlers) mergeCart(c *gin.Context) {
	customer := customerID(c)
	if customer == "" {
		respondError(c, http.StatusUnauthorized, msgUnauthenticated)
		return
	}
	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}
	merged, err := h.deps.Merger.SyncCart(c.Request.Context(), customer, req.Items)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			respondError(c, http.StatusUnauthorized, msgUnauthenticated)
			return
		}
		h.logger.Printf("merge cart customer=%s error=%v", customer, err)
		respondError(c, http.StatusInternalServerError, msgInternal)
		return
	}
	if merged == nil {
		merged = []domain.LineItem{}
	}
	c.JSON(http.StatusOK, mergeResponse{Success: true, Message: "Carrito sincronizado correctamente", Cart: merged})
}

func (h *handlers) getProduct(c *gin.Context) {
	p, err := h.deps.Products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(c, http.StatusNotFound, msgNotFound)
			return
		}
		h.logger.Printf("get product id=%s error=%v", c.Param("id"), err)
		respondError(c, http.StatusInternalServerError, msgInternal)
		return
	}
	respondOK(c, toProductView(*p))
}

func (h *handlers) listCategories(c *gin.Context) {
	cats, err := h.deps.Categories.ListActive(c.Request.Context())
	if err != nil {
		h.logger.Printf("list categories error=%v", err)
		respondError(c, http.StatusInternalServerError, msgInternal)
		return
	}
	out := make([]categoryView, 0, len(cats))
	for _, cat := range cats {
		out = append(out, categoryView{Key: cat.Key, Name: cat.Name})
	}
	respondOK(c, out)
}
