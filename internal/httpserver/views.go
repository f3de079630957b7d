package httpserver

import (
	"storefront-cart/internal/domain"
	"storefront-cart/internal/pricing"
	"storefront-cart/internal/service/checkout"
)

// cartView is the render-ready form of a session snapshot: amounts rounded
// to cents plus their display strings.
type cartView struct {
	Stage          string                `json:"etapa"`
	Empty          bool                  `json:"vacio"`
	Count          int                   `json:"cantidadTotal"`
	Items          []lineView            `json:"items"`
	Subtotal       float64               `json:"subtotal"`
	Tax            float64               `json:"impuestos"`
	Shipping       float64               `json:"envio"`
	Discount       float64               `json:"descuento"`
	Total          float64               `json:"total"`
	Display        displayTotals         `json:"texto"`
	Coupon         *domain.Coupon        `json:"cuponAplicado"`
	ShippingMethod domain.ShippingMethod `json:"metodoEnvio"`
	Address        *domain.Address       `json:"direccionEnvio,omitempty"`
}

type lineView struct {
	domain.LineItem
	LineTotal float64 `json:"totalLinea"`
	Display   string  `json:"totalLineaTexto"`
}

type displayTotals struct {
	Subtotal string `json:"subtotal"`
	Tax      string `json:"impuestos"`
	Shipping string `json:"envio"`
	Discount string `json:"descuento"`
	Total    string `json:"total"`
}

func toCartView(s checkout.Snapshot) cartView {
	state := s.Cart
	lines := make([]lineView, 0, len(state.Items))
	for _, it := range state.Items {
		total := it.LineTotal()
		lines = append(lines, lineView{LineItem: it, LineTotal: pricing.Round(total), Display: pricing.Format(total)})
	}
	return cartView{
		Stage:          s.Stage.String(),
		Empty:          len(state.Items) == 0,
		Count:          state.ItemCount(),
		Items:          lines,
		Subtotal:       pricing.Round(state.Subtotal),
		Tax:            pricing.Round(state.Tax),
		Shipping:       pricing.Round(state.ShippingCost),
		Discount:       pricing.Round(state.Discount),
		Total:          pricing.Round(state.Total),
		Display: displayTotals{
			Subtotal: pricing.Format(state.Subtotal),
			Tax:      pricing.Format(state.Tax),
			Shipping: pricing.Format(state.ShippingCost),
			Discount: pricing.Format(state.Discount),
			Total:    pricing.Format(state.Total),
		},
		Coupon:         state.Coupon,
		ShippingMethod: state.ShippingMethod,
		Address:        state.ShippingAddress,
	}
}

type couponData struct {
	Kind  domain.CouponKind `json:"tipo"`
	Value float64           `json:"valor"`
}

type productView struct {
	ID            string   `json:"id"`
	Name          string   `json:"nombre"`
	Description   string   `json:"descripcion,omitempty"`
	Price         float64  `json:"precio"`
	DiscountPrice *float64 `json:"precio_descuento,omitempty"`
	Category      string   `json:"categoria"`
	ImageURL      string   `json:"imagen"`
	Stock         int      `json:"stock"`
}

func toProductView(p domain.Product) productView {
	category := p.CategoryName
	if category == "" {
		category = domain.DefaultCategory
	}
	image := p.ImageURL
	if image == "" {
		image = domain.DefaultImageURL
	}
	return productView{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		DiscountPrice: p.DiscountPrice,
		Category:      category,
		ImageURL:      image,
		Stock:         p.Stock,
	}
}

type categoryView struct {
	Key  string `json:"clave"`
	Name string `json:"nombre"`
}
