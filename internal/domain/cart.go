package domain

const (
	// MinQuantity and MaxQuantity bound the quantity of a single line item.
	MinQuantity = 1
	MaxQuantity = 99

	DefaultCategory = "Categoría"
	DefaultImageURL = "/publico/imagenes/fijos/logo.png"
)

// LineItem is a product entry in the cart. JSON names match the format the
// storefront has always persisted under the carritoItems key.
type LineItem struct {
	ID        string  `json:"id"`
	Name      string  `json:"nombre"`
	Category  string  `json:"categoria"`
	UnitPrice float64 `json:"precio"`
	ImageURL  string  `json:"imagen"`
	Quantity  int     `json:"cantidad"`
}

// LineTotal returns unit price times quantity.
func (li LineItem) LineTotal() float64 {
	return li.UnitPrice * float64(li.Quantity)
}

// LineItemInput is what callers hand to the cart when adding a product.
// Zero values are replaced by defaults.
type LineItemInput struct {
	ID        string  `json:"id"`
	Name      string  `json:"nombre,omitempty"`
	Category  string  `json:"categoria,omitempty"`
	UnitPrice float64 `json:"precio,omitempty"`
	ImageURL  string  `json:"imagen,omitempty"`
	Quantity  int     `json:"cantidad,omitempty"`
}

// ClampQuantity forces q into [MinQuantity, MaxQuantity].
func ClampQuantity(q int) int {
	if q < MinQuantity {
		return MinQuantity
	}
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}

// CartState is the root aggregate of a shopping session. Subtotal, Tax,
// ShippingCost, Discount and Total are derived from the other fields.
type CartState struct {
	Items           []LineItem     `json:"items"`
	Subtotal        float64        `json:"subtotal"`
	Tax             float64        `json:"impuestos"`
	ShippingCost    float64        `json:"envio"`
	Discount        float64        `json:"descuento"`
	Total           float64        `json:"total"`
	Coupon          *Coupon        `json:"cuponAplicado"`
	ShippingMethod  ShippingMethod `json:"metodoEnvio"`
	ShippingAddress *Address       `json:"direccionEnvio"`
}

// ItemCount returns the sum of quantities across all lines.
func (s CartState) ItemCount() int {
	n := 0
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}
