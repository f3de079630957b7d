package domain

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pendiente"
	OrderCompleted OrderStatus = "completado"
)

// Order is an immutable snapshot of a confirmed checkout.
type Order struct {
	ID             string         `json:"id"`
	CreatedAt      time.Time      `json:"fecha"`
	Items          []LineItem     `json:"items"`
	Address        Address        `json:"direccion"`
	ShippingMethod ShippingMethod `json:"metodoEnvio"`
	ShippingCost   float64        `json:"costoEnvio"`
	Total          float64        `json:"total"`
	Status         OrderStatus    `json:"estado"`
}
