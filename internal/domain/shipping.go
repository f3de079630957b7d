package domain

import (
	"fmt"
	"strings"
)

type ShippingMethod string

const (
	ShippingStandard ShippingMethod = "estandar"
	ShippingExpress  ShippingMethod = "express"
)

// ParseShippingMethod accepts the wire names and their English aliases.
func ParseShippingMethod(v string) (ShippingMethod, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "estandar", "standard":
		return ShippingStandard, nil
	case "express":
		return ShippingExpress, nil
	default:
		return "", fmt.Errorf("unknown shipping method %q", v)
	}
}

// Address is a shipping destination. Line2 is the only optional field.
type Address struct {
	RecipientFirstName string `json:"nombre"`
	RecipientLastName  string `json:"apellidos"`
	Line1              string `json:"direccion1"`
	Line2              string `json:"direccion2,omitempty"`
	City               string `json:"ciudad"`
	State              string `json:"estado"`
	PostalCode         string `json:"codigoPostal"`
	Country            string `json:"pais"`
	Phone              string `json:"telefono"`
}
