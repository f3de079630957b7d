package checkout

import (
	"strings"

	"storefront-cart/internal/domain"
)

// ValidateAddress trims every field and checks that all mandatory fields
// are present. It returns the trimmed address.
func ValidateAddress(in domain.Address) (domain.Address, error) {
	a := domain.Address{
		RecipientFirstName: strings.TrimSpace(in.RecipientFirstName),
		RecipientLastName:  strings.TrimSpace(in.RecipientLastName),
		Line1:              strings.TrimSpace(in.Line1),
		Line2:              strings.TrimSpace(in.Line2),
		City:               strings.TrimSpace(in.City),
		State:              strings.TrimSpace(in.State),
		PostalCode:         strings.TrimSpace(in.PostalCode),
		Country:            strings.TrimSpace(in.Country),
		Phone:              strings.TrimSpace(in.Phone),
	}
	required := []struct {
		field string
		value string
	}{
		{"nombre", a.RecipientFirstName},
		{"apellidos", a.RecipientLastName},
		{"direccion1", a.Line1},
		{"ciudad", a.City},
		{"estado", a.State},
		{"codigoPostal", a.PostalCode},
		{"pais", a.Country},
		{"telefono", a.Phone},
	}
	var violations []FieldViolation
	for _, r := range required {
		if r.value == "" {
			violations = append(violations, FieldViolation{Field: r.field, Message: "Este campo es obligatorio"})
		}
	}
	if len(violations) > 0 {
		return domain.Address{}, &FieldError{Violations: violations}
	}
	return a, nil
}
