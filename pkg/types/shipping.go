package types

import "strings"

// ShippingInfo carries the contact and address fields collected at checkout.
// Stored on the order as JSON.
type ShippingInfo struct {
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone,omitempty"`
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	Address    string `json:"address" validate:"required"`
	City       string `json:"city" validate:"required"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

// MissingFields lists required fields that are empty, for pre-network
// validation outside the HTTP layer.
func (s ShippingInfo) MissingFields() []string {
	var missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	check("email", s.Email)
	check("first_name", s.FirstName)
	check("last_name", s.LastName)
	check("address", s.Address)
	check("city", s.City)
	check("postal_code", s.PostalCode)
	check("country", s.Country)
	return missing
}
