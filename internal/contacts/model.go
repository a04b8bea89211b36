// Package contacts keeps the customer and vendor directory.
package contacts

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a contact.
type Kind string

const (
	KindCustomer Kind = "customer"
	KindVendor   Kind = "vendor"
	KindBoth     Kind = "both"
)

// Valid reports whether the kind is one of the known values.
func (k Kind) Valid() bool {
	switch k {
	case KindCustomer, KindVendor, KindBoth:
		return true
	}
	return false
}

// Contact is a customer, vendor, or both.
type Contact struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Kind      Kind      `json:"kind"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	TaxID     string    `json:"tax_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
