// Package tenancy manages companies and user memberships. Every business
// object in the system belongs to exactly one company.
package tenancy

import (
	"time"

	"github.com/google/uuid"
)

// Company is a tenant.
type Company struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MemberStatus enumerates membership states.
type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "active"
	MemberStatusInvited  MemberStatus = "invited"
	MemberStatusDisabled MemberStatus = "disabled"
)

// Member links a user to a company.
type Member struct {
	CompanyID uuid.UUID    `json:"company_id"`
	UserID    int64        `json:"user_id"`
	Status    MemberStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}
