package user

import (
	"time"

	"github.com/google/uuid"
)

// User is the entitlement view of a delivery partner staff account.
// AuthorityCodes are directly owned custodian codes; ConsortiumCodes grant
// access to every member authority of the consortium. The two sets should
// not overlap in coverage; reconciliation repairs violations.
type User struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	AuthorityCodes  []string  `json:"authority_codes"`
	ConsortiumCodes []string  `json:"consortium_codes"`
	CreatedAt       time.Time `json:"created_at"`
}

// OwnsAuthority reports direct ownership of a custodian code.
func (u *User) OwnsAuthority(code string) bool {
	for _, c := range u.AuthorityCodes {
		if c == code {
			return true
		}
	}
	return false
}

// OwnsConsortium reports ownership of a consortium code.
func (u *User) OwnsConsortium(code string) bool {
	for _, c := range u.ConsortiumCodes {
		if c == code {
			return true
		}
	}
	return false
}
