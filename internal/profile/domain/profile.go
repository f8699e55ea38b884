package domain

import (
	"errors"
	"time"
)

// Profile is the staff identity record owned by the backend. The client only holds a cached copy.
type Profile struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"` // 10 digits; the login key
	Role      Role      `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Role string

const (
	RoleSuperAdmin    Role = "super_admin"
	RoleManager       Role = "manager"
	RoleAccountant    Role = "accountant"
	RoleDeliveryStaff Role = "delivery_staff"
	RoleFarmWorker    Role = "farm_worker"
	RoleVetStaff      Role = "vet_staff"
	RoleAuditor       Role = "auditor"
)

// Roles lists every role in display order.
var Roles = []Role{
	RoleSuperAdmin,
	RoleManager,
	RoleAccountant,
	RoleDeliveryStaff,
	RoleFarmWorker,
	RoleVetStaff,
	RoleAuditor,
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// IsValidPhone reports whether phone is exactly ten ASCII digits.
func IsValidPhone(phone string) bool {
	if len(phone) != 10 {
		return false
	}
	for i := 0; i < len(phone); i++ {
		if phone[i] < '0' || phone[i] > '9' {
			return false
		}
	}
	return true
}

// Validate returns an error describing the first validation failure.
func (p *Profile) Validate() error {
	if p == nil {
		return errors.New("profile is required")
	}
	if p.ID == "" {
		return errors.New("profile id is required")
	}
	if !IsValidPhone(p.Phone) {
		return errors.New("phone must be 10 digits")
	}
	if !p.Role.Valid() {
		return errors.New("unknown role")
	}
	return nil
}

// Clone returns a copy of p so callers cannot mutate a cached profile. Returns nil for nil.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
