package demoaccount

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	profiledomain "staff-dashboard/internal/profile/domain"
)

// Seed is one entry of the demo account table, as written in code or in a YAML seed file.
type Seed struct {
	ID       string             `yaml:"id,omitempty"`
	Phone    string             `yaml:"phone"`
	PIN      string             `yaml:"pin"`
	FullName string             `yaml:"full_name"`
	Role     profiledomain.Role `yaml:"role"`
}

// seedEpoch is the fixed created/updated time of every demo profile.
var seedEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func (s Seed) profile() profiledomain.Profile {
	id := s.ID
	if id == "" {
		id = "demo-" + string(s.Role)
	}
	return profiledomain.Profile{
		ID:        id,
		FullName:  s.FullName,
		Phone:     s.Phone,
		Role:      s.Role,
		IsActive:  true,
		CreatedAt: seedEpoch,
		UpdatedAt: seedEpoch,
	}
}

// DefaultSeeds returns the built-in demo table: one account per role.
func DefaultSeeds() []Seed {
	return []Seed{
		{Phone: "9876543210", PIN: "123456", FullName: "Demo Super Admin", Role: profiledomain.RoleSuperAdmin},
		{Phone: "9876543211", PIN: "234567", FullName: "Demo Manager", Role: profiledomain.RoleManager},
		{Phone: "9876543212", PIN: "345678", FullName: "Demo Accountant", Role: profiledomain.RoleAccountant},
		{Phone: "9876543213", PIN: "456789", FullName: "Demo Delivery Staff", Role: profiledomain.RoleDeliveryStaff},
		{Phone: "9876543214", PIN: "567890", FullName: "Demo Farm Worker", Role: profiledomain.RoleFarmWorker},
		{Phone: "9876543215", PIN: "678901", FullName: "Demo Vet Staff", Role: profiledomain.RoleVetStaff},
		{Phone: "9876543216", PIN: "789012", FullName: "Demo Auditor", Role: profiledomain.RoleAuditor},
	}
}

type seedFile struct {
	Accounts []Seed `yaml:"accounts"`
}

// LoadSeeds reads a YAML seed file of the form:
//
//	accounts:
//	  - phone: "9876543210"
//	    pin: "123456"
//	    full_name: Demo Super Admin
//	    role: super_admin
func LoadSeeds(path string) ([]Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("demoaccount: read seeds: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("demoaccount: parse seeds: %w", err)
	}
	if len(f.Accounts) == 0 {
		return nil, fmt.Errorf("demoaccount: %s has no accounts", path)
	}
	return f.Accounts, nil
}

// EncodeSeeds writes seeds in the format LoadSeeds reads.
func EncodeSeeds(w io.Writer, seeds []Seed) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(seedFile{Accounts: seeds}); err != nil {
		return fmt.Errorf("demoaccount: encode seeds: %w", err)
	}
	return enc.Close()
}
