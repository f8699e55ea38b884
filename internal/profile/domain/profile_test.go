package domain

import "testing"

func TestRole_Valid(t *testing.T) {
	for _, r := range Roles {
		if !r.Valid() {
			t.Errorf("%q.Valid() = false, want true", r)
		}
	}
	for _, r := range []Role{"", "admin", "SUPER_ADMIN", "owner"} {
		if r.Valid() {
			t.Errorf("%q.Valid() = true, want false", r)
		}
	}
}

func TestIsValidPhone(t *testing.T) {
	testCases := []struct {
		phone string
		want  bool
	}{
		{"9876543210", true},
		{"0000000000", true},
		{"987654321", false},
		{"98765432100", false},
		{"98765-4321", false},
		{"", false},
		{"９876543210", false},
	}
	for _, tc := range testCases {
		if got := IsValidPhone(tc.phone); got != tc.want {
			t.Errorf("IsValidPhone(%q) = %v, want %v", tc.phone, got, tc.want)
		}
	}
}

func TestProfile_Validate(t *testing.T) {
	valid := Profile{ID: "p-1", FullName: "Asha", Phone: "9876543210", Role: RoleManager, IsActive: true}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	testCases := []struct {
		name   string
		mutate func(p *Profile)
	}{
		{"missing id", func(p *Profile) { p.ID = "" }},
		{"short phone", func(p *Profile) { p.Phone = "12345" }},
		{"unknown role", func(p *Profile) { p.Role = "owner" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("Validate should return error")
			}
		})
	}

	var nilProfile *Profile
	if err := nilProfile.Validate(); err == nil {
		t.Error("Validate on nil profile should return error")
	}
}

func TestProfile_Clone(t *testing.T) {
	p := &Profile{ID: "p-1", Role: RoleAuditor}
	c := p.Clone()
	c.Role = RoleManager
	if p.Role != RoleAuditor {
		t.Errorf("original role changed to %q", p.Role)
	}
	var nilProfile *Profile
	if nilProfile.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}
