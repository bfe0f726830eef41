package model

import "testing"

func TestValidRole(t *testing.T) {
	tests := []struct {
		role     string
		expected bool
	}{
		{RoleBuyer, true},
		{RoleStore, true},
		{"admin", false},
		{"", false},
		{"Buyer", false},
	}

	for _, tt := range tests {
		got := ValidRole(tt.role)
		if got != tt.expected {
			t.Errorf("ValidRole(%q) = %v, want %v", tt.role, got, tt.expected)
		}
	}
}

func TestRegistrationValidate(t *testing.T) {
	valid := Registration{
		FirstName:       "Ana",
		LastName:        "Novak",
		Email:           "ana@example.com",
		Password:        "secret-pass",
		ConfirmPassword: "secret-pass",
		Phone:           "040123456",
		Role:            RoleBuyer,
	}

	tests := []struct {
		name    string
		mutate  func(*Registration)
		wantErr error
	}{
		{"valid", func(*Registration) {}, nil},
		{"missing first name", func(r *Registration) { r.FirstName = "" }, ErrRegistrationIncomplete},
		{"missing phone", func(r *Registration) { r.Phone = "" }, ErrRegistrationIncomplete},
		{"unknown role", func(r *Registration) { r.Role = "admin" }, ErrRegistrationIncomplete},
		{"mismatch", func(r *Registration) { r.ConfirmPassword = "other" }, ErrPasswordMismatch},
		// Missing fields win over a mismatch.
		{"missing and mismatch", func(r *Registration) { r.Email = ""; r.ConfirmPassword = "x" }, ErrRegistrationIncomplete},
	}

	for _, tt := range tests {
		r := valid
		tt.mutate(&r)
		if err := r.Validate(); err != tt.wantErr {
			t.Errorf("%s: Validate() = %v, want %v", tt.name, err, tt.wantErr)
		}
	}
}
