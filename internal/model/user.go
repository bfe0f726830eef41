package model

import "errors"

// Roles an account can register with.
const (
	RoleBuyer = "buyer"
	RoleStore = "store"
)

// Registration is the sign-up form submitted to the backend.
type Registration struct {
	FirstName       string
	LastName        string
	Email           string
	Password        string
	ConfirmPassword string
	Phone           string
	Role            string
}

// Registration validation errors.
var (
	ErrRegistrationIncomplete = errors.New("Please fill all required fields.")
	ErrPasswordMismatch       = errors.New("Passwords do not match.")
)

// ValidRole reports whether role is one the backend accepts at sign-up.
func ValidRole(role string) bool {
	return role == RoleBuyer || role == RoleStore
}

// Validate checks required fields first, then the password confirmation.
func (r Registration) Validate() error {
	if r.FirstName == "" || r.LastName == "" || r.Email == "" ||
		r.Password == "" || r.ConfirmPassword == "" || r.Phone == "" || !ValidRole(r.Role) {
		return ErrRegistrationIncomplete
	}
	if r.Password != r.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}
