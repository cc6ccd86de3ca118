package users

import (
	"fmt"
	"net/mail"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// RoleType represents the access level of a user account.
type RoleType string

const (
	RoleAdmin  RoleType = "admin"  // Can manage users and review flagged files
	RoleUser   RoleType = "user"   // Regular account, owns and manages its files
	RoleViewer RoleType = "viewer" // Read-only access to shared files
)

type User struct {
	ID           string    `json:"id,omitempty"`           // Unique identifier for the user
	Email        string    `json:"email,omitempty"`        // User's email address
	DisplayName  string    `json:"display_name,omitempty"` // Name shown in the UI
	PasswordHash string    `json:"-"`                      // Hashed version of the user's password - never serialize
	Role         RoleType  `json:"role,omitempty"`         // Access level
	CreatedAt    time.Time `json:"created_at,omitempty"`   // Date and time when the user registered
	LastLogin    time.Time `json:"last_login,omitempty"`   // Last time the user logged in

	Verified bool `json:"verified,omitempty"` // Verified, has the user verified their email
	Blocked  bool `json:"blocked,omitempty"`  // Blocked, has the user been blocked from logging in
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

// ValidateEmail checks that the address parses as a bare RFC 5322 address.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidRole reports whether role is one of the known role types.
func ValidRole(role RoleType) bool {
	switch role {
	case RoleAdmin, RoleUser, RoleViewer:
		return true
	}
	return false
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// IsAdmin returns true if the user has admin privileges
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
