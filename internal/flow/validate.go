// ABOUTME: Client-side input gates run before any network call
// ABOUTME: Every failure is a client.ValidationError naming the offending field

package flow

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/neves-cloud/blackbox/internal/client"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEmail checks the address shape and returns it trimmed
func ValidateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", client.Validation("email", "is required")
	}
	if !emailPattern.MatchString(email) {
		return "", client.Validation("email", "%q is not a valid email address", email)
	}
	return email, nil
}

// ValidatePassword rejects empty passwords. Whitespace is significant.
func ValidatePassword(password string) error {
	if password == "" {
		return client.Validation("password", "is required")
	}
	return nil
}

// ValidatePasswords checks a new password against its confirmation
func ValidatePasswords(password, confirm string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if password != confirm {
		return client.Validation("confirm", "passwords do not match")
	}
	return nil
}

// ValidateCode checks a verification code and returns it trimmed
func ValidateCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", client.Validation("code", "is required")
	}
	return code, nil
}

// ValidateDeviceID parses a device UUID and returns its canonical form
func ValidateDeviceID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", client.Validation("id", "is required")
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", client.Validation("id", "%q is not a valid UUID", id)
	}
	return parsed.String(), nil
}

// ValidateDeviceName returns the trimmed nickname
func ValidateDeviceName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", client.Validation("name", "is required")
	}
	return name, nil
}
