// Package auth derives the extra user fields set at signup and mints API tokens.
package auth

import (
	"strings"

	"github.com/google/uuid"
)

// SignupFields are the values derived from the signup email.
type SignupFields struct {
	Username string
	IsAdmin  bool
}

// DeriveSignupFields uses the email as username and flags it as admin when it
// appears in allowList.
func DeriveSignupFields(email string, allowList []string) SignupFields {
	fields := SignupFields{Username: email}
	if email == "" {
		return fields
	}
	for _, admin := range allowList {
		if admin == email {
			fields.IsAdmin = true
			break
		}
	}
	return fields
}

// ParseAdminEmails splits a comma separated allow-list. Items are trimmed and
// empty items dropped; an empty string yields no admins.
func ParseAdminEmails(csv string) []string {
	var out []string
	for _, item := range strings.Split(csv, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// NewToken returns a random API token.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
