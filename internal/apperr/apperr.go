// Package apperr renders failures the way they are shown to the user.
package apperr

import "strings"

const fallback = "Something went wrong"

// Message returns "Error: <message>" for err, or a generic message when err
// carries no text.
func Message(err error) string {
	msg := ""
	if err != nil {
		msg = strings.TrimSpace(err.Error())
	}
	if msg == "" {
		msg = fallback
	}
	return "Error: " + msg
}
