package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Tiliavir/timeplan/internal/apperr"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{errors.New("not found"), "Error: not found"},
		{fmt.Errorf("stopping timer: %w", errors.New("offline")), "Error: stopping timer: offline"},
		{errors.New(""), "Error: Something went wrong"},
		{nil, "Error: Something went wrong"},
	}
	for _, tt := range tests {
		if got := apperr.Message(tt.err); got != tt.want {
			t.Errorf("Message(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
