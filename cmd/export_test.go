package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Tiliavir/timeplan/internal/model"
)

func TestWriteCSVQuotesFields(t *testing.T) {
	start := time.Date(2026, 2, 27, 9, 0, 0, 0, time.Local)
	stop := start.Add(95 * time.Minute)
	entries := []model.TimeEntry{
		{ID: "a", Description: "plain", Start: start, Stop: &stop},
		{ID: "b", Description: "with,comma", Start: start, Stop: &stop},
		{ID: "c", Description: `with"quote`, Start: start, Stop: &stop},
	}

	var buf bytes.Buffer
	if err := writeCSV(&buf, entries); err != nil {
		t.Fatalf("writeCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), buf.String())
	}
	if lines[0] != "id,date,description,start,stop,duration_minutes" {
		t.Errorf("header = %q", lines[0])
	}
	tests := []struct {
		line int
		want string
	}{
		{1, "a,2026-02-27,plain,"},
		{2, `b,2026-02-27,"with,comma",`},
		{3, `c,2026-02-27,"with""quote",`},
	}
	for _, tt := range tests {
		if !strings.HasPrefix(lines[tt.line], tt.want) {
			t.Errorf("line %d = %q, want prefix %q", tt.line, lines[tt.line], tt.want)
		}
		if !strings.HasSuffix(lines[tt.line], ",95") {
			t.Errorf("line %d = %q, want 95 minutes", tt.line, lines[tt.line])
		}
	}
}

func TestShortID(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"", ""},
		{"abc", "abc"},
		{"0123456789abcdef", "01234567"},
	}
	for _, tt := range tests {
		if got := shortID(tt.id); got != tt.want {
			t.Errorf("shortID(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}
