package artifactid_test

import (
	"strings"
	"testing"

	"casescribe/utils/artifactid"
)

func TestNew(t *testing.T) {
	id := artifactid.New()
	if !strings.HasPrefix(id, "aud_") {
		t.Errorf("New() = %q, want aud_ prefix", id)
	}
	if !artifactid.IsValid(id) {
		t.Errorf("New() produced invalid id %q", id)
	}

	// Monotonic entropy keeps ids unique under rapid generation.
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		next := artifactid.New()
		if seen[next] {
			t.Fatalf("duplicate id %q", next)
		}
		seen[next] = true
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected bool
	}{
		{"generated id", artifactid.New(), true},
		{"missing prefix", "01HVX5J9P1QZJ9P1QZJ9P1QZJ9", false},
		{"wrong prefix", "vid_01hvx5j9p1qzj9p1qzj9p1qzj9", false},
		{"prefix only", "aud_", false},
		{"garbage suffix", "aud_not-a-ulid", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := artifactid.IsValid(tt.value); got != tt.expected {
				t.Errorf("IsValid(%q) = %v, want %v", tt.value, got, tt.expected)
			}
		})
	}
}

func TestParse(t *testing.T) {
	id := artifactid.New()
	parsed, err := artifactid.Parse(id)
	if err != nil {
		t.Fatalf("Parse(%q) unexpected error: %v", id, err)
	}
	if "aud_"+strings.ToLower(parsed.String()) != id {
		t.Errorf("Parse round trip mismatch: %q vs %q", parsed.String(), id)
	}
}
