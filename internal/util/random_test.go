package util

import (
	"strings"
	"testing"
)

func TestGenerateRandomID(t *testing.T) {
	tests := []struct {
		name       string
		prefix     string
		hexLength  int
		wantPrefix string
		wantLength int // expected total length: prefix + hexLength
	}{
		{
			name:       "application ID format",
			prefix:     "app_",
			hexLength:  32,
			wantPrefix: "app_",
			wantLength: 36, // 4 + 32
		},
		{
			name:       "suggestion ID format",
			prefix:     "sug_",
			hexLength:  32,
			wantPrefix: "sug_",
			wantLength: 36, // 4 + 32
		},
		{
			name:       "custom prefix",
			prefix:     "test_",
			hexLength:  16,
			wantPrefix: "test_",
			wantLength: 21, // 5 + 16
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateRandomID(tt.prefix, tt.hexLength)
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("GenerateRandomID() = %q, want prefix %q", got, tt.wantPrefix)
			}
			if len(got) != tt.wantLength {
				t.Errorf("GenerateRandomID() length = %d, want %d", len(got), tt.wantLength)
			}
			hexPart := strings.TrimPrefix(got, tt.wantPrefix)
			for _, c := range hexPart {
				if !strings.ContainsRune("0123456789abcdef", c) {
					t.Errorf("GenerateRandomID() contains non-hex character %q", c)
					break
				}
			}
		})
	}
}

func TestGenerateRandomIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateApplicationID()
		if seen[id] {
			t.Fatalf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestDomainIDPrefixes(t *testing.T) {
	if got := GenerateApplicationID(); !strings.HasPrefix(got, "app_") {
		t.Errorf("GenerateApplicationID() = %q, want app_ prefix", got)
	}
	if got := GenerateSuggestionID(); !strings.HasPrefix(got, "sug_") {
		t.Errorf("GenerateSuggestionID() = %q, want sug_ prefix", got)
	}
}
