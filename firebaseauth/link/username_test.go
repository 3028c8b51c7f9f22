package link

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.Equal("alice@example.com", NormalizeEmail("  Alice@Example.COM \n"))
	assert.Equal("", NormalizeEmail("   "))
}

func TestUsernameFromEmail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{"simple", "alice@example.com", "alice"},
		{"mixed-case", "Alice.Smith@Example.com", "alice.smith"},
		{"dotted", "a.b.c@example.com", "a.b.c"},
		{"plus-tag", "alice+news@example.com", "alice+news"},
		{"quoted-local-part", `"odd address"@example.com`, ""},
		{"leading-dot", ".alice@example.com", ""},
		{"trailing-dot", "alice.@example.com", ""},
		{"double-dot", "a..b@example.com", ""},
		{"no-at", "not-an-email", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, UsernameFromEmail(tt.email))
		})
	}
}

func TestIsUsernameValid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		want     bool
	}{
		{"simple", "alice", true},
		{"dots-and-dashes", "alice.smith-jones", true},
		{"underscore", "alice_smith", true},
		{"digits", "user2026", true},
		{"empty", "", false},
		{"plus-sign", "alice+news", false},
		{"space", "alice smith", false},
		{"too-long", strings.Repeat("a", maxUsernameLength+1), false},
		{"max-length", strings.Repeat("a", maxUsernameLength), true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsUsernameValid(tt.username))
		})
	}
}
