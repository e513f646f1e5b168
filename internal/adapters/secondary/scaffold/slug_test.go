package scaffold

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple name", "demo", "demo"},
		{"spaces collapse to dashes", "My Coffee Shop", "my-coffee-shop"},
		{"punctuation dropped", "Hello, World!", "hello-world"},
		{"diacritics folded", "Café São Paulo", "cafe-sao-paulo"},
		{"repeated separators", "a  --  b", "a-b"},
		{"leading and trailing junk", "  ---demo---  ", "demo"},
		{"digits kept", "shop 24/7", "shop-24-7"},
		{"nothing usable", "!!!", "site"},
		{"empty input", "", "site"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}
