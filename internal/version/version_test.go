package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSatisfies(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })
	Version = "1.2.0"

	tests := []struct {
		min  string
		want bool
	}{
		{"", true},
		{"1.0.0", true},
		{"1.2.0", true},
		{"1.2.1", false},
		{"2.0", false},
	}
	for _, tt := range tests {
		t.Run(tt.min, func(t *testing.T) {
			assert.Equal(t, tt.want, Satisfies(tt.min))
		})
	}
}
