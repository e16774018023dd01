package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"Émotional Disorders", "emotional disorder"},
		{"Child Development", "child  development"},
		{"Cognitive-Behavioral Therapy", "cognitive behavioral therapies"},
		{"SÉMANTIQUE", "semantique"},
	}
	for _, tt := range tests {
		assert.Equal(t, Normalize(tt.b), Normalize(tt.a), "%q vs %q", tt.a, tt.b)
	}
}

func TestNormalizeDistinct(t *testing.T) {
	assert.NotEqual(t, Normalize("Adult Development"), Normalize("Child Development"))
}

func TestNormalizeEmpty(t *testing.T) {
	for _, in := range []string{"", "  ", "--", "’"} {
		assert.Empty(t, Normalize(in), "Normalize(%q)", in)
	}
}
