package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1.0},
		{"abc", "", 0.0},
		{"abcd", "bcde", 0.75},
		{"abxcd", "abcd", 8.0 / 9.0},
		{"春风又绿江南岸", "春风又绿江南岸", 1.0},
		{"春风又绿江南岸", "春风吹又生", 0.5},
		{"山中相送罢", "山中", 4.0 / 7.0},
		{"春风得意马蹄疾", "春回大地千山秀", 1.0 / 7.0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			assert.InDelta(t, tt.want, Ratio(tt.a, tt.b), 1e-9)
		})
	}
}

func TestRatio_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"春风又绿江南岸", "春风吹又生"},
		{"明月松间照", "清泉石上流"},
		{"abcabc", "cbacba"},
	}
	for _, p := range pairs {
		assert.InDelta(t, Ratio(p[0], p[1]), Ratio(p[1], p[0]), 1e-9, "%q vs %q", p[0], p[1])
	}
}

func TestRatio_CountsRunesNotBytes(t *testing.T) {
	// One shared character out of 2+2 runes; a byte-based ratio would differ
	assert.InDelta(t, 0.5, Ratio("春风", "春雨"), 1e-9)
}
