package screen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPairingCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := NewPairingCode()
		require.NoError(t, err)
		assert.Regexp(t, `^[A-HJKMNP-Z2-9]{3}-[A-HJKMNP-Z2-9]{3}$`, code)

		normalized, err := NormalizeCode(code)
		require.NoError(t, err)
		assert.Equal(t, code, normalized)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 40)
}

func TestNormalizeCode(t *testing.T) {
	for in, want := range map[string]string{
		"k7q-m2x":   "K7Q-M2X",
		"K7QM2X":    "K7Q-M2X",
		" k7q m2x ": "K7Q-M2X",
	} {
		got, err := NormalizeCode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, in := range []string{"", "K7Q-M2", "K7Q-M2XX", "O0I-1LX"} {
		_, err := NormalizeCode(in)
		assert.ErrorIs(t, err, ErrInvalidCode, in)
	}
}
