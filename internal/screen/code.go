package screen

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// Pairing codes avoid look-alike characters (0/O, 1/I/L).
const (
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeHalf     = 3
)

var ErrInvalidCode = errors.New("screen: invalid pairing code")

// NewPairingCode returns a random code such as "K7Q-M2X".
func NewPairingCode() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeHalf*2; i++ {
		if i == codeHalf {
			b.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeCode accepts codes typed in any case, with or without the dash.
func NormalizeCode(code string) (string, error) {
	var raw strings.Builder
	for _, r := range strings.ToUpper(code) {
		switch {
		case r == '-' || r == ' ':
			continue
		case strings.ContainsRune(codeAlphabet, r):
			raw.WriteRune(r)
		default:
			return "", ErrInvalidCode
		}
	}
	s := raw.String()
	if len(s) != codeHalf*2 {
		return "", ErrInvalidCode
	}
	return s[:codeHalf] + "-" + s[codeHalf:], nil
}
