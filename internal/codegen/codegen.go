package codegen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/tablehouse/eventdesk/internal/apperr"
)

// MaxAttempts bounds how many candidates Generate tries before giving up.
const MaxAttempts = 50

const (
	// giftCardAlphabet omits 0, O, 1 and I.
	giftCardAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	digitAlphabet    = "0123456789"
)

// Format describes the shape of a generated identifier.
type Format struct {
	Prefix   string // Literal prefix, e.g. VAL-.
	Alphabet string // Symbols sampled uniformly.
	Length   int    // Number of sampled symbols.
}

// Identifier formats used across the site.
var (
	GiftCard   = Format{Alphabet: giftCardAlphabet, Length: 8}
	Table      = Format{Prefix: "RES-", Alphabet: digitAlphabet, Length: 5}
	Valentines = Format{Prefix: "VAL-", Alphabet: digitAlphabet, Length: 5}
	KDV        = Format{Prefix: "KDV-", Alphabet: digitAlphabet, Length: 4}
	Halloween  = Format{Prefix: "HAL-", Alphabet: digitAlphabet, Length: 4}
)

// ExistsFunc reports whether a candidate is already taken in the store.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Random returns one candidate without checking the store.
func (f Format) Random() (string, error) {
	if f.Length <= 0 || len(f.Alphabet) == 0 {
		return "", fmt.Errorf("codegen: invalid format")
	}
	limit := big.NewInt(int64(len(f.Alphabet)))
	out := make([]byte, f.Length)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("codegen: read random: %w", err)
		}
		out[i] = f.Alphabet[n.Int64()]
	}
	return f.Prefix + string(out), nil
}

// Matches reports whether s could have been produced by the format.
func (f Format) Matches(s string) bool {
	if len(s) != len(f.Prefix)+f.Length || s[:len(f.Prefix)] != f.Prefix {
		return false
	}
	for i := len(f.Prefix); i < len(s); i++ {
		if !containsByte(f.Alphabet, s[i]) {
			return false
		}
	}
	return true
}

// Generate returns a candidate that exists reports as free.
// It fails with CodeSpaceExhausted after MaxAttempts collisions.
func Generate(ctx context.Context, f Format, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if errCtx := ctx.Err(); errCtx != nil {
			return "", errCtx
		}
		candidate, err := f.Random()
		if err != nil {
			return "", err
		}
		if exists == nil {
			return candidate, nil
		}
		taken, errExists := exists(ctx, candidate)
		if errExists != nil {
			return "", fmt.Errorf("codegen: check candidate: %w", errExists)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", apperr.New(apperr.KindCodeSpaceExhausted, fmt.Sprintf("no free %scode after %d attempts", f.Prefix, MaxAttempts))
}

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}
