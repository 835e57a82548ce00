package referralcode

import (
	"crypto/rand"
	"fmt"

	"referral-engine/pkg/config"

	"go.uber.org/fx"
)

// 36-character space; at the default length of 8 the code space is 36^8,
// which keeps collisions negligible within a restaurant's client set.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const minLength = 6

var Module = fx.Module("referralcode",
	fx.Provide(Provide),
)

type Generator struct {
	length int
}

func New(length int) *Generator {
	if length < minLength {
		length = minLength
	}
	return &Generator{length: length}
}

func Provide(cfg *config.Config) *Generator {
	return New(cfg.Referral.CodeLength)
}

// Generate returns a random URL-safe referral code. Uniqueness is not
// guaranteed here; callers must retry on a store-level duplicate.
func (g *Generator) Generate() (string, error) {
	buf := make([]byte, g.length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}

	return string(buf), nil
}
