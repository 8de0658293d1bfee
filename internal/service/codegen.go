package service

import (
	"context"
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

const (
	codeLength   = 6
	codeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)

// CodeGenerator produces short codes and checks custom-alias
// availability against the registry store.
type CodeGenerator struct {
	store LinkStore
}

func NewCodeGenerator(store LinkStore) *CodeGenerator {
	return &CodeGenerator{store: store}
}

// Generate draws a fixed-length code uniformly from the alphanumeric
// alphabet. Generated codes are not checked for collisions; the store's
// unique index catches the negligible remainder on insert.
func (g *CodeGenerator) Generate() (string, error) {
	var b strings.Builder
	b.Grow(codeLength)
	for i := 0; i < codeLength; i++ {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[j.Int64()])
	}
	return b.String(), nil
}

// ValidAlias reports whether the alias matches the allowed format:
// alphanumeric, hyphen or underscore, at most 50 characters.
func (g *CodeGenerator) ValidAlias(alias string) bool {
	return aliasPattern.MatchString(alias)
}

// CheckAliasAvailable reports whether no existing link resolves the
// alias, matching against both short codes and custom aliases. A
// non-nil error is a transient store failure, not "taken": callers may
// retry it, where a taken alias should be rejected outright.
func (g *CodeGenerator) CheckAliasAvailable(ctx context.Context, alias string) (bool, error) {
	exists, err := g.store.CodeExists(ctx, alias)
	if err != nil {
		return false, err
	}
	return !exists, nil
}
