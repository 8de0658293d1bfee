package service

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	gen := NewCodeGenerator(newFakeStore())

	t.Run("fixed length from the alphabet", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			code, err := gen.Generate()
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			if len(code) != codeLength {
				t.Errorf("Expected %d chars, got %q", codeLength, code)
			}
			for _, c := range code {
				if !strings.ContainsRune(codeAlphabet, c) {
					t.Errorf("Code %q contains %q outside the alphabet", code, c)
				}
			}
		}
	})

	t.Run("codes vary", func(t *testing.T) {
		seen := map[string]bool{}
		for i := 0; i < 20; i++ {
			code, err := gen.Generate()
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			seen[code] = true
		}
		if len(seen) < 2 {
			t.Errorf("Expected varied codes, got %d distinct out of 20", len(seen))
		}
	})
}

func TestValidAlias(t *testing.T) {
	gen := NewCodeGenerator(newFakeStore())

	valid := []string{"my-link", "My_Link2", "a", strings.Repeat("x", 50)}
	for _, alias := range valid {
		if !gen.ValidAlias(alias) {
			t.Errorf("Expected %q to be valid", alias)
		}
	}

	invalid := []string{"", "has space", "смайл", "semi;colon", strings.Repeat("x", 51), "dot.dot"}
	for _, alias := range invalid {
		if gen.ValidAlias(alias) {
			t.Errorf("Expected %q to be invalid", alias)
		}
	}
}

func TestCheckAliasAvailable(t *testing.T) {
	ctx := context.Background()

	t.Run("free alias", func(t *testing.T) {
		gen := NewCodeGenerator(newFakeStore())
		available, err := gen.CheckAliasAvailable(ctx, "fresh")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !available {
			t.Error("Expected fresh alias to be available")
		}
	})

	t.Run("taken as custom alias", func(t *testing.T) {
		registry, _, _, _ := newTestRegistry()
		if _, err := registry.Create(ctx, CreateLinkParams{
			Title: "t", OriginalURL: "example.com", CustomAlias: "mine", OwnerID: "u1",
		}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		gen := registry.codes
		available, err := gen.CheckAliasAvailable(ctx, "mine")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if available {
			t.Error("Expected taken alias to be unavailable")
		}
	})

	t.Run("taken as generated short code", func(t *testing.T) {
		registry, _, _, _ := newTestRegistry()
		link, err := registry.Create(ctx, CreateLinkParams{
			Title: "t", OriginalURL: "example.com", OwnerID: "u1",
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		available, err := registry.codes.CheckAliasAvailable(ctx, link.ShortCode)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if available {
			t.Error("Expected short code to count as taken for aliases")
		}
	})

	t.Run("transient failure is an error, not taken", func(t *testing.T) {
		store := newFakeStore()
		store.failExists = errors.New("store offline")
		gen := NewCodeGenerator(store)

		_, err := gen.CheckAliasAvailable(ctx, "any")
		if err == nil {
			t.Fatal("Expected a transient error to surface")
		}
	})
}
