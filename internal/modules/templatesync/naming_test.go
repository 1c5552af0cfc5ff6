package templatesync

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	a := NewNameAllocator(64, 10)

	cases := []struct {
		label string
		want  string
	}{
		{"Good", "good"},
		{"  Strongly Agree  ", "strongly_agree"},
		{"C# / .NET (advanced)", "c_net_advanced"},
		{"already_normalized_2", "already_normalized_2"},
		{"___", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := a.Normalize(tc.label); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.label, got, tc.want)
		}
	}
}

func TestNormalizeTruncates(t *testing.T) {
	a := NewNameAllocator(10, 10)
	got := a.Normalize("a very long label that keeps going")
	if len(got) > 10 {
		t.Fatalf("normalized name %q exceeds max length", got)
	}
	if strings.HasSuffix(got, "_") {
		t.Fatalf("normalized name %q has trailing underscore", got)
	}
}

func TestAllocateScopesUnderParent(t *testing.T) {
	a := NewNameAllocator(64, 10)
	name, err := a.Allocate(context.Background(), "Good", "q_mood", nil, nil)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if name != "q_mood_good" {
		t.Fatalf("got %q, want q_mood_good", name)
	}
}

func TestAllocateKeepsExistingPrefix(t *testing.T) {
	a := NewNameAllocator(64, 10)
	name, err := a.Allocate(context.Background(), "q_mood_good", "q_mood", nil, nil)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if name != "q_mood_good" {
		t.Fatalf("got %q, want q_mood_good (no double prefix)", name)
	}
}

func TestAllocateProbesSuffixes(t *testing.T) {
	a := NewNameAllocator(64, 10)
	used := map[string]bool{"q_mood_good": true, "q_mood_good_2": true}
	exists := func(_ context.Context, name string) (bool, error) {
		return used[name], nil
	}

	name, err := a.Allocate(context.Background(), "Good", "q_mood", exists, nil)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if name != "q_mood_good_3" {
		t.Fatalf("got %q, want q_mood_good_3", name)
	}
}

func TestAllocateClaimsWithinBatch(t *testing.T) {
	a := NewNameAllocator(64, 10)
	taken := make(map[string]struct{})

	first, err := a.Allocate(context.Background(), "Good", "q_mood", nil, taken)
	if err != nil {
		t.Fatalf("first Allocate: %v", err)
	}
	second, err := a.Allocate(context.Background(), "Good", "q_mood", nil, taken)
	if err != nil {
		t.Fatalf("second Allocate: %v", err)
	}
	if first != "q_mood_good" || second != "q_mood_good_2" {
		t.Fatalf("got %q then %q, want q_mood_good then q_mood_good_2", first, second)
	}
}

func TestAllocateHashFallback(t *testing.T) {
	a := NewNameAllocator(64, 10)
	name, err := a.Allocate(context.Background(), "!!!", "", nil, nil)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if !strings.HasPrefix(name, "item_") {
		t.Fatalf("got %q, want item_ fallback", name)
	}
}

func TestAllocateExhaustion(t *testing.T) {
	a := NewNameAllocator(64, 3)
	exists := func(_ context.Context, _ string) (bool, error) { return true, nil }

	_, err := a.Allocate(context.Background(), "Good", "q_mood", exists, nil)
	if !errors.Is(err, ErrDuplicateNaturalKey) {
		t.Fatalf("got %v, want ErrDuplicateNaturalKey", err)
	}
}

func TestAllocatePropagatesProbeError(t *testing.T) {
	a := NewNameAllocator(64, 3)
	probeErr := errors.New("db down")
	exists := func(_ context.Context, _ string) (bool, error) { return false, probeErr }

	_, err := a.Allocate(context.Background(), "Good", "", exists, nil)
	if !errors.Is(err, probeErr) {
		t.Fatalf("got %v, want probe error", err)
	}
}
