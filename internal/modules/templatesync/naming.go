package templatesync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ExistsFunc probes the live name-space for a candidate name.
type ExistsFunc func(ctx context.Context, name string) (bool, error)

// NameAllocator generates collision-free natural keys for nodes that arrive
// from the UI without a stable identity. Generated names are lowercase
// identifier-safe strings; collisions are resolved with a numeric suffix.
type NameAllocator struct {
	maxLen    int
	maxProbes int
}

func NewNameAllocator(maxLen, maxProbes int) *NameAllocator {
	if maxLen < 8 {
		maxLen = 8
	}
	if maxProbes < 1 {
		maxProbes = 1
	}
	return &NameAllocator{maxLen: maxLen, maxProbes: maxProbes}
}

// Normalize lowercases the label, collapses non-identifier runs to single
// underscores, and truncates to the configured maximum.
func (a *NameAllocator) Normalize(label string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")
	if len(name) > a.maxLen {
		name = strings.Trim(name[:a.maxLen], "_")
	}
	return name
}

// Allocate produces a name unique within its name-space: not colliding with
// any persisted name (via exists) nor with a name already claimed in this
// batch (taken). parent scopes option names under their question. An empty
// or unusable label falls back to a content hash so the result is never
// empty.
func (a *NameAllocator) Allocate(ctx context.Context, label, parent string, exists ExistsFunc, taken map[string]struct{}) (string, error) {
	base := a.Normalize(label)
	if base == "" {
		base = a.hashFallback(parent, label)
	}
	if parent != "" {
		parentNorm := a.Normalize(parent)
		if parentNorm != "" && !strings.HasPrefix(base, parentNorm+"_") {
			base = parentNorm + "_" + base
		}
	}
	if len(base) > a.maxLen {
		base = strings.Trim(base[:a.maxLen], "_")
	}

	candidate := base
	for i := 1; i <= a.maxProbes; i++ {
		free, err := a.free(ctx, candidate, exists, taken)
		if err != nil {
			return "", err
		}
		if free {
			if taken != nil {
				taken[candidate] = struct{}{}
			}
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, i+1)
	}
	return "", &DuplicateNaturalKeyError{Level: "name", Name: base}
}

func (a *NameAllocator) free(ctx context.Context, name string, exists ExistsFunc, taken map[string]struct{}) (bool, error) {
	if taken != nil {
		if _, claimed := taken[name]; claimed {
			return false, nil
		}
	}
	if exists == nil {
		return true, nil
	}
	used, err := exists(ctx, name)
	if err != nil {
		return false, err
	}
	return !used, nil
}

func (a *NameAllocator) hashFallback(parent, label string) string {
	sum := sha256.Sum256([]byte(parent + "\x00" + label))
	return "item_" + hex.EncodeToString(sum[:4])
}
