package templatesync

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadSyncPolicyMissingFileUsesDefaults(t *testing.T) {
	p, err := LoadSyncPolicy(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadSyncPolicy: %v", err)
	}
	if p != DefaultSyncPolicy() {
		t.Fatalf("got %+v, want defaults", p)
	}
}

func TestLoadSyncPolicyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.yaml")
	body := "max_attempts: 5\nbackoff: 200ms\nmax_name_length: 32\nmax_name_probes: 10\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	p, err := LoadSyncPolicy(path)
	if err != nil {
		t.Fatalf("LoadSyncPolicy: %v", err)
	}
	if p.MaxAttempts != 5 || p.Backoff != 200*time.Millisecond || p.MaxNameLength != 32 || p.MaxNameProbes != 10 {
		t.Fatalf("unexpected policy: %+v", p)
	}
}
