package templatesync

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SyncPolicy bounds the retry loop and the name allocator. Values come from
// defaults, optionally overridden by a YAML policy file.
type SyncPolicy struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	Backoff       time.Duration `yaml:"backoff"`
	MaxNameLength int           `yaml:"max_name_length"`
	MaxNameProbes int           `yaml:"max_name_probes"`
}

func DefaultSyncPolicy() SyncPolicy {
	return SyncPolicy{
		MaxAttempts:   3,
		Backoff:       50 * time.Millisecond,
		MaxNameLength: 64,
		MaxNameProbes: 50,
	}
}

// UnmarshalYAML accepts backoff as a duration string ("200ms", "1s").
func (p *SyncPolicy) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MaxAttempts   *int    `yaml:"max_attempts"`
		Backoff       *string `yaml:"backoff"`
		MaxNameLength *int    `yaml:"max_name_length"`
		MaxNameProbes *int    `yaml:"max_name_probes"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.MaxAttempts != nil {
		p.MaxAttempts = *raw.MaxAttempts
	}
	if raw.Backoff != nil {
		d, err := time.ParseDuration(*raw.Backoff)
		if err != nil {
			return fmt.Errorf("backoff: %w", err)
		}
		p.Backoff = d
	}
	if raw.MaxNameLength != nil {
		p.MaxNameLength = *raw.MaxNameLength
	}
	if raw.MaxNameProbes != nil {
		p.MaxNameProbes = *raw.MaxNameProbes
	}
	return nil
}

// LoadSyncPolicy reads overrides from path. A missing file is not an error;
// the defaults apply.
func LoadSyncPolicy(path string) (SyncPolicy, error) {
	policy := DefaultSyncPolicy()
	if path == "" {
		return policy, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return policy, nil
		}
		return policy, fmt.Errorf("read sync policy: %w", err)
	}
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return policy, fmt.Errorf("parse sync policy: %w", err)
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.MaxNameLength < 8 {
		policy.MaxNameLength = 8
	}
	if policy.MaxNameProbes < 1 {
		policy.MaxNameProbes = 1
	}
	return policy, nil
}
