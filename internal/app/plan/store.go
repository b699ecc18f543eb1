package plan

import (
	"fmt"
	"sync/atomic"
)

// Store holds the active plan behind an atomic pointer. Readers take a
// snapshot per operation so an in-flight settlement never sees a half-applied
// plan; writers swap the whole config at once.
type Store struct {
	current atomic.Pointer[Config]
	path    string
}

// NewStore creates a holder for an already validated config. The path, when
// non-empty, is where Reload reads from.
func NewStore(cfg Config, path string) *Store {
	s := &Store{path: path}
	s.current.Store(&cfg)
	return s
}

// Current returns a copy of the active plan.
func (s *Store) Current() Config {
	return *s.current.Load()
}

// Swap validates and activates a new plan.
func (s *Store) Swap(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("swap plan: %w", err)
	}
	s.current.Store(&cfg)
	return nil
}

// Reload re-reads the plan from its source file and swaps it in. A store
// created without a path keeps its current plan.
func (s *Store) Reload() (Config, error) {
	if s.path == "" {
		return s.Current(), nil
	}
	cfg, err := Load(s.path)
	if err != nil {
		return Config{}, err
	}
	s.current.Store(&cfg)
	return cfg, nil
}
