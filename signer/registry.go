package signer

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/tidwall/btree"
)

var ErrUnknownSigner = errors.New("unknown signer")

// Entry describes one registered signer. Fingerprint is empty and Err set when
// the signer could not be reached.
type Entry struct {
	Name        string `json:"name" yaml:"name"`
	Kind        Kind   `json:"kind" yaml:"kind"`
	Fingerprint string `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	Err         error  `json:"-" yaml:"-"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Registry keeps named signers ordered by name.
type Registry struct {
	mu      sync.RWMutex
	signers *btree.Map[string, *AnySigner]
}

func NewRegistry() *Registry {
	// ordered so List is deterministic
	return &Registry{signers: btree.NewMap[string, *AnySigner](32)}
}

func (r *Registry) Add(name string, s *AnySigner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.signers.Get(name); ok {
		return errors.Errorf("signer %s already registered", name)
	}
	r.signers.Set(name, s)
	return nil
}

func (r *Registry) Get(name string) (*AnySigner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.signers.Get(name)
	if !ok {
		return nil, errors.Wrap(ErrUnknownSigner, name)
	}
	return s, nil
}

// Remove forgets the signer and returns it. The caller closes it.
func (r *Registry) Remove(name string) (*AnySigner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.signers.Delete(name)
	if !ok {
		return nil, errors.Wrap(ErrUnknownSigner, name)
	}
	return s, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.signers.Len()
}

// List asks every signer for its fingerprint. Signers are queried outside the
// lock since a remote one may take up to its timeout to answer.
func (r *Registry) List(ctx context.Context) []Entry {
	type named struct {
		name   string
		signer *AnySigner
	}
	var snapshot []named
	r.mu.RLock()
	r.signers.Scan(func(name string, s *AnySigner) bool {
		snapshot = append(snapshot, named{name, s})
		return true
	})
	r.mu.RUnlock()

	entries := make([]Entry, 0, len(snapshot))
	for _, n := range snapshot {
		entry := Entry{Name: n.name, Kind: n.signer.Kind()}
		fp, err := n.signer.Fingerprint(ctx)
		if err != nil {
			entry.Err = err
			entry.Error = err.Error()
		} else {
			entry.Fingerprint = fp.String()
		}
		entries = append(entries, entry)
	}
	return entries
}

// Close closes and forgets every signer.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var first error
	r.signers.Scan(func(name string, s *AnySigner) bool {
		if err := s.Close(); err != nil && first == nil {
			first = errors.Wrapf(err, "close %s", name)
		}
		return true
	})
	r.signers = btree.NewMap[string, *AnySigner](32)
	return first
}
