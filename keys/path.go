package keys

import (
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/pkg/errors"
)

// HardenedKeyStart is the index of the first hardened child.
const HardenedKeyStart = hdkeychain.HardenedKeyStart

// Hardened returns the hardened form of index i.
func Hardened(i uint32) uint32 {
	return i + HardenedKeyStart
}

// DerivationPath is an immutable sequence of bip32 child indices.
// The zero value is the master path.
type DerivationPath struct {
	indices []uint32
}

// Master returns the empty path.
func Master() DerivationPath {
	return DerivationPath{}
}

func NewPath(indices ...uint32) DerivationPath {
	return DerivationPath{indices: append([]uint32(nil), indices...)}
}

// ParsePath parses paths like "m/84'/1'/0'", "84h/1h/0h" or "m".
// An empty string is the master path.
func ParsePath(s string) (DerivationPath, error) {
	raw := strings.TrimSpace(s)
	switch {
	case raw == "m", raw == "M":
		raw = ""
	case strings.HasPrefix(raw, "m/"), strings.HasPrefix(raw, "M/"):
		raw = raw[2:]
	}
	if raw == "" {
		return Master(), nil
	}

	parts := strings.Split(raw, "/")
	indices := make([]uint32, 0, len(parts))
	for _, part := range parts {
		index, err := parseComponent(part)
		if err != nil {
			return DerivationPath{}, &DerivationError{Path: s, Err: err}
		}
		indices = append(indices, index)
	}
	return DerivationPath{indices: indices}, nil
}

func MustParsePath(s string) DerivationPath {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func parseComponent(component string) (uint32, error) {
	hardened := false
	for _, marker := range []string{"'", "h", "H"} {
		if strings.HasSuffix(component, marker) {
			component = strings.TrimSuffix(component, marker)
			hardened = true
			break
		}
	}
	if component == "" {
		return 0, errors.Wrap(ErrInvalidPath, "empty component")
	}
	value, err := strconv.ParseUint(component, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidPath, "invalid index %q", component)
	}
	if value >= uint64(HardenedKeyStart) {
		return 0, errors.Wrapf(ErrInvalidPath, "index %d out of range", value)
	}
	if hardened {
		return Hardened(uint32(value)), nil
	}
	return uint32(value), nil
}

// Indices returns a copy of the child indices.
func (p DerivationPath) Indices() []uint32 {
	return append([]uint32(nil), p.indices...)
}

func (p DerivationPath) IsMaster() bool {
	return len(p.indices) == 0
}

func (p DerivationPath) Len() int {
	return len(p.indices)
}

// Child returns a new path with i appended.
func (p DerivationPath) Child(i uint32) DerivationPath {
	indices := make([]uint32, len(p.indices), len(p.indices)+1)
	copy(indices, p.indices)
	return DerivationPath{indices: append(indices, i)}
}

// Extend returns a new path with other appended.
func (p DerivationPath) Extend(other DerivationPath) DerivationPath {
	indices := make([]uint32, 0, len(p.indices)+len(other.indices))
	indices = append(indices, p.indices...)
	return DerivationPath{indices: append(indices, other.indices...)}
}

func (p DerivationPath) Equal(other DerivationPath) bool {
	if len(p.indices) != len(other.indices) {
		return false
	}
	for i := range p.indices {
		if p.indices[i] != other.indices[i] {
			return false
		}
	}
	return true
}

// String renders the path in descriptor form, e.g. "84h/1h/0h".
// The master path renders as an empty string.
func (p DerivationPath) String() string {
	parts := make([]string, len(p.indices))
	for i, index := range p.indices {
		if index >= HardenedKeyStart {
			parts[i] = strconv.FormatUint(uint64(index-HardenedKeyStart), 10) + "h"
		} else {
			parts[i] = strconv.FormatUint(uint64(index), 10)
		}
	}
	return strings.Join(parts, "/")
}
