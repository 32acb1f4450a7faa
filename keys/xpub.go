package keys

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pkg/errors"
)

// Fingerprint is the first four bytes of the hash160 of a public key.
type Fingerprint [4]byte

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Uint32 returns the fingerprint as stored in PSET bip32 derivation records.
func (f Fingerprint) Uint32() uint32 {
	return binary.LittleEndian.Uint32(f[:])
}

func FingerprintFromUint32(v uint32) Fingerprint {
	var f Fingerprint
	binary.LittleEndian.PutUint32(f[:], v)
	return f
}

func ParseFingerprint(s string) (Fingerprint, error) {
	var f Fingerprint
	bz, err := hex.DecodeString(s)
	if err != nil || len(bz) != len(f) {
		return f, errors.Errorf("invalid fingerprint %q", s)
	}
	copy(f[:], bz)
	return f, nil
}

// ExtendedPubKey is a neutered bip32 extended key.
type ExtendedPubKey struct {
	key *hdkeychain.ExtendedKey
	pub *btcec.PublicKey
}

// NewExtendedPubKey wraps k, neutering it first when it is private.
func NewExtendedPubKey(k *hdkeychain.ExtendedKey) (*ExtendedPubKey, error) {
	if k == nil {
		return nil, ErrInvalidKey
	}
	if k.IsPrivate() {
		neutered, err := k.Neuter()
		if err != nil {
			return nil, errors.Wrap(err, "neuter")
		}
		k = neutered
	}
	pub, err := k.ECPubKey()
	if err != nil {
		return nil, errors.Wrap(ErrInvalidKey, err.Error())
	}
	return &ExtendedPubKey{key: k, pub: pub}, nil
}

// ParseExtendedPubKey decodes a base58 xpub/tpub. Private keys are rejected.
func ParseExtendedPubKey(s string) (*ExtendedPubKey, error) {
	k, err := hdkeychain.NewKeyFromString(s)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidKey, err.Error())
	}
	if k.IsPrivate() {
		return nil, errors.Wrap(ErrInvalidKey, "expected a public key")
	}
	return NewExtendedPubKey(k)
}

func (x *ExtendedPubKey) String() string {
	return x.key.String()
}

func (x *ExtendedPubKey) PubKey() *btcec.PublicKey {
	return x.pub
}

// Identifier is the hash160 of the serialized compressed public key.
func (x *ExtendedPubKey) Identifier() []byte {
	return btcutil.Hash160(x.pub.SerializeCompressed())
}

func (x *ExtendedPubKey) Fingerprint() Fingerprint {
	var f Fingerprint
	copy(f[:], x.Identifier())
	return f
}

func (x *ExtendedPubKey) Depth() uint8 {
	return x.key.Depth()
}

// IsForNet reports whether the key was serialized with the version bytes of params.
func (x *ExtendedPubKey) IsForNet(params *chaincfg.Params) bool {
	return x.key.IsForNet(params)
}

func (x *ExtendedPubKey) Equal(other *ExtendedPubKey) bool {
	if x == nil || other == nil {
		return x == other
	}
	return x.String() == other.String()
}

// Derive walks a non-hardened path from this key.
func (x *ExtendedPubKey) Derive(path DerivationPath) (*ExtendedPubKey, error) {
	k := x.key
	for _, index := range path.indices {
		if index >= HardenedKeyStart {
			return nil, &DerivationError{Path: path.String(), Err: hdkeychain.ErrDeriveHardFromPublic}
		}
		child, err := k.Derive(index)
		if err != nil {
			return nil, &DerivationError{Path: path.String(), Err: err}
		}
		k = child
	}
	return NewExtendedPubKey(k)
}

// NewMasterKey builds the root private key from a bip32 seed.
func NewMasterKey(seed []byte, params *chaincfg.Params) (*hdkeychain.ExtendedKey, error) {
	master, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, &DerivationError{Path: "m", Err: err}
	}
	return master, nil
}

// DerivePriv walks path from a private key.
func DerivePriv(k *hdkeychain.ExtendedKey, path DerivationPath) (*hdkeychain.ExtendedKey, error) {
	if !k.IsPrivate() {
		return nil, &DerivationError{Path: path.String(), Err: hdkeychain.ErrNotPrivExtKey}
	}
	for _, index := range path.indices {
		child, err := k.Derive(index)
		if err != nil {
			return nil, &DerivationError{Path: path.String(), Err: err}
		}
		k = child
	}
	return k, nil
}

// SamePubKey reports whether serialized matches the compressed encoding of pub.
func SamePubKey(pub *btcec.PublicKey, serialized []byte) bool {
	return bytes.Equal(pub.SerializeCompressed(), serialized)
}
