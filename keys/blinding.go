package keys

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements/slip77"
)

// MasterBlindingKey is the SLIP-0077 master key from which every output
// blinding key of a wallet is derived.
type MasterBlindingKey [32]byte

func NewMasterBlindingKey(seed []byte) (MasterBlindingKey, error) {
	var k MasterBlindingKey
	s, err := slip77.FromSeed(seed)
	if err != nil {
		return k, errors.Wrap(err, "slip77")
	}
	if len(s.MasterKey) != len(k) {
		return k, errors.Errorf("slip77: unexpected master key length %d", len(s.MasterKey))
	}
	copy(k[:], s.MasterKey)
	return k, nil
}

func ParseMasterBlindingKey(s string) (MasterBlindingKey, error) {
	var k MasterBlindingKey
	bz, err := hex.DecodeString(s)
	if err != nil || len(bz) != len(k) {
		return k, errors.Errorf("invalid master blinding key %q", s)
	}
	copy(k[:], bz)
	return k, nil
}

func (k MasterBlindingKey) String() string {
	return hex.EncodeToString(k[:])
}

// DeriveBlindingKey returns the blinding key pair for an output script.
func (k MasterBlindingKey) DeriveBlindingKey(script []byte) (*btcec.PrivateKey, *btcec.PublicKey, error) {
	s, err := slip77.FromMasterKey(k[:])
	if err != nil {
		return nil, nil, errors.Wrap(err, "slip77")
	}
	return s.DeriveKey(script)
}
