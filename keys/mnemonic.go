package keys

import (
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
)

// NewMnemonic returns fresh recovery words for bits of entropy (128 or 256).
func NewMnemonic(bits int) (string, error) {
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", errors.Wrap(err, "entropy")
	}
	return bip39.NewMnemonic(entropy)
}

// SeedFromMnemonic validates the words and stretches them into a bip32 seed.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidMnemonic, err.Error())
	}
	return seed, nil
}
