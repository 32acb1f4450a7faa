package testutil

import (
	"encoding/hex"
	"strings"
)

// AbandonMnemonic is the well known all-zero-entropy bip39 test vector.
const AbandonMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func FromHex(s string) []byte {
	bz, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		panic(err)
	}
	return bz
}
