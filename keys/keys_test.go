package keys_test

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/openweb3-io/liquidsigner/keys"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const (
	abandonMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	abandonSeed     = "5eb00bbddcf069084889a8ab9155568165f5c453ccb85e70811aaed6f6da5fc19a5ac40b389cd370d086206dec8aa6c43daea6690f20ad3d8d48b2d2ce9e38e4"
	abandonTpub     = "tpubDC8msFGeGuwnKG9Upg7DM2b4DaRqg3CUZa5g8v2SRQ6K4NSkxUgd7HsL2XVWbVm39yBA4LAxysQAm397zwQSQoQgewGiYZqrA9DsP4zbQ1M"
	abandonXpub     = "xpub6Bm9M1SxZdzL3TxdNV8897FgtTLBgehR1wVNnMyJ5VLRK5n3tFqXxrCVnVQj4zooN4eFSkf6Sma84reWc5ZCXMxPbLXQs3BcaBdTd4YQa3B"
	abandonSlip77   = "9c8e4f05c7711a98c838be228bcb84924d4570ca53f35fa1c793e58841d47023"
)

func TestParsePath(t *testing.T) {
	vectors := []struct {
		in      string
		indices []uint32
		out     string
	}{
		{"", nil, ""},
		{"m", nil, ""},
		{"m/84'/1'/0'", []uint32{keys.Hardened(84), keys.Hardened(1), keys.Hardened(0)}, "84h/1h/0h"},
		{"84h/1h/0h", []uint32{keys.Hardened(84), keys.Hardened(1), keys.Hardened(0)}, "84h/1h/0h"},
		{"M/49H/1/7", []uint32{keys.Hardened(49), 1, 7}, "49h/1/7"},
		{"0/1", []uint32{0, 1}, "0/1"},
	}
	for _, v := range vectors {
		p, err := keys.ParsePath(v.in)
		require.NoError(t, err, v.in)
		require.Equal(t, len(v.indices), p.Len(), v.in)
		if len(v.indices) > 0 {
			require.Equal(t, v.indices, p.Indices(), v.in)
		}
		require.Equal(t, v.out, p.String(), v.in)
	}
}

func TestParsePathInvalid(t *testing.T) {
	for _, in := range []string{"84'//0", "x/1", "m/2147483648", "84''", "-1", "m84"} {
		_, err := keys.ParsePath(in)
		require.Error(t, err, in)
		var derr *keys.DerivationError
		require.True(t, errors.As(err, &derr), in)
		require.ErrorIs(t, err, keys.ErrInvalidPath, in)
	}
}

func TestPathIsImmutable(t *testing.T) {
	base := keys.MustParsePath("84h/1h")
	a := base.Child(keys.Hardened(0))
	b := base.Child(keys.Hardened(1))
	require.Equal(t, "84h/1h", base.String())
	require.Equal(t, "84h/1h/0h", a.String())
	require.Equal(t, "84h/1h/1h", b.String())

	indices := a.Indices()
	indices[0] = 0
	require.Equal(t, "84h/1h/0h", a.String())

	require.True(t, a.Equal(keys.MustParsePath("m/84'/1'/0'")))
	require.False(t, a.Equal(b))
	require.Equal(t, "84h/1h/0/5", base.Extend(keys.NewPath(0, 5)).String())
	require.True(t, keys.Master().IsMaster())
}

func TestSeedFromMnemonic(t *testing.T) {
	seed, err := keys.SeedFromMnemonic(abandonMnemonic, "")
	require.NoError(t, err)
	require.Equal(t, abandonSeed, hex.EncodeToString(seed))

	_, err = keys.SeedFromMnemonic("abandon abandon abandon", "")
	require.ErrorIs(t, err, keys.ErrInvalidMnemonic)
}

func TestNewMnemonic(t *testing.T) {
	words, err := keys.NewMnemonic(128)
	require.NoError(t, err)
	_, err = keys.SeedFromMnemonic(words, "")
	require.NoError(t, err)

	other, err := keys.NewMnemonic(256)
	require.NoError(t, err)
	require.NotEqual(t, words, other)

	_, err = keys.NewMnemonic(100)
	require.Error(t, err)
}

func masterKey(t *testing.T, params *chaincfg.Params) *hdkeychain.ExtendedKey {
	seed, err := hex.DecodeString(abandonSeed)
	require.NoError(t, err)
	master, err := keys.NewMasterKey(seed, params)
	require.NoError(t, err)
	return master
}

func TestDeriveAccountXpub(t *testing.T) {
	master := masterKey(t, &chaincfg.TestNet3Params)

	root, err := keys.NewExtendedPubKey(master)
	require.NoError(t, err)
	require.Equal(t, "73c5da0a", root.Fingerprint().String())
	require.Equal(t, "73c5da0a03d2d0803b731f04242bb40ced2f8bbc", hex.EncodeToString(root.Identifier()))

	account, err := keys.DerivePriv(master, keys.MustParsePath("84h/1h/0h"))
	require.NoError(t, err)
	xpub, err := keys.NewExtendedPubKey(account)
	require.NoError(t, err)
	require.Equal(t, abandonTpub, xpub.String())
	require.Equal(t, uint8(3), xpub.Depth())
	require.True(t, xpub.IsForNet(&chaincfg.TestNet3Params))

	parsed, err := keys.ParseExtendedPubKey(abandonTpub)
	require.NoError(t, err)
	require.True(t, parsed.Equal(xpub))

	mainnet := masterKey(t, &chaincfg.MainNetParams)
	account, err = keys.DerivePriv(mainnet, keys.MustParsePath("84h/1h/0h"))
	require.NoError(t, err)
	xpub, err = keys.NewExtendedPubKey(account)
	require.NoError(t, err)
	require.Equal(t, abandonXpub, xpub.String())
}

func TestPublicDerivation(t *testing.T) {
	master := masterKey(t, &chaincfg.TestNet3Params)
	account, err := keys.DerivePriv(master, keys.MustParsePath("84h/1h/0h"))
	require.NoError(t, err)
	xpub, err := keys.NewExtendedPubKey(account)
	require.NoError(t, err)

	fromPublic, err := xpub.Derive(keys.NewPath(0, 3))
	require.NoError(t, err)
	full, err := keys.DerivePriv(master, keys.MustParsePath("84h/1h/0h/0/3"))
	require.NoError(t, err)
	fromPrivate, err := keys.NewExtendedPubKey(full)
	require.NoError(t, err)
	require.True(t, fromPublic.Equal(fromPrivate))

	_, err = xpub.Derive(keys.MustParsePath("0h"))
	require.ErrorIs(t, err, hdkeychain.ErrDeriveHardFromPublic)

	public, err := hdkeychain.NewKeyFromString(abandonTpub)
	require.NoError(t, err)
	_, err = keys.DerivePriv(public, keys.NewPath(0))
	require.ErrorIs(t, err, hdkeychain.ErrNotPrivExtKey)

	_, err = keys.ParseExtendedPubKey(master.String())
	require.ErrorIs(t, err, keys.ErrInvalidKey)
}

func TestFingerprint(t *testing.T) {
	f, err := keys.ParseFingerprint("73c5da0a")
	require.NoError(t, err)
	require.Equal(t, f, keys.FingerprintFromUint32(f.Uint32()))
	require.Equal(t, "73c5da0a", f.String())

	_, err = keys.ParseFingerprint("73c5da")
	require.Error(t, err)
}

func TestMasterBlindingKey(t *testing.T) {
	seed, err := hex.DecodeString(abandonSeed)
	require.NoError(t, err)
	k, err := keys.NewMasterBlindingKey(seed)
	require.NoError(t, err)
	require.Equal(t, abandonSlip77, k.String())

	again, err := keys.NewMasterBlindingKey(seed)
	require.NoError(t, err)
	require.Equal(t, k, again)

	parsed, err := keys.ParseMasterBlindingKey(abandonSlip77)
	require.NoError(t, err)
	require.Equal(t, k, parsed)

	script, _ := hex.DecodeString("0014" + "c0cebcd6c3d3ca8c75dc5ec62ebe55330ef910e2")
	priv, pub, err := k.DeriveBlindingKey(script)
	require.NoError(t, err)
	require.Equal(t, priv.PubKey().SerializeCompressed(), pub.SerializeCompressed())

	_, err = keys.ParseMasterBlindingKey("zz")
	require.Error(t, err)
}
