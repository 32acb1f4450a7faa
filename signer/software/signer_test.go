package software_test

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"

	"github.com/openweb3-io/liquidsigner/keys"
	"github.com/openweb3-io/liquidsigner/signer/software"
	"github.com/openweb3-io/liquidsigner/testutil"
	"github.com/openweb3-io/liquidsigner/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"
	"github.com/vulpemventures/go-elements/psetv2"
	"github.com/vulpemventures/go-elements/transaction"
)

var accountPath = keys.MustParsePath("84h/1h/0h")

type SoftwareSignerTestSuite struct {
	suite.Suite
	ctx     context.Context
	signer  *software.Signer
	account *keys.ExtendedPubKey
}

func (s *SoftwareSignerTestSuite) SetupTest() {
	require := s.Require()
	s.ctx = context.Background()
	signer, err := software.FromMnemonic(testutil.AbandonMnemonic, "", types.Testnet)
	require.NoError(err)
	s.signer = signer
	s.account, err = signer.DeriveXpub(s.ctx, accountPath)
	require.NoError(err)
}

func TestSoftwareSigner(t *testing.T) {
	suite.Run(t, new(SoftwareSignerTestSuite))
}

func (s *SoftwareSignerTestSuite) ourInput(index uint32, amount uint64) testutil.InputSpec {
	return testutil.AccountInput(s.account, s.signer.Fingerprint(), accountPath, 0, index, amount, false)
}

func (s *SoftwareSignerTestSuite) encode(p *psetv2.Pset) string {
	b64, err := p.ToBase64()
	s.Require().NoError(err)
	return b64
}

func (s *SoftwareSignerTestSuite) TestDeriveXpubIsDeterministic() {
	require := s.Require()
	require.Equal("73c5da0a", s.signer.Fingerprint().String())
	require.Equal("tpubDC8msFGeGuwnKG9Upg7DM2b4DaRqg3CUZa5g8v2SRQ6K4NSkxUgd7HsL2XVWbVm39yBA4LAxysQAm397zwQSQoQgewGiYZqrA9DsP4zbQ1M", s.account.String())

	again, err := s.signer.DeriveXpub(s.ctx, accountPath)
	require.NoError(err)
	require.True(again.Equal(s.account))

	other, err := software.FromMnemonic(testutil.AbandonMnemonic, "", types.Testnet)
	require.NoError(err)
	fromOther, err := other.DeriveXpub(s.ctx, accountPath)
	require.NoError(err)
	require.True(fromOther.Equal(s.account))

	root, err := s.signer.DeriveXpub(s.ctx, keys.Master())
	require.NoError(err)
	require.Equal(s.signer.Fingerprint(), root.Fingerprint())
}

func (s *SoftwareSignerTestSuite) TestPassphraseChangesRoot() {
	require := s.Require()
	other, err := software.FromMnemonic(testutil.AbandonMnemonic, "TREZOR", types.Testnet)
	require.NoError(err)
	require.NotEqual(s.signer.Fingerprint(), other.Fingerprint())
}

func (s *SoftwareSignerTestSuite) TestSlip77MasterBlindingKey() {
	require := s.Require()
	k, err := s.signer.Slip77MasterBlindingKey(s.ctx)
	require.NoError(err)
	require.Equal("9c8e4f05c7711a98c838be228bcb84924d4570ca53f35fa1c793e58841d47023", k.String())
}

func (s *SoftwareSignerTestSuite) TestInvalidMnemonic() {
	_, err := software.FromMnemonic("abandon about", "", types.Testnet)
	s.Require().ErrorIs(err, keys.ErrInvalidMnemonic)
}

func (s *SoftwareSignerTestSuite) TestGenerate() {
	require := s.Require()
	signer, err := software.Generate(types.Regtest, 256)
	require.NoError(err)
	restored, err := software.FromMnemonic(signer.Mnemonic(), "", types.Regtest)
	require.NoError(err)
	require.Equal(signer.Fingerprint(), restored.Fingerprint())
	require.Equal(types.Regtest, restored.Network())
}

func (s *SoftwareSignerTestSuite) TestSignSingleInput() {
	require := s.Require()
	in := s.ourInput(0, 100000)
	p := testutil.NewPset(types.Testnet, []testutil.InputSpec{in}, in.Script)

	signed, err := s.signer.Sign(s.ctx, p)
	require.NoError(err)
	require.EqualValues(1, signed)

	child, err := s.account.Derive(keys.NewPath(0, 0))
	require.NoError(err)
	ok, err := testutil.VerifyPartialSig(p, 0, child.PubKey())
	require.NoError(err)
	require.True(ok)
}

func (s *SoftwareSignerTestSuite) TestSignPartial() {
	require := s.Require()
	inputs := []testutil.InputSpec{
		s.ourInput(0, 1000),
		testutil.ForeignInput(2000),
		s.ourInput(1, 3000),
	}
	p := testutil.NewPset(types.Testnet, inputs, inputs[0].Script)

	signed, err := s.signer.Sign(s.ctx, p)
	require.NoError(err)
	require.EqualValues(2, signed)
	require.Len(p.Inputs[0].PartialSigs, 1)
	require.Empty(p.Inputs[1].PartialSigs)
	require.Len(p.Inputs[2].PartialSigs, 1)
}

func (s *SoftwareSignerTestSuite) TestSignTwiceIsNoop() {
	require := s.Require()
	inputs := []testutil.InputSpec{s.ourInput(0, 1000), s.ourInput(5, 1000)}
	p := testutil.NewPset(types.Testnet, inputs, inputs[0].Script)

	signed, err := s.signer.Sign(s.ctx, p)
	require.NoError(err)
	require.EqualValues(2, signed)
	before := s.encode(p)

	signed, err = s.signer.Sign(s.ctx, p)
	require.NoError(err)
	require.EqualValues(0, signed)
	require.Equal(before, s.encode(p))
}

func (s *SoftwareSignerTestSuite) TestSignWrappedInput() {
	require := s.Require()
	in := testutil.AccountInput(s.account, s.signer.Fingerprint(), accountPath, 1, 2, 5000, true)
	p := testutil.NewPset(types.Testnet, []testutil.InputSpec{in}, in.Script)

	signed, err := s.signer.Sign(s.ctx, p)
	require.NoError(err)
	require.EqualValues(1, signed)
	require.Equal(in.RedeemScript, p.Inputs[0].RedeemScript)

	child, err := s.account.Derive(keys.NewPath(1, 2))
	require.NoError(err)
	ok, err := testutil.VerifyPartialSig(p, 0, child.PubKey())
	require.NoError(err)
	require.True(ok)
}

func (s *SoftwareSignerTestSuite) TestSignSkipsOtherRoots() {
	require := s.Require()
	in := s.ourInput(0, 1000)
	in.Fingerprint = keys.Fingerprint{0xde, 0xad, 0xbe, 0xef}
	p := testutil.NewPset(types.Testnet, []testutil.InputSpec{in}, in.Script)
	before := s.encode(p)

	signed, err := s.signer.Sign(s.ctx, p)
	require.NoError(err)
	require.EqualValues(0, signed)
	require.Equal(before, s.encode(p))
}

func (s *SoftwareSignerTestSuite) TestSignMissingUtxoLeavesPsetUntouched() {
	require := s.Require()
	inputs := []testutil.InputSpec{s.ourInput(0, 1000), s.ourInput(1, 1000)}
	p := testutil.NewPset(types.Testnet, inputs, inputs[0].Script)
	p.Inputs[1].WitnessUtxo = nil

	signed, err := s.signer.Sign(s.ctx, p)
	require.ErrorIs(err, software.ErrMissingUtxo)
	require.EqualValues(0, signed)
	require.Zero(testutil.CountPartialSigs(p))

	var signErr *software.SignError
	require.True(errors.As(err, &signErr))
	require.Equal(1, signErr.Input)
}

func (s *SoftwareSignerTestSuite) TestSignRejectsForeignPreviousTx() {
	require := s.Require()
	inputs := []testutil.InputSpec{s.ourInput(0, 1000), s.ourInput(1, 1000)}
	p := testutil.NewPset(types.Testnet, inputs, inputs[0].Script)

	// the full previous tx carries our output but hashes to another txid
	prevTx := transaction.NewTx(2)
	for i := uint32(0); i <= p.Inputs[1].PreviousTxIndex; i++ {
		prevTx.AddOutput(p.Inputs[1].WitnessUtxo)
	}
	p.Inputs[1].NonWitnessUtxo = prevTx
	p.Inputs[1].WitnessUtxo = nil
	before := s.encode(p)

	signed, err := s.signer.Sign(s.ctx, p)
	require.ErrorIs(err, software.ErrUtxoMismatch)
	require.EqualValues(0, signed)
	require.Equal(before, s.encode(p))

	var signErr *software.SignError
	require.True(errors.As(err, &signErr))
	require.Equal(1, signErr.Input)
}

func (s *SoftwareSignerTestSuite) TestSignFailingMidwayCountsAttached() {
	require := s.Require()
	inputs := []testutil.InputSpec{s.ourInput(0, 1000), s.ourInput(1, 1000)}
	p := testutil.NewPset(types.Testnet, inputs, inputs[0].Script)

	// an output still waiting to be blinded forbids SIGHASH_ALL signatures,
	// so only input 0, signing with SIGHASH_NONE, can be attached
	blinding, err := btcec.NewPrivateKey()
	require.NoError(err)
	p.Outputs[0].BlindingPubkey = blinding.PubKey().SerializeCompressed()
	p.Outputs[0].BlinderIndex = 0
	p.Inputs[0].SigHashType = txscript.SigHashNone
	p.Inputs[1].SigHashType = txscript.SigHashAll

	signed, err := s.signer.Sign(s.ctx, p)
	require.Error(err)
	require.EqualValues(1, signed)
	require.Equal(1, testutil.CountPartialSigs(p))
	require.Empty(p.Inputs[1].PartialSigs)

	var signErr *software.SignError
	require.True(errors.As(err, &signErr))
	require.Equal(1, signErr.Input)

	child, err := s.account.Derive(keys.NewPath(0, 0))
	require.NoError(err)
	ok, err := testutil.VerifyPartialSig(p, 0, child.PubKey())
	require.NoError(err)
	require.True(ok)
}

func (s *SoftwareSignerTestSuite) TestSignScriptMismatch() {
	require := s.Require()
	in := s.ourInput(0, 1000)
	in.Script = testutil.ForeignInput(1000).Script
	p := testutil.NewPset(types.Testnet, []testutil.InputSpec{s.ourInput(3, 1000), in}, in.Script)

	signed, err := s.signer.Sign(s.ctx, p)
	require.ErrorIs(err, software.ErrScriptMismatch)
	require.EqualValues(0, signed)
	require.Zero(testutil.CountPartialSigs(p))
}

func (s *SoftwareSignerTestSuite) TestSignNilPset() {
	_, err := s.signer.Sign(s.ctx, nil)
	s.Require().ErrorIs(err, software.ErrMalformedPset)
}

func (s *SoftwareSignerTestSuite) TestClose() {
	require := s.Require()
	s.signer.Close()
	require.Empty(s.signer.Mnemonic())
	_, err := s.signer.DeriveXpub(s.ctx, accountPath)
	require.ErrorIs(err, software.ErrClosed)
	_, err = s.signer.Slip77MasterBlindingKey(s.ctx)
	require.ErrorIs(err, software.ErrClosed)
	_, err = s.signer.Sign(s.ctx, &psetv2.Pset{})
	require.ErrorIs(err, software.ErrClosed)
}
