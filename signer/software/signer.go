package software

import (
	"bytes"
	"context"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/txscript"
	"github.com/openweb3-io/liquidsigner/keys"
	"github.com/openweb3-io/liquidsigner/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vulpemventures/go-elements/psetv2"
	"github.com/vulpemventures/go-elements/transaction"
)

// Signer keeps the root secret in memory. It holds no mutable state after
// construction and may be used from several goroutines, but a pset shared
// between callers must be serialized by them.
type Signer struct {
	net         types.Network
	seed        []byte
	mnemonic    string
	master      *hdkeychain.ExtendedKey
	fingerprint keys.Fingerprint
	blinding    keys.MasterBlindingKey
}

// New builds a signer from a copy of seed. The caller keeps ownership of
// seed and may wipe it once New returns.
func New(seed []byte, net types.Network) (*Signer, error) {
	return fromOwnedSeed(append([]byte(nil), seed...), net)
}

// fromOwnedSeed takes ownership of seed and wipes it when construction fails.
func fromOwnedSeed(seed []byte, net types.Network) (s *Signer, err error) {
	defer func() {
		if err != nil {
			wipe(seed)
		}
	}()
	if !net.Valid() {
		return nil, errors.Errorf("invalid network: %s", net)
	}
	master, err := keys.NewMasterKey(seed, net.KeyParams())
	if err != nil {
		return nil, err
	}
	root, err := keys.NewExtendedPubKey(master)
	if err != nil {
		return nil, err
	}
	blinding, err := keys.NewMasterBlindingKey(seed)
	if err != nil {
		return nil, err
	}
	return &Signer{
		net:         net,
		seed:        seed,
		master:      master,
		fingerprint: root.Fingerprint(),
		blinding:    blinding,
	}, nil
}

func FromMnemonic(mnemonic, passphrase string, net types.Network) (*Signer, error) {
	seed, err := keys.SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	s, err := fromOwnedSeed(seed, net)
	if err != nil {
		return nil, err
	}
	s.mnemonic = mnemonic
	return s, nil
}

// Generate creates a signer from fresh recovery words.
func Generate(net types.Network, bits int) (*Signer, error) {
	mnemonic, err := keys.NewMnemonic(bits)
	if err != nil {
		return nil, err
	}
	return FromMnemonic(mnemonic, "", net)
}

// Mnemonic returns the recovery words, empty when built from a raw seed.
func (s *Signer) Mnemonic() string {
	return s.mnemonic
}

func (s *Signer) Network() types.Network {
	return s.net
}

func (s *Signer) Fingerprint() keys.Fingerprint {
	return s.fingerprint
}

func (s *Signer) DeriveXpub(_ context.Context, path keys.DerivationPath) (*keys.ExtendedPubKey, error) {
	if s.master == nil {
		return nil, ErrClosed
	}
	derived, err := keys.DerivePriv(s.master, path)
	if err != nil {
		return nil, err
	}
	return keys.NewExtendedPubKey(derived)
}

func (s *Signer) Slip77MasterBlindingKey(_ context.Context) (keys.MasterBlindingKey, error) {
	if s.master == nil {
		return keys.MasterBlindingKey{}, ErrClosed
	}
	return s.blinding, nil
}

type pendingSig struct {
	input        int
	sig          []byte
	pubKey       []byte
	redeemScript []byte
}

// Sign attaches a signature to every input spending a key derived from the
// root secret and returns how many were attached. Inputs belonging to other
// keys, or already carrying our signature, are left untouched.
//
// All signatures are computed before the pset is modified, so a malformed
// input fails the call with the pset unchanged.
func (s *Signer) Sign(_ context.Context, p *psetv2.Pset) (uint32, error) {
	if s.master == nil {
		return 0, ErrClosed
	}
	if p == nil {
		return 0, &SignError{Input: -1, Err: ErrMalformedPset}
	}
	unsignedTx, err := p.UnsignedTx()
	if err != nil {
		return 0, &SignError{Input: -1, Err: errors.Wrap(ErrMalformedPset, err.Error())}
	}

	pending := make([]pendingSig, 0, len(p.Inputs))
	for i := range p.Inputs {
		sig, err := s.signInput(unsignedTx, &p.Inputs[i], i)
		if err != nil {
			return 0, err
		}
		if sig != nil {
			pending = append(pending, *sig)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	signer, err := psetv2.NewSigner(p)
	if err != nil {
		return 0, &SignError{Input: -1, Err: errors.Wrap(ErrMalformedPset, err.Error())}
	}
	var signed uint32
	for _, ps := range pending {
		if err := signer.SignInput(ps.input, ps.sig, ps.pubKey, ps.redeemScript, nil); err != nil {
			return signed, &SignError{Input: ps.input, Err: err}
		}
		signed++
	}
	logrus.WithFields(logrus.Fields{
		"fingerprint": s.fingerprint.String(),
		"inputs":      len(p.Inputs),
		"signed":      signed,
	}).Debug("signed pset")
	return signed, nil
}

func (s *Signer) signInput(tx *transaction.Transaction, input *psetv2.Input, i int) (*pendingSig, error) {
	log := logrus.WithFields(logrus.Fields{
		"fingerprint": s.fingerprint.String(),
		"input":       i,
	})
	if len(input.FinalScriptWitness) > 0 || len(input.FinalScriptSig) > 0 {
		log.Debug("input already finalized")
		return nil, nil
	}

	priv, err := s.keyForInput(input)
	if err != nil {
		return nil, &SignError{Input: i, Err: err}
	}
	if priv == nil {
		log.Debug("no matching key for input")
		return nil, nil
	}
	pubKey := priv.PubKey().SerializeCompressed()
	for _, ps := range input.PartialSigs {
		if bytes.Equal(ps.PubKey, pubKey) {
			log.Debug("input already signed")
			return nil, nil
		}
	}

	prevout, err := previousOutput(input)
	if err != nil {
		return nil, &SignError{Input: i, Err: err}
	}
	scriptCode, redeemScript, err := scriptCodeFor(prevout.Script, input.RedeemScript, pubKey)
	if err != nil {
		return nil, &SignError{Input: i, Err: err}
	}

	sighashType := input.SigHashType
	if sighashType == 0 {
		sighashType = txscript.SigHashAll
	}
	hash := tx.HashForWitnessV0(i, scriptCode, prevout.Value, sighashType)
	sig := ecdsa.Sign(priv, hash[:])

	return &pendingSig{
		input:        i,
		sig:          append(sig.Serialize(), byte(sighashType)),
		pubKey:       pubKey,
		redeemScript: redeemScript,
	}, nil
}

// keyForInput returns the private key of the first bip32 derivation record
// rooted at our fingerprint, or nil when the input is not ours.
func (s *Signer) keyForInput(input *psetv2.Input) (*btcec.PrivateKey, error) {
	for _, d := range input.Bip32Derivation {
		if keys.FingerprintFromUint32(d.MasterKeyFingerprint) != s.fingerprint {
			continue
		}
		derived, err := keys.DerivePriv(s.master, keys.NewPath(d.Bip32Path...))
		if err != nil {
			return nil, err
		}
		priv, err := derived.ECPrivKey()
		if err != nil {
			return nil, errors.Wrap(err, "private key")
		}
		if !keys.SamePubKey(priv.PubKey(), d.PubKey) {
			// same fingerprint, different root
			continue
		}
		return priv, nil
	}
	return nil, nil
}

// previousOutput prefers the witness utxo. A full previous transaction is
// only trusted when it hashes to the outpoint the input spends.
func previousOutput(input *psetv2.Input) (*transaction.TxOutput, error) {
	if input.WitnessUtxo != nil {
		return input.WitnessUtxo, nil
	}
	prevTx := input.NonWitnessUtxo
	if prevTx == nil || int(input.PreviousTxIndex) >= len(prevTx.Outputs) {
		return nil, ErrMissingUtxo
	}
	txHash := prevTx.TxHash()
	if !bytes.Equal(txHash[:], input.PreviousTxid) {
		return nil, ErrUtxoMismatch
	}
	return prevTx.Outputs[input.PreviousTxIndex], nil
}

// scriptCodeFor returns the bip143 script code for spending script with
// pubKey, and the redeem script to attach for wrapped spends.
func scriptCodeFor(script, redeemScript, pubKey []byte) ([]byte, []byte, error) {
	scriptCode, err := keys.P2PKHScript(btcutil.Hash160(pubKey))
	if err != nil {
		return nil, nil, err
	}

	switch {
	case txscript.IsPayToWitnessPubKeyHash(script):
		if !keys.IsP2WPKHFor(script, pubKey) {
			return nil, nil, ErrScriptMismatch
		}
		return scriptCode, nil, nil

	case txscript.IsPayToScriptHash(script):
		if len(redeemScript) == 0 {
			redeemScript, err = keys.P2WPKHScript(pubKey)
			if err != nil {
				return nil, nil, err
			}
		}
		if !keys.IsP2WPKHFor(redeemScript, pubKey) {
			return nil, nil, ErrUnsupportedScript
		}
		expected, err := keys.P2SHScript(redeemScript)
		if err != nil {
			return nil, nil, err
		}
		if !bytes.Equal(expected, script) {
			return nil, nil, ErrScriptMismatch
		}
		return scriptCode, redeemScript, nil
	}
	return nil, nil, ErrUnsupportedScript
}

// Close drops the root secret. The signer is unusable afterwards.
func (s *Signer) Close() {
	wipe(s.seed)
	s.seed = nil
	s.mnemonic = ""
	s.master = nil
	s.blinding = keys.MasterBlindingKey{}
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
