package testutil

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/openweb3-io/liquidsigner/keys"
	"github.com/openweb3-io/liquidsigner/types"
	"github.com/vulpemventures/go-elements/elementsutil"
	"github.com/vulpemventures/go-elements/psetv2"
	"github.com/vulpemventures/go-elements/transaction"
)

// Fee paid by every fixture transaction
const Fee = 500

// InputSpec describes one explicit (unblinded) input of a fixture pset.
type InputSpec struct {
	Script       []byte
	Amount       uint64
	RedeemScript []byte

	// bip32 derivation record, omitted when PubKey is nil
	PubKey      []byte
	Fingerprint keys.Fingerprint
	Path        keys.DerivationPath
}

// AccountInput spends the output at account/change/index, where account is the
// xpub found at accountPath below the root identified by fingerprint.
func AccountInput(account *keys.ExtendedPubKey, fingerprint keys.Fingerprint, accountPath keys.DerivationPath, change, index uint32, amount uint64, wrapped bool) InputSpec {
	child, err := account.Derive(keys.NewPath(change, index))
	if err != nil {
		panic(err)
	}
	pub := child.PubKey().SerializeCompressed()
	script, err := keys.P2WPKHScript(pub)
	if err != nil {
		panic(err)
	}
	spec := InputSpec{
		Script:      script,
		Amount:      amount,
		PubKey:      pub,
		Fingerprint: fingerprint,
		Path:        accountPath.Child(change).Child(index),
	}
	if wrapped {
		spec.RedeemScript = script
		spec.Script, err = keys.P2SHScript(script)
		if err != nil {
			panic(err)
		}
	}
	return spec
}

// ForeignInput spends an output of a key nobody in the test holds.
func ForeignInput(amount uint64) InputSpec {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		panic(err)
	}
	script, err := keys.P2WPKHScript(priv.PubKey().SerializeCompressed())
	if err != nil {
		panic(err)
	}
	return InputSpec{Script: script, Amount: amount}
}

// NewPset builds an unsigned pset spending inputs to a single output paying
// script, minus Fee.
func NewPset(net types.Network, inputs []InputSpec, script []byte) *psetv2.Pset {
	assetID := net.Elements().AssetID
	var total uint64
	ins := make([]psetv2.InputArgs, len(inputs))
	for i, in := range inputs {
		txid := chainhash.DoubleHashH([]byte(fmt.Sprintf("funding-%d", i)))
		ins[i] = psetv2.InputArgs{Txid: txid.String(), TxIndex: uint32(i)}
		total += in.Amount
	}
	outs := []psetv2.OutputArgs{
		{Asset: assetID, Amount: total - Fee, Script: script},
		{Asset: assetID, Amount: Fee},
	}
	p, err := psetv2.New(ins, outs, nil)
	if err != nil {
		panic(err)
	}
	updater, err := psetv2.NewUpdater(p)
	if err != nil {
		panic(err)
	}

	asset, err := elementsutil.AssetHashToBytes(assetID)
	if err != nil {
		panic(err)
	}
	for i, in := range inputs {
		value, err := elementsutil.ValueToBytes(in.Amount)
		if err != nil {
			panic(err)
		}
		if err := updater.AddInWitnessUtxo(i, transaction.NewTxOutput(asset, value, in.Script)); err != nil {
			panic(err)
		}
		if in.PubKey != nil {
			derivation := psetv2.DerivationPathWithPubKey{
				PubKey:               in.PubKey,
				MasterKeyFingerprint: in.Fingerprint.Uint32(),
				Bip32Path:            in.Path.Indices(),
			}
			if err := updater.AddInBip32Derivation(i, derivation); err != nil {
				panic(err)
			}
		}
		p.Inputs[i].SigHashType = txscript.SigHashAll
	}
	return p
}

// CountPartialSigs returns the number of inputs carrying at least one signature.
func CountPartialSigs(p *psetv2.Pset) int {
	count := 0
	for _, in := range p.Inputs {
		if len(in.PartialSigs) > 0 {
			count++
		}
	}
	return count
}

// VerifyPartialSig checks the signature left by pub on input i of a witness
// key-hash spend.
func VerifyPartialSig(p *psetv2.Pset, i int, pub *btcec.PublicKey) (bool, error) {
	tx, err := p.UnsignedTx()
	if err != nil {
		return false, err
	}
	input := p.Inputs[i]
	serialized := pub.SerializeCompressed()
	for _, ps := range input.PartialSigs {
		if !bytes.Equal(ps.PubKey, serialized) || len(ps.Signature) < 2 {
			continue
		}
		hashType := txscript.SigHashType(ps.Signature[len(ps.Signature)-1])
		scriptCode, err := keys.P2PKHScript(btcutil.Hash160(serialized))
		if err != nil {
			return false, err
		}
		hash := tx.HashForWitnessV0(i, scriptCode, input.WitnessUtxo.Value, hashType)
		sig, err := ecdsa.ParseDERSignature(ps.Signature[:len(ps.Signature)-1])
		if err != nil {
			return false, err
		}
		return sig.Verify(hash[:], pub), nil
	}
	return false, nil
}
