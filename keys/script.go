package keys

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
)

// P2WPKHScript returns the v0 witness program paying to the hash160 of pub.
func P2WPKHScript(pub []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(btcutil.Hash160(pub)).
		Script()
}

// P2SHScript returns the script paying to the hash160 of redeemScript.
func P2SHScript(redeemScript []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_HASH160).
		AddData(btcutil.Hash160(redeemScript)).
		AddOp(txscript.OP_EQUAL).
		Script()
}

// P2PKHScript is the script code used when signing a v0 witness key-hash spend.
func P2PKHScript(pubKeyHash []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(pubKeyHash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}

// IsP2WPKHFor reports whether script is a witness key-hash program for pub.
func IsP2WPKHFor(script, pub []byte) bool {
	return txscript.IsPayToWitnessPubKeyHash(script) &&
		bytes.Equal(script[2:], btcutil.Hash160(pub))
}
