package descriptor

import (
	"context"
	"fmt"

	"github.com/openweb3-io/liquidsigner/keys"
	"github.com/openweb3-io/liquidsigner/signer"
)

// Step names the stage of Build that failed.
type Step string

const (
	StepTemplate    Step = "template"
	StepFingerprint Step = "fingerprint"
	StepXpub        Step = "xpub"
	StepBlindingKey Step = "blinding key"
)

type Error struct {
	Step Step
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("build descriptor: %s: %v", e.Step, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type template struct {
	prefix string
	path   keys.DerivationPath
	suffix string
}

// Account indices go below path as the <0;1>/* wildcard.
var templates = map[Singlesig]template{
	Wpkh:   {prefix: "elwpkh", path: keys.MustParsePath("84h/1h/0h")},
	ShWpkh: {prefix: "elsh(wpkh", path: keys.MustParsePath("84h/1h/0h"), suffix: ")"},
}

// AccountPath returns the derivation path the script variant's account xpub
// sits at.
func AccountPath(script Singlesig) (keys.DerivationPath, bool) {
	t, ok := templates[script]
	return t.path, ok
}

// Build returns the canonical confidential descriptor of s's account:
//
//	ct(slip77(<key>),elwpkh([<fingerprint>/84h/1h/0h]<xpub>/<0;1>/*))
func Build(ctx context.Context, s signer.Signer, script Singlesig, blinding BlindingKeyVariant) (string, error) {
	t, ok := templates[script]
	if !ok {
		_, err := ParseSinglesig(string(script))
		return "", &Error{Step: StepTemplate, Err: err}
	}
	if _, err := ParseBlindingKey(string(blinding)); err != nil {
		return "", &Error{Step: StepTemplate, Err: err}
	}

	master, err := s.DeriveXpub(ctx, keys.Master())
	if err != nil {
		return "", &Error{Step: StepFingerprint, Err: err}
	}
	xpub, err := s.DeriveXpub(ctx, t.path)
	if err != nil {
		return "", &Error{Step: StepXpub, Err: err}
	}
	blindingKey, err := s.Slip77MasterBlindingKey(ctx)
	if err != nil {
		return "", &Error{Step: StepBlindingKey, Err: err}
	}

	return fmt.Sprintf("ct(slip77(%s),%s([%s/%s]%s/<0;1>/*)%s)",
		blindingKey, t.prefix, master.Fingerprint(), t.path, xpub, t.suffix), nil
}
