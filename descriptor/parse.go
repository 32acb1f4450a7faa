package descriptor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/openweb3-io/liquidsigner/keys"
	"github.com/openweb3-io/liquidsigner/types"
	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements/payment"
)

var ErrMalformed = errors.New("malformed descriptor")

var canonical = regexp.MustCompile(
	`^ct\(slip77\(([0-9a-f]{64})\),(elwpkh|elsh\(wpkh)\(\[([0-9a-f]{8})((?:/[0-9]+h)*)\]([1-9A-HJ-NP-Za-km-z]+)/<0;1>/\*\)(\)?)\)$`,
)

// Info is a descriptor in the canonical form Build produces.
type Info struct {
	Blinding    keys.MasterBlindingKey
	Script      Singlesig
	Fingerprint keys.Fingerprint
	Path        keys.DerivationPath
	Xpub        *keys.ExtendedPubKey
}

// Parse reads back a descriptor produced by Build. Other descriptor forms are
// rejected.
func Parse(s string) (*Info, error) {
	m := canonical.FindStringSubmatch(s)
	if m == nil {
		return nil, errors.Wrap(ErrMalformed, s)
	}
	info := &Info{}
	var err error

	if info.Blinding, err = keys.ParseMasterBlindingKey(m[1]); err != nil {
		return nil, errors.Wrap(err, "blinding key")
	}
	found := false
	for script, t := range templates {
		if t.prefix == m[2] && t.suffix == m[6] {
			info.Script = script
			found = true
		}
	}
	if !found {
		return nil, errors.Wrapf(ErrMalformed, "unknown script %s...%s", m[2], m[6])
	}
	if info.Fingerprint, err = keys.ParseFingerprint(m[3]); err != nil {
		return nil, errors.Wrap(err, "fingerprint")
	}
	if info.Path, err = keys.ParsePath(strings.TrimPrefix(m[4], "/")); err != nil {
		return nil, err
	}
	if info.Xpub, err = keys.ParseExtendedPubKey(m[5]); err != nil {
		return nil, errors.Wrap(err, "xpub")
	}
	if int(info.Xpub.Depth()) != info.Path.Len() {
		return nil, errors.Wrapf(ErrMalformed, "xpub depth %d does not match path %s", info.Xpub.Depth(), info.Path)
	}
	return info, nil
}

func (i *Info) String() string {
	t := templates[i.Script]
	return fmt.Sprintf("ct(slip77(%s),%s([%s/%s]%s/<0;1>/*)%s)",
		i.Blinding, t.prefix, i.Fingerprint, i.Path, i.Xpub, t.suffix)
}

// KeyPath is the full path from the root to the key at change/index.
func (i *Info) KeyPath(change, index uint32) keys.DerivationPath {
	return i.Path.Child(change).Child(index)
}

// PubKey derives the key at change/index. change is 0 for receive and 1 for
// change addresses.
func (i *Info) PubKey(change, index uint32) (*keys.ExtendedPubKey, error) {
	if change > 1 {
		return nil, errors.Errorf("change must be 0 or 1, got %d", change)
	}
	return i.Xpub.Derive(keys.NewPath(change, index))
}

func (i *Info) ScriptPubKey(change, index uint32) ([]byte, error) {
	child, err := i.PubKey(change, index)
	if err != nil {
		return nil, err
	}
	witness, err := keys.P2WPKHScript(child.PubKey().SerializeCompressed())
	if err != nil {
		return nil, err
	}
	if i.Script == ShWpkh {
		return keys.P2SHScript(witness)
	}
	return witness, nil
}

// Address returns the confidential address at change/index, blinded with the
// slip77 key of its output script.
func (i *Info) Address(change, index uint32, net types.Network) (string, error) {
	child, err := i.PubKey(change, index)
	if err != nil {
		return "", err
	}
	script, err := i.ScriptPubKey(change, index)
	if err != nil {
		return "", err
	}
	_, blindingKey, err := i.Blinding.DeriveBlindingKey(script)
	if err != nil {
		return "", err
	}

	p := payment.FromPublicKey(child.PubKey(), net.Elements(), blindingKey)
	if i.Script == Wpkh {
		return p.ConfidentialWitnessPubKeyHash()
	}
	wrapped, err := payment.FromPayment(p)
	if err != nil {
		return "", errors.Wrap(err, "wrap witness script")
	}
	wrapped.BlindingKey = blindingKey
	return wrapped.ConfidentialScriptHash()
}
