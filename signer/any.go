package signer

import (
	"context"

	"github.com/openweb3-io/liquidsigner/config"
	"github.com/openweb3-io/liquidsigner/keys"
	"github.com/openweb3-io/liquidsigner/signer/remote"
	"github.com/openweb3-io/liquidsigner/signer/software"
	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements/psetv2"
)

type Kind string

const (
	KindSoftware = Kind(config.KindSoftware)
	KindRemote   = Kind(config.KindRemote)
)

var SupportedKinds = []Kind{KindSoftware, KindRemote}

func (k Kind) Valid() bool {
	for _, kind := range SupportedKinds {
		if k == kind {
			return true
		}
	}
	return false
}

var (
	_ Signer = (*software.Signer)(nil)
	_ Signer = (*remote.Signer)(nil)
	_ Signer = (*AnySigner)(nil)
)

// AnySigner holds exactly one backend and forwards every call to it.
// Backend errors come out as *Error.
type AnySigner struct {
	kind     Kind
	software *software.Signer
	remote   *remote.Signer
}

func NewSoftware(s *software.Signer) *AnySigner {
	return &AnySigner{kind: KindSoftware, software: s}
}

func NewRemote(s *remote.Signer) *AnySigner {
	return &AnySigner{kind: KindRemote, remote: s}
}

func (a *AnySigner) Kind() Kind {
	return a.kind
}

func (a *AnySigner) backend() (Signer, error) {
	switch {
	case a.kind == KindSoftware && a.software != nil:
		return a.software, nil
	case a.kind == KindRemote && a.remote != nil:
		return a.remote, nil
	}
	return nil, ErrNoBackend
}

func (a *AnySigner) DeriveXpub(ctx context.Context, path keys.DerivationPath) (*keys.ExtendedPubKey, error) {
	b, err := a.backend()
	if err != nil {
		return nil, translate(a.kind, OpDeriveXpub, err)
	}
	xpub, err := b.DeriveXpub(ctx, path)
	if err != nil {
		return nil, translate(a.kind, OpDeriveXpub, err)
	}
	return xpub, nil
}

func (a *AnySigner) Slip77MasterBlindingKey(ctx context.Context) (keys.MasterBlindingKey, error) {
	b, err := a.backend()
	if err != nil {
		return keys.MasterBlindingKey{}, translate(a.kind, OpBlindingKey, err)
	}
	key, err := b.Slip77MasterBlindingKey(ctx)
	if err != nil {
		return keys.MasterBlindingKey{}, translate(a.kind, OpBlindingKey, err)
	}
	return key, nil
}

func (a *AnySigner) Sign(ctx context.Context, p *psetv2.Pset) (uint32, error) {
	b, err := a.backend()
	if err != nil {
		return 0, translate(a.kind, OpSign, err)
	}
	n, err := b.Sign(ctx, p)
	return n, translate(a.kind, OpSign, err)
}

// Xpub returns the root extended public key.
func (a *AnySigner) Xpub(ctx context.Context) (*keys.ExtendedPubKey, error) {
	return a.DeriveXpub(ctx, keys.Master())
}

// PublicIdentifier is the hash160 of the root public key. It identifies the
// seed without revealing any key.
func (a *AnySigner) PublicIdentifier(ctx context.Context) ([]byte, error) {
	xpub, err := a.Xpub(ctx)
	if err != nil {
		return nil, err
	}
	return xpub.Identifier(), nil
}

func (a *AnySigner) Fingerprint(ctx context.Context) (keys.Fingerprint, error) {
	xpub, err := a.Xpub(ctx)
	if err != nil {
		return keys.Fingerprint{}, err
	}
	return xpub.Fingerprint(), nil
}

func (a *AnySigner) Close() error {
	b, err := a.backend()
	if err != nil {
		return nil
	}
	switch b := b.(type) {
	case *software.Signer:
		b.Close()
	case *remote.Signer:
		return errors.Wrap(b.Close(), "close remote signer")
	}
	return nil
}
