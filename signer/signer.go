package signer

import (
	"context"

	"github.com/openweb3-io/liquidsigner/keys"
	"github.com/vulpemventures/go-elements/psetv2"
)

// Signer is the capability every backend provides.
//
// Sign adds partial signatures for the inputs the signer holds keys for and
// returns how many it added. On failure the pset is either untouched or holds
// exactly the returned number of new signatures.
type Signer interface {
	DeriveXpub(ctx context.Context, path keys.DerivationPath) (*keys.ExtendedPubKey, error)
	Slip77MasterBlindingKey(ctx context.Context) (keys.MasterBlindingKey, error)
	Sign(ctx context.Context, p *psetv2.Pset) (uint32, error)
}
