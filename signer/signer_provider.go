package signer

import (
	"context"

	"github.com/openweb3-io/liquidsigner/config"
)

type SignerProvider interface {
	Register(kind Kind, creator SignerCreator)
	Provide(ctx context.Context, cfg *config.SignerConfig) (*AnySigner, error)
}
