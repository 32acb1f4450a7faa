package signer

import (
	"context"
	"time"

	"github.com/openweb3-io/liquidsigner/config"
	"github.com/openweb3-io/liquidsigner/signer/remote"
	"github.com/openweb3-io/liquidsigner/signer/software"
	"github.com/openweb3-io/liquidsigner/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Options struct {
	network               types.Network
	timeout               time.Duration
	failoverSignerCreator SignerCreator
}

type Option func(*Options)

func WithNetwork(v types.Network) Option {
	return func(o *Options) {
		o.network = v
	}
}

// WithTimeout applies to remote signers whose config sets no timeout.
func WithTimeout(v time.Duration) Option {
	return func(o *Options) {
		o.timeout = v
	}
}

func WithFailoverSignerCreator(v SignerCreator) Option {
	return func(o *Options) {
		o.failoverSignerCreator = v
	}
}

type SignerCreator func(ctx context.Context, opts *Options, cfg *config.SignerConfig) (*AnySigner, error)

type signerProvider struct {
	opts       *Options
	creatorMap map[Kind]SignerCreator
}

// NewSignerProvider returns a provider that knows the software and remote
// kinds. Register replaces either.
func NewSignerProvider(o ...Option) SignerProvider {
	opts := &Options{
		network: types.Testnet,
		timeout: remote.DefaultTimeout,
	}

	for _, opt := range o {
		opt(opts)
	}

	p := &signerProvider{
		opts:       opts,
		creatorMap: make(map[Kind]SignerCreator),
	}
	p.Register(KindSoftware, CreateSoftwareSigner)
	p.Register(KindRemote, CreateRemoteSigner)
	return p
}

func (p *signerProvider) Register(kind Kind, creator SignerCreator) {
	p.creatorMap[kind] = creator
}

func (p *signerProvider) Provide(ctx context.Context, cfg *config.SignerConfig) (*AnySigner, error) {
	creator, ok := p.creatorMap[Kind(cfg.Kind)]
	if !ok {
		if p.opts.failoverSignerCreator == nil {
			return nil, errors.Errorf("signer creator for kind %s not found", cfg.Kind)
		}

		creator = p.opts.failoverSignerCreator
	}

	logrus.WithFields(logrus.Fields{
		"name": cfg.Name,
		"kind": cfg.Kind,
	}).Debug("providing signer")
	return creator(ctx, p.opts, cfg)
}

func CreateSoftwareSigner(ctx context.Context, opts *Options, cfg *config.SignerConfig) (*AnySigner, error) {
	mnemonic, err := cfg.Mnemonic.Load(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "signer %s mnemonic", cfg.Name)
	}
	passphrase, err := cfg.Passphrase.Load(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "signer %s passphrase", cfg.Name)
	}
	s, err := software.FromMnemonic(mnemonic, passphrase, opts.network)
	if err != nil {
		return nil, errors.Wrapf(err, "signer %s", cfg.Name)
	}
	return NewSoftware(s), nil
}

func CreateRemoteSigner(ctx context.Context, opts *Options, cfg *config.SignerConfig) (*AnySigner, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = opts.timeout
	}
	s, err := remote.Connect(ctx, cfg.URL, remote.WithTimeout(timeout))
	if err != nil {
		return nil, translate(KindRemote, OpConnect, errors.Wrapf(err, "signer %s", cfg.Name))
	}
	return NewRemote(s), nil
}
