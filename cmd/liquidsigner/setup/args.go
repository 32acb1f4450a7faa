package setup

import (
	"context"
	"fmt"

	"github.com/openweb3-io/liquidsigner/config"
	"github.com/openweb3-io/liquidsigner/signer"
	"github.com/openweb3-io/liquidsigner/types"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type ContextKey string

const (
	ContextConfig   ContextKey = "config"
	ContextProvider ContextKey = "provider"
)

func WrapConfig(ctx context.Context, cfg *config.Config) context.Context {
	ctx = context.WithValue(ctx, ContextConfig, cfg)
	return ctx
}

func UnwrapConfig(ctx context.Context) *config.Config {
	return ctx.Value(ContextConfig).(*config.Config)
}

func WrapProvider(ctx context.Context, provider signer.SignerProvider) context.Context {
	ctx = context.WithValue(ctx, ContextProvider, provider)
	return ctx
}

func UnwrapProvider(ctx context.Context) signer.SignerProvider {
	return ctx.Value(ContextProvider).(signer.SignerProvider)
}

func CreateContext(ctx context.Context, cfg *config.Config, provider signer.SignerProvider) context.Context {
	ctx = WrapConfig(ctx, cfg)
	ctx = WrapProvider(ctx, provider)
	return ctx
}

type Args struct {
	ConfigPath string
	Network    string
	Verbose    bool
}

func AddArgs(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "Path to a yaml config file. Optional.")
	cmd.PersistentFlags().String("network", "", "Network to use, overrides the config file. Optional.")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Debug logging.")
}

func ArgsFromCmd(cmd *cobra.Command) (*Args, error) {
	configPath, _ := cmd.Flags().GetString("config")
	network, _ := cmd.Flags().GetString("network")
	verbose, _ := cmd.Flags().GetBool("verbose")

	return &Args{
		ConfigPath: configPath,
		Network:    network,
		Verbose:    verbose,
	}, nil
}

func LoadConfig(args *Args) (*config.Config, error) {
	if args.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	cfg, err := config.Load(args.ConfigPath)
	if err != nil {
		return nil, err
	}
	if args.Network != "" {
		network, err := types.ParseNetwork(args.Network)
		if err != nil {
			return nil, err
		}
		cfg.Network = network
	}
	return cfg, nil
}

func LoadProvider(cfg *config.Config) signer.SignerProvider {
	return signer.NewSignerProvider(
		signer.WithNetwork(cfg.Network),
		signer.WithTimeout(cfg.Remote.Timeout),
	)
}

// LoadSigner connects the configured signer called name.
func LoadSigner(ctx context.Context, name string) (*signer.AnySigner, error) {
	cfg := UnwrapConfig(ctx)
	signerCfg, ok := cfg.Signer(name)
	if !ok {
		names := make([]string, len(cfg.Signers))
		for i, s := range cfg.Signers {
			names[i] = s.Name
		}
		return nil, fmt.Errorf("invalid signer: %s\noptions: %v", name, names)
	}
	return UnwrapProvider(ctx).Provide(ctx, signerCfg)
}
