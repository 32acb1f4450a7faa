package main

import (
	"os"

	"github.com/openweb3-io/liquidsigner/cmd/liquidsigner/setup"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "liquidsigner",
		Short:        "Manage signers for confidential Liquid wallets",
		Args:         cobra.ExactArgs(0),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			args, err := setup.ArgsFromCmd(cmd)
			if err != nil {
				return err
			}

			cfg, err := setup.LoadConfig(args)
			if err != nil {
				return err
			}

			provider := setup.LoadProvider(cfg)
			ctx := setup.CreateContext(cmd.Context(), cfg, provider)
			logrus.WithFields(logrus.Fields{
				"network": cfg.Network,
				"signers": len(cfg.Signers),
			}).Debug("config")

			cmd.SetContext(ctx)
			return nil
		},
	}
	setup.AddArgs(cmd)

	signerCmd := &cobra.Command{
		Use:   "signer",
		Short: "Create, inspect and use signers.",
		Args:  cobra.ExactArgs(0),
	}
	signerCmd.AddCommand(CmdGenerate())
	signerCmd.AddCommand(CmdLoad())
	signerCmd.AddCommand(CmdList())
	signerCmd.AddCommand(CmdSign())
	signerCmd.AddCommand(CmdDescriptor())
	signerCmd.AddCommand(CmdDevice())
	cmd.AddCommand(signerCmd)
	return cmd
}

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
