package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/openweb3-io/liquidsigner/cmd/liquidsigner/setup"
	"github.com/openweb3-io/liquidsigner/descriptor"
	"github.com/openweb3-io/liquidsigner/signer"
	"github.com/openweb3-io/liquidsigner/signer/remote/device"
	"github.com/openweb3-io/liquidsigner/signer/software"
	"github.com/openweb3-io/liquidsigner/types"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vulpemventures/go-elements/elementsutil"
	"github.com/vulpemventures/go-elements/psetv2"
	"go.uber.org/zap"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

type SignerInfo struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Mnemonic    string `json:"mnemonic,omitempty" yaml:"mnemonic,omitempty"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
	Xpub        string `json:"xpub" yaml:"xpub"`
	Descriptor  string `json:"descriptor" yaml:"descriptor"`
}

func printJson(w io.Writer, v any) error {
	bz, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(bz))
	return err
}

func describe(ctx context.Context, name string, s *signer.AnySigner) (*SignerInfo, error) {
	xpub, err := s.Xpub(ctx)
	if err != nil {
		return nil, err
	}
	desc, err := descriptor.Build(ctx, s, descriptor.Wpkh, descriptor.Slip77)
	if err != nil {
		return nil, err
	}
	return &SignerInfo{
		Name:        name,
		Fingerprint: xpub.Fingerprint().String(),
		Xpub:        xpub.String(),
		Descriptor:  desc,
	}, nil
}

func CmdGenerate() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create a software signer from fresh recovery words.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := setup.UnwrapConfig(cmd.Context())
			words, _ := cmd.Flags().GetInt("words")

			var bits int
			switch words {
			case 12:
				bits = 128
			case 24:
				bits = 256
			default:
				return fmt.Errorf("invalid word count: %d\noptions: [12 24]", words)
			}

			s, err := software.Generate(cfg.Network, bits)
			if err != nil {
				return err
			}
			wrapped := signer.NewSoftware(s)
			defer wrapped.Close()

			info, err := describe(cmd.Context(), "", wrapped)
			if err != nil {
				return err
			}
			info.Mnemonic = s.Mnemonic()
			return printJson(cmd.OutOrStdout(), info)
		},
	}
	cmd.Flags().Int("words", 12, "Number of recovery words, 12 or 24")
	return cmd
}

func readMnemonic(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Recovery words: ")
		bz, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bz)), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func CmdLoad() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Restore a software signer from its recovery words.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := setup.UnwrapConfig(cmd.Context())
			name, _ := cmd.Flags().GetString("name")
			mnemonic, _ := cmd.Flags().GetString("mnemonic")
			passphrase, _ := cmd.Flags().GetString("passphrase")
			if name == "" {
				return fmt.Errorf("--name required")
			}

			if mnemonic == "" {
				var err error
				if mnemonic, err = readMnemonic(cmd); err != nil {
					return err
				}
			}
			s, err := software.FromMnemonic(mnemonic, passphrase, cfg.Network)
			if err != nil {
				return err
			}
			wrapped := signer.NewSoftware(s)
			defer wrapped.Close()

			info, err := describe(cmd.Context(), name, wrapped)
			if err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{
				"name":        name,
				"fingerprint": info.Fingerprint,
			}).Info("signer loaded")
			return printJson(cmd.OutOrStdout(), info)
		},
	}
	cmd.Flags().String("name", "", "Name of the signer. Required.")
	cmd.Flags().String("mnemonic", "", "Recovery words. Read from the terminal when omitted.")
	cmd.Flags().String("passphrase", "", "Optional bip39 passphrase")
	return cmd
}

func CmdList() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured signers and their fingerprints.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := setup.UnwrapConfig(ctx)
			provider := setup.UnwrapProvider(ctx)
			output, _ := cmd.Flags().GetString("output")

			registry := signer.NewRegistry()
			defer registry.Close()
			var entries []signer.Entry
			for _, signerCfg := range cfg.Signers {
				s, err := provider.Provide(ctx, signerCfg)
				if err != nil {
					// unreachable signers are still listed
					entries = append(entries, signer.Entry{
						Name:  signerCfg.Name,
						Kind:  signer.Kind(signerCfg.Kind),
						Err:   err,
						Error: err.Error(),
					})
					continue
				}
				if err := registry.Add(signerCfg.Name, s); err != nil {
					return err
				}
			}
			entries = append(entries, registry.List(ctx)...)
			slices.SortFunc(entries, func(a, b signer.Entry) int {
				return strings.Compare(a.Name, b.Name)
			})

			w := cmd.OutOrStdout()
			switch output {
			case "json":
				return printJson(w, entries)
			case "yaml":
				return yaml.NewEncoder(w).Encode(entries)
			case "text":
				for _, e := range entries {
					status := e.Fingerprint
					if e.Err != nil {
						status = "error: " + e.Error
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, e.Kind, status)
				}
				return nil
			}
			return fmt.Errorf("invalid output: %s\noptions: [text json yaml]", output)
		},
	}
	cmd.Flags().StringP("output", "o", "text", "Output format: text, json or yaml")
	return cmd
}

type SignSummary struct {
	Signed uint32 `json:"signed"`
	Inputs int    `json:"inputs"`
	// sum of explicit input amounts, blinded inputs are not counted
	InputAmount types.AmountHumanReadable `json:"input_amount"`
	Pset        string                    `json:"pset"`
}

func explicitInputAmount(p *psetv2.Pset) types.AmountHumanReadable {
	total := decimal.Zero
	for _, in := range p.Inputs {
		if in.WitnessUtxo == nil {
			continue
		}
		value, err := elementsutil.ValueFromBytes(in.WitnessUtxo.Value)
		if err != nil {
			continue
		}
		total = total.Add(decimal.Decimal(types.Amount(value).ToHuman(types.LBTCDecimals)))
	}
	return types.AmountHumanReadable(total)
}

func readPset(cmd *cobra.Command, args []string) (*psetv2.Pset, error) {
	var encoded string
	if len(args) == 0 || args[0] == "-" {
		bz, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, err
		}
		encoded = string(bz)
	} else {
		encoded = args[0]
	}
	p, err := psetv2.NewPsetFromBase64(strings.TrimSpace(encoded))
	if err != nil {
		return nil, errors.Wrap(err, "decode pset")
	}
	return p, nil
}

func CmdSign() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign <base64-pset|->",
		Short: "Sign a pset with a configured signer.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, _ := cmd.Flags().GetString("name")

			p, err := readPset(cmd, args)
			if err != nil {
				return err
			}
			s, err := setup.LoadSigner(ctx, name)
			if err != nil {
				return err
			}
			defer s.Close()

			signed, err := s.Sign(ctx, p)
			if err != nil {
				var signerErr *signer.Error
				if errors.As(err, &signerErr) && signerErr.Retriable() {
					return errors.Wrap(err, "reconnect the device and retry")
				}
				return err
			}
			encoded, err := p.ToBase64()
			if err != nil {
				return err
			}
			return printJson(cmd.OutOrStdout(), &SignSummary{
				Signed:      signed,
				Inputs:      len(p.Inputs),
				InputAmount: explicitInputAmount(p),
				Pset:        encoded,
			})
		},
	}
	cmd.Flags().String("name", "", "Name of the configured signer. Required.")
	return cmd
}

func CmdDescriptor() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "descriptor",
		Short: "Print the confidential descriptor of a signer's account.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, _ := cmd.Flags().GetString("name")
			scriptRaw, _ := cmd.Flags().GetString("script")
			blindingRaw, _ := cmd.Flags().GetString("blinding")
			bipRaw, _ := cmd.Flags().GetString("bip")

			script, err := descriptor.ParseSinglesig(scriptRaw)
			if err != nil {
				return err
			}
			blinding, err := descriptor.ParseBlindingKey(blindingRaw)
			if err != nil {
				return err
			}
			if _, err := descriptor.ParseBip(bipRaw); err != nil {
				return err
			}

			s, err := setup.LoadSigner(ctx, name)
			if err != nil {
				return err
			}
			defer s.Close()

			desc, err := descriptor.Build(ctx, s, script, blinding)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), desc)
			return nil
		},
	}
	cmd.Flags().String("name", "", "Name of the configured signer. Required.")
	cmd.Flags().String("script", string(descriptor.Wpkh), "Script variant: wpkh or shwpkh")
	cmd.Flags().String("blinding", string(descriptor.Slip77), "Blinding key variant: slip77")
	cmd.Flags().String("bip", string(descriptor.Bip84), "Account standard: bip84")
	return cmd
}

func CmdDevice() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Serve a configured signer over the remote signer protocol.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, _ := cmd.Flags().GetString("name")
			listen, _ := cmd.Flags().GetString("listen")

			s, err := setup.LoadSigner(ctx, name)
			if err != nil {
				return err
			}
			defer s.Close()

			log, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer log.Sync()

			fp, err := s.Fingerprint(ctx)
			if err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{
				"name":        name,
				"fingerprint": fp.String(),
				"listen":      listen,
			}).Info("serving device")

			server := &http.Server{
				Addr:    listen,
				Handler: device.NewServer(s, device.WithLogger(log)),
			}
			go func() {
				<-ctx.Done()
				_ = server.Close()
			}()
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("name", "", "Name of the configured signer. Required.")
	cmd.Flags().String("listen", "127.0.0.1:8999", "Address to listen on")
	return cmd
}
