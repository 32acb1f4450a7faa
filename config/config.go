package config

import (
	"strings"
	"time"

	"github.com/openweb3-io/liquidsigner/types"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "LIQUIDSIGNER"

	KindSoftware = "software"
	KindRemote   = "remote"
)

type RemoteConfig struct {
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
}

type SignerConfig struct {
	Name string `mapstructure:"name" json:"name" yaml:"name"`
	Kind string `mapstructure:"kind" json:"kind" yaml:"kind"`

	// software
	Mnemonic   Secret `mapstructure:"mnemonic,omitempty" json:"mnemonic,omitempty" yaml:"mnemonic,omitempty"`
	Passphrase Secret `mapstructure:"passphrase,omitempty" json:"passphrase,omitempty" yaml:"passphrase,omitempty"`

	// remote
	URL     string        `mapstructure:"url,omitempty" json:"url,omitempty" yaml:"url,omitempty"`
	Timeout time.Duration `mapstructure:"timeout,omitempty" json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

type Config struct {
	Network types.Network   `mapstructure:"network" json:"network" yaml:"network"`
	Remote  RemoteConfig    `mapstructure:"remote" json:"remote" yaml:"remote"`
	Signers []*SignerConfig `mapstructure:"signers" json:"signers" yaml:"signers"`
}

func DefaultConfig() *Config {
	return &Config{
		Network: types.Testnet,
		Remote: RemoteConfig{
			Timeout: 30 * time.Second,
		},
	}
}

// Load reads the yaml file at path, if any, with LIQUIDSIGNER_* environment
// variables taking precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("network", string(defaults.Network))
	v.SetDefault("remote.timeout", defaults.Remote.Timeout.String())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if !c.Network.Valid() {
		return errors.Errorf("invalid network: %s\noptions: %v", c.Network, types.SupportedNetworks)
	}
	seen := map[string]bool{}
	for i, s := range c.Signers {
		if s.Name == "" {
			return errors.Errorf("signer %d: name required", i)
		}
		if seen[s.Name] {
			return errors.Errorf("signer %s: duplicate name", s.Name)
		}
		seen[s.Name] = true

		switch s.Kind {
		case KindSoftware:
			if s.Mnemonic == "" {
				return errors.Errorf("signer %s: mnemonic required", s.Name)
			}
		case KindRemote:
			if s.URL == "" {
				return errors.Errorf("signer %s: url required", s.Name)
			}
		case "":
			return errors.Errorf("signer %s: kind required", s.Name)
		}
		// any other kind is left to the failover signer creator
	}
	return nil
}

func (c *Config) Signer(name string) (*SignerConfig, bool) {
	for _, s := range c.Signers {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// RemoteTimeout returns the signer's own timeout or the global one.
func (c *Config) RemoteTimeout(s *SignerConfig) time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return c.Remote.Timeout
}
