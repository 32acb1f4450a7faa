package types

import (
	"fmt"
	"slices"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/vulpemventures/go-elements/network"
)

// Network is the Liquid/Elements network a signer operates on
type Network string

// List of supported Network
const (
	Mainnet = Network("mainnet")
	Testnet = Network("testnet")
	Regtest = Network("regtest")
)

var SupportedNetworks = []Network{
	Mainnet,
	Testnet,
	Regtest,
}

func (n Network) Valid() bool {
	return slices.Contains(SupportedNetworks, n)
}

func ParseNetwork(s string) (Network, error) {
	n := Network(s)
	if !n.Valid() {
		return "", fmt.Errorf("invalid network: %s\noptions: %v", s, SupportedNetworks)
	}
	return n, nil
}

// KeyParams returns the bip32 version bytes used to serialize extended keys.
// Liquid reuses bitcoin's xpub/tpub prefixes.
func (n Network) KeyParams() *chaincfg.Params {
	if n == Mainnet {
		return &chaincfg.MainNetParams
	}
	return &chaincfg.TestNet3Params
}

// Elements returns the address parameters of the network
func (n Network) Elements() *network.Network {
	switch n {
	case Mainnet:
		return &network.Liquid
	case Regtest:
		return &network.Regtest
	default:
		return &network.Testnet
	}
}
