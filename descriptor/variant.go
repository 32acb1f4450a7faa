package descriptor

import (
	"fmt"
	"strings"
)

// Singlesig selects the script of a single key wallet.
type Singlesig string

const (
	Wpkh   Singlesig = "wpkh"
	ShWpkh Singlesig = "shwpkh"
)

var SupportedSinglesig = []Singlesig{Wpkh, ShWpkh}

// BlindingKeyVariant selects how the descriptor carries its blinding key.
type BlindingKeyVariant string

const (
	Slip77 BlindingKeyVariant = "slip77"
)

var SupportedBlindingKeys = []BlindingKeyVariant{Slip77}

// Bip selects the account standard. Only bip84 exists so far.
type Bip string

const (
	Bip84 Bip = "bip84"
)

var SupportedBips = []Bip{Bip84}

// InvalidVariantError is returned for a token outside a variant's vocabulary.
type InvalidVariantError struct {
	Variant   string
	Token     string
	Supported []string
}

func (e *InvalidVariantError) Error() string {
	return fmt.Sprintf("invalid %s variant %q, supported: %s", e.Variant, e.Token, strings.Join(e.Supported, ", "))
}

func parseVariant[T ~string](variant, token string, supported []T) (T, error) {
	names := make([]string, len(supported))
	for i, v := range supported {
		if string(v) == token {
			return v, nil
		}
		names[i] = string(v)
	}
	var zero T
	return zero, &InvalidVariantError{Variant: variant, Token: token, Supported: names}
}

func ParseSinglesig(s string) (Singlesig, error) {
	return parseVariant("script", s, SupportedSinglesig)
}

func ParseBlindingKey(s string) (BlindingKeyVariant, error) {
	return parseVariant("blinding key", s, SupportedBlindingKeys)
}

func ParseBip(s string) (Bip, error) {
	return parseVariant("bip", s, SupportedBips)
}
