package types

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// LBTCDecimals is the precision of the policy asset
const LBTCDecimals = 8

// Amount is a value in satoshi as it appears in an explicit output.
type Amount uint64

// AmountHumanReadable is a decimal amount as a human expects it for readability.
type AmountHumanReadable decimal.Decimal

func (amount Amount) ToHuman(decimals int32) AmountHumanReadable {
	dec := decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(amount)), -decimals)
	return AmountHumanReadable(dec)
}

func (amount AmountHumanReadable) ToBlockchain(decimals int32) Amount {
	factor := decimal.NewFromInt32(10).Pow(decimal.NewFromInt32(decimals))
	raised := ((decimal.Decimal)(amount)).Mul(factor)
	return Amount(raised.BigInt().Uint64())
}

func (amount AmountHumanReadable) String() string {
	return decimal.Decimal(amount).String()
}

func (b AmountHumanReadable) MarshalJSON() ([]byte, error) {
	return []byte("\"" + b.String() + "\""), nil
}

func (b *AmountHumanReadable) UnmarshalJSON(p []byte) error {
	if string(p) == "null" {
		return nil
	}
	str := strings.Trim(string(p), "\"")
	decimal, err := decimal.NewFromString(str)
	if err != nil {
		return err
	}
	*b = AmountHumanReadable(decimal)
	return nil
}
