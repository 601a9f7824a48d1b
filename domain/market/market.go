package market

import (
	"math"
	"math/big"
)

// Side selects one half of the book.
type Side uint8

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "buy"
	}
	return "sell"
}

// Config carries the quantization parameters of a single market: the
// lot sizes the on-chain program trades in, and the token decimals
// used to scale native amounts into human numbers. It is supplied by
// the market-configuration layer; nothing here reads ambient state.
type Config struct {
	BaseLotSize   uint64
	QuoteLotSize  uint64
	BaseDecimals  uint32
	QuoteDecimals uint32
}

// BaseMultiplier returns 10^BaseDecimals.
func (c Config) BaseMultiplier() *big.Int {
	return pow10(c.BaseDecimals)
}

// QuoteMultiplier returns 10^QuoteDecimals.
func (c Config) QuoteMultiplier() *big.Int {
	return pow10(c.QuoteDecimals)
}

// PriceLotsToNumber converts a price expressed in price lots into a
// human-comparable quote-per-base number.
func (c Config) PriceLotsToNumber(priceLots uint64) float64 {
	num := new(big.Int).SetUint64(priceLots)
	num.Mul(num, new(big.Int).SetUint64(c.QuoteLotSize))
	num.Mul(num, c.BaseMultiplier())
	den := new(big.Int).SetUint64(c.BaseLotSize)
	den.Mul(den, c.QuoteMultiplier())
	return BigRatioToFloat(num, den)
}

// PriceNumberToLots rounds a human price to the nearest whole price
// lot.
func (c Config) PriceNumberToLots(price float64) uint64 {
	lots := math.Round(price * math.Pow10(int(c.QuoteDecimals)) * float64(c.BaseLotSize) /
		(math.Pow10(int(c.BaseDecimals)) * float64(c.QuoteLotSize)))
	if lots < 0 {
		panic("market: negative price lots")
	}
	return uint64(lots)
}

// BaseSizeLotsToNumber converts a base quantity in lots into a human
// number.
func (c Config) BaseSizeLotsToNumber(sizeLots uint64) float64 {
	num := new(big.Int).SetUint64(sizeLots)
	num.Mul(num, new(big.Int).SetUint64(c.BaseLotSize))
	return BigRatioToFloat(num, c.BaseMultiplier())
}

// BaseSizeNumberToLots converts a human base quantity into whole base
// lots, truncating the sub-lot remainder.
func (c Config) BaseSizeNumberToLots(size float64) uint64 {
	native := math.Round(size * math.Pow10(int(c.BaseDecimals)))
	if native < 0 {
		panic("market: negative base size")
	}
	return uint64(native) / c.BaseLotSize
}

// QuoteSizeLotsToNumber converts a quote quantity in lots into a human
// number.
func (c Config) QuoteSizeLotsToNumber(sizeLots uint64) float64 {
	num := new(big.Int).SetUint64(sizeLots)
	num.Mul(num, new(big.Int).SetUint64(c.QuoteLotSize))
	return BigRatioToFloat(num, c.QuoteMultiplier())
}

// QuoteSizeNumberToLots converts a human quote quantity into whole
// quote lots, truncating the sub-lot remainder.
func (c Config) QuoteSizeNumberToLots(size float64) uint64 {
	native := math.Round(size * math.Pow10(int(c.QuoteDecimals)))
	if native < 0 {
		panic("market: negative quote size")
	}
	return uint64(native) / c.QuoteLotSize
}

// BaseNativeToNumber scales a native base-token amount by the base
// decimals.
func (c Config) BaseNativeToNumber(native uint64) float64 {
	return BigRatioToFloat(new(big.Int).SetUint64(native), c.BaseMultiplier())
}

// QuoteNativeToNumber scales a native quote-token amount by the quote
// decimals.
func (c Config) QuoteNativeToNumber(native uint64) float64 {
	return BigRatioToFloat(new(big.Int).SetUint64(native), c.QuoteMultiplier())
}

// MinOrderSize is the human value of a single base lot.
func (c Config) MinOrderSize() float64 {
	return c.BaseSizeLotsToNumber(1)
}

// TickSize is the human value of a single price lot.
func (c Config) TickSize() float64 {
	return c.PriceLotsToNumber(1)
}

func pow10(n uint32) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
