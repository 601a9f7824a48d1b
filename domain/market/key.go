package market

import "fmt"

// Key is the 128-bit order id every resting order is indexed by:
// price lots in the upper 64 bits, submission sequence in the lower
// 64. Keys order the book so that walking them ascending visits
// orders in execution-priority order on either side.
type Key struct {
	Hi uint64
	Lo uint64
}

func (k Key) IsZero() bool {
	return k.Hi == 0 && k.Lo == 0
}

func (k Key) Xor(o Key) Key {
	return Key{Hi: k.Hi ^ o.Hi, Lo: k.Lo ^ o.Lo}
}

// Rsh shifts the key right by n bits.
func (k Key) Rsh(n uint) Key {
	switch {
	case n >= 128:
		return Key{}
	case n >= 64:
		return Key{Lo: k.Hi >> (n - 64)}
	case n == 0:
		return k
	default:
		return Key{Hi: k.Hi >> n, Lo: k.Lo>>n | k.Hi<<(64-n)}
	}
}

// Bit returns the bit at position pos, counted from the least
// significant bit.
func (k Key) Bit(pos uint) uint64 {
	if pos >= 64 {
		return k.Hi >> (pos - 64) & 1
	}
	return k.Lo >> pos & 1
}

func (k Key) String() string {
	return fmt.Sprintf("%016x%016x", k.Hi, k.Lo)
}

// EncodeOrderKey builds the order key for one side. Ask keys carry the
// price lots verbatim, so ascending keys mean ascending price then
// ascending sequence. Bid keys carry the one's complement of the price
// lots, so ascending keys mean descending price then ascending
// sequence. Either way, ascending key order is priority order.
func EncodeOrderKey(side Side, priceLots, seq uint64) Key {
	if side == Bid {
		priceLots = ^priceLots
	}
	return Key{Hi: priceLots, Lo: seq}
}

// DecodeOrderKey recovers the price lots and submission sequence from
// an order key. Exact inverse of EncodeOrderKey for all inputs.
func DecodeOrderKey(side Side, k Key) (priceLots, seq uint64) {
	priceLots = k.Hi
	if side == Bid {
		priceLots = ^priceLots
	}
	return priceLots, k.Lo
}

// PriceLotsFromKey extracts just the price lots.
func PriceLotsFromKey(side Side, k Key) uint64 {
	p, _ := DecodeOrderKey(side, k)
	return p
}
