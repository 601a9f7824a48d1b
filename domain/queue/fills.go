package queue

import (
	"math/big"

	"bookmirror/domain/market"
)

// Fill is a completed trade in human terms. FeeCost is negative for
// makers (a rebate) and positive for takers.
type Fill struct {
	Side          market.Side
	Price         float64
	Size          float64
	FeeCost       float64
	FeeTier       uint8
	OrderID       market.Key
	Owner         [32]byte
	OwnerSlot     uint8
	ClientOrderID uint64
	SeqNum        uint32
}

// Fills extracts trade fills, newest first: events with the fill flag
// set and a nonzero paid quantity. limit caps the number of fills
// returned; limit <= 0 returns all.
func (q *EventQueue) Fills(cfg market.Config, limit int) []Fill {
	var fills []Fill
	for i := len(q.Events) - 1; i >= 0; i-- {
		if limit > 0 && len(fills) == limit {
			break
		}
		ev := q.Events[i]
		if !ev.Flags.IsFill() || ev.NativeQuantityPaid == 0 {
			continue
		}
		f, ok := parseFill(cfg, ev)
		if !ok {
			continue
		}
		fills = append(fills, f)
	}
	return fills
}

// parseFill computes the realized price and fee of a fill. For a buy
// the taker pays quote and receives base, so the quote side before
// fees is the paid quantity with the fee added back for a maker
// (rebate) or taken out for a taker. A sell is symmetric with paid
// and released swapped. Event bytes are untrusted; an event whose
// base quantity is zero has no defined price and is dropped rather
// than divided by.
func parseFill(cfg market.Config, ev Event) (Fill, bool) {
	fee := new(big.Int).SetUint64(ev.NativeFeeOrRebate)

	var (
		side       market.Side
		beforeFees *big.Int
		baseQty    uint64
	)
	if ev.Flags.IsBid() {
		side = market.Bid
		beforeFees = new(big.Int).SetUint64(ev.NativeQuantityPaid)
		baseQty = ev.NativeQuantityReleased
	} else {
		side = market.Ask
		beforeFees = new(big.Int).SetUint64(ev.NativeQuantityReleased)
		baseQty = ev.NativeQuantityPaid
	}
	if baseQty == 0 {
		return Fill{}, false
	}
	if ev.Flags.IsMaker() == ev.Flags.IsBid() {
		beforeFees.Add(beforeFees, fee)
	} else {
		beforeFees.Sub(beforeFees, fee)
	}

	price := market.BigRatioToFloat(
		new(big.Int).Mul(beforeFees, cfg.BaseMultiplier()),
		new(big.Int).Mul(cfg.QuoteMultiplier(), new(big.Int).SetUint64(baseQty)),
	)
	size := cfg.BaseNativeToNumber(baseQty)

	feeCost := cfg.QuoteNativeToNumber(ev.NativeFeeOrRebate)
	if ev.Flags.IsMaker() {
		feeCost = -feeCost
	}

	return Fill{
		Side:          side,
		Price:         price,
		Size:          size,
		FeeCost:       feeCost,
		FeeTier:       ev.FeeTier,
		OrderID:       ev.OrderID,
		Owner:         ev.Owner,
		OwnerSlot:     ev.OwnerSlot,
		ClientOrderID: ev.ClientOrderID,
		SeqNum:        ev.SeqNum,
	}, true
}
