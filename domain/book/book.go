// Package book provides the human-facing view over a decoded slab:
// priority-ordered order enumeration and aggregated L2 depth.
package book

import (
	"bookmirror/domain/market"
	"bookmirror/domain/slab"
)

// Order is one resting order, derived on demand from a leaf plus the
// market's lot configuration. It has no lifecycle of its own.
type Order struct {
	OrderID       market.Key
	ClientOrderID uint64
	Owner         [32]byte
	OwnerSlot     uint8
	FeeTier       uint8
	Price         float64
	PriceLots     uint64
	Size          float64
	SizeLots      uint64
	Side          market.Side
}

// Level is one aggregated price level of the L2 view.
type Level struct {
	Price     float64
	Size      float64
	PriceLots uint64
	SizeLots  uint64
}

// Orderbook is a read-only view of one side of a market.
type Orderbook struct {
	side market.Side
	slab *slab.Slab
	cfg  market.Config
}

func New(side market.Side, s *slab.Slab, cfg market.Config) *Orderbook {
	return &Orderbook{side: side, slab: s, cfg: cfg}
}

func (b *Orderbook) Side() market.Side { return b.side }

// Orders returns the resting orders in execution-priority order: best
// price first, earlier sequence first within a price.
func (b *Orderbook) Orders() ([]Order, error) {
	var orders []Order
	err := b.slab.Walk(false, func(leaf *slab.LeafNode) bool {
		priceLots, _ := market.DecodeOrderKey(b.side, leaf.Key)
		orders = append(orders, Order{
			OrderID:       leaf.Key,
			ClientOrderID: leaf.ClientOrderID,
			Owner:         leaf.Owner,
			OwnerSlot:     leaf.OwnerSlot,
			FeeTier:       leaf.FeeTier,
			Price:         b.cfg.PriceLotsToNumber(priceLots),
			PriceLots:     priceLots,
			Size:          b.cfg.BaseSizeLotsToNumber(leaf.Quantity),
			SizeLots:      leaf.Quantity,
			Side:          b.side,
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// GetL2 aggregates the book into at most depth price levels, best
// first. Consecutive leaves at the same price merge into one level;
// the walk stops once depth distinct prices have been emitted.
func (b *Orderbook) GetL2(depth int) ([]Level, error) {
	var levels []Level
	err := b.slab.Walk(false, func(leaf *slab.LeafNode) bool {
		priceLots, _ := market.DecodeOrderKey(b.side, leaf.Key)
		if n := len(levels); n > 0 && levels[n-1].PriceLots == priceLots {
			levels[n-1].SizeLots += leaf.Quantity
			return true
		}
		if len(levels) == depth {
			return false
		}
		levels = append(levels, Level{PriceLots: priceLots, SizeLots: leaf.Quantity})
		return true
	})
	if err != nil {
		return nil, err
	}
	for i := range levels {
		levels[i].Price = b.cfg.PriceLotsToNumber(levels[i].PriceLots)
		levels[i].Size = b.cfg.BaseSizeLotsToNumber(levels[i].SizeLots)
	}
	return levels, nil
}
