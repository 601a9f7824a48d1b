package book_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bookmirror/domain/book"
	"bookmirror/domain/market"
	"bookmirror/domain/slab"
	"bookmirror/domain/slab/slabtest"
)

// unitCfg keeps lots equal to human numbers so level math is readable.
var unitCfg = market.Config{BaseLotSize: 1, QuoteLotSize: 1}

func decodeSide(t *testing.T, b *slabtest.Builder) *slab.Slab {
	t.Helper()
	s, err := slab.Decode(b.Bytes())
	require.NoError(t, err)
	return s
}

func TestGetL2MergesEqualPrices(t *testing.T) {
	s := decodeSide(t, slabtest.NewBuilder().
		Add(market.Ask, 100, 1, 5, 0).
		Add(market.Ask, 100, 2, 3, 0).
		Add(market.Ask, 101, 3, 7, 0))

	levels, err := book.New(market.Ask, s, unitCfg).GetL2(2)
	require.NoError(t, err)
	require.Equal(t, []book.Level{
		{Price: 100, Size: 8, PriceLots: 100, SizeLots: 8},
		{Price: 101, Size: 7, PriceLots: 101, SizeLots: 7},
	}, levels)
}

func TestGetL2DepthTruncates(t *testing.T) {
	s := decodeSide(t, slabtest.NewBuilder().
		Add(market.Ask, 100, 1, 5, 0).
		Add(market.Ask, 101, 2, 3, 0).
		Add(market.Ask, 102, 3, 7, 0))

	levels, err := book.New(market.Ask, s, unitCfg).GetL2(1)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	require.Equal(t, uint64(100), levels[0].PriceLots)
}

func TestGetL2BidsBestFirst(t *testing.T) {
	s := decodeSide(t, slabtest.NewBuilder().
		Add(market.Bid, 99, 1, 2, 0).
		Add(market.Bid, 101, 2, 4, 0).
		Add(market.Bid, 100, 3, 6, 0))

	levels, err := book.New(market.Bid, s, unitCfg).GetL2(10)
	require.NoError(t, err)
	require.Len(t, levels, 3)
	require.Equal(t, uint64(101), levels[0].PriceLots)
	require.Equal(t, uint64(100), levels[1].PriceLots)
	require.Equal(t, uint64(99), levels[2].PriceLots)
}

func TestGetL2Empty(t *testing.T) {
	s := decodeSide(t, slabtest.NewBuilder())
	levels, err := book.New(market.Bid, s, unitCfg).GetL2(5)
	require.NoError(t, err)
	require.Empty(t, levels)
}

func TestOrdersPriorityOrder(t *testing.T) {
	s := decodeSide(t, slabtest.NewBuilder().
		Add(market.Ask, 101, 5, 7, 33).
		Add(market.Ask, 100, 9, 5, 31).
		Add(market.Ask, 100, 2, 3, 32))

	orders, err := book.New(market.Ask, s, unitCfg).Orders()
	require.NoError(t, err)
	require.Len(t, orders, 3)

	// Best price first, then earliest sequence within the price.
	require.Equal(t, uint64(100), orders[0].PriceLots)
	require.Equal(t, uint64(3), orders[0].SizeLots)
	require.Equal(t, uint64(32), orders[0].ClientOrderID)
	require.Equal(t, uint64(100), orders[1].PriceLots)
	require.Equal(t, uint64(31), orders[1].ClientOrderID)
	require.Equal(t, uint64(101), orders[2].PriceLots)
	for _, o := range orders {
		require.Equal(t, market.Ask, o.Side)
	}
}

func TestOrdersUsesMarketConfig(t *testing.T) {
	cfg := market.Config{
		BaseLotSize:   100_000_000,
		QuoteLotSize:  100,
		BaseDecimals:  9,
		QuoteDecimals: 6,
	}
	s := decodeSide(t, slabtest.NewBuilder().Add(market.Bid, 25_000, 1, 15, 0))

	orders, err := book.New(market.Bid, s, cfg).Orders()
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, 25.0, orders[0].Price)
	require.Equal(t, 1.5, orders[0].Size)
}
