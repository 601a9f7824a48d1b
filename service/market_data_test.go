package service_test

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookmirror/api/ws"
	"bookmirror/domain/market"
	"bookmirror/domain/queue"
	"bookmirror/domain/slab/slabtest"
	"bookmirror/infra/journal"
	"bookmirror/service"
)

var testCfg = market.Config{BaseLotSize: 1, QuoteLotSize: 1}

func newTestService(t *testing.T, hub *ws.Hub[[]byte]) (*service.MarketDataService, *journal.FillJournal) {
	t.Helper()
	j, err := journal.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return service.New("SOL/USDC", testCfg, 10, j, nil, hub, zap.NewNop()), j
}

func TestApplyBookUpdate(t *testing.T) {
	hub := ws.NewHub[[]byte]()
	sub := hub.Subscribe(1)
	svc, _ := newTestService(t, hub)

	bids := slabtest.NewBuilder().
		Add(market.Bid, 99, 1, 4, 0).
		Add(market.Bid, 98, 2, 2, 0).
		Bytes()
	asks := slabtest.NewBuilder().
		Add(market.Ask, 101, 3, 5, 0).
		Bytes()

	d, err := svc.ApplyBookUpdate(context.Background(), bids, asks)
	require.NoError(t, err)
	require.Equal(t, "SOL/USDC", d.Market)
	require.Len(t, d.Bids, 2)
	require.Len(t, d.Asks, 1)
	require.Equal(t, uint64(99), d.Bids[0].PriceLots)
	require.Equal(t, uint64(101), d.Asks[0].PriceLots)

	// The same snapshot goes out on the hub.
	select {
	case payload := <-sub.C():
		var got service.Depth
		require.NoError(t, json.Unmarshal(payload, &got))
		require.Equal(t, d.Bids, got.Bids)
		require.Equal(t, d.Asks, got.Asks)
	default:
		t.Fatal("no depth broadcast on the hub")
	}
}

func TestApplyBookUpdateBadBuffer(t *testing.T) {
	svc, _ := newTestService(t, nil)
	asks := slabtest.NewBuilder().Bytes()

	_, err := svc.ApplyBookUpdate(context.Background(), []byte("garbage"), asks)
	require.ErrorContains(t, err, "decode bids")

	_, err = svc.ApplyBookUpdate(context.Background(), asks, []byte("garbage"))
	require.ErrorContains(t, err, "decode asks")
}

func TestApplyEventQueueJournalsFills(t *testing.T) {
	svc, j := newTestService(t, nil)

	fills, err := svc.ApplyEventQueue(buildFillQueue(3, 2))
	require.NoError(t, err)
	require.Len(t, fills, 2)

	// Newest first.
	require.Equal(t, uint32(3), fills[0].SeqNum)
	require.Equal(t, uint32(2), fills[1].SeqNum)

	for _, f := range fills {
		rec, err := j.Get(f.SeqNum)
		require.NoError(t, err)
		require.Equal(t, journal.StateNew, rec.State)

		var msg service.FillMessage
		require.NoError(t, json.Unmarshal(rec.Payload, &msg))
		require.Equal(t, "SOL/USDC", msg.Market)
		require.Equal(t, f.SeqNum, msg.SeqNum)
		require.Equal(t, f.Price, msg.Price)
		require.Equal(t, 0.0022, msg.TakerRate)
	}
}

func TestApplyEventQueueIdempotent(t *testing.T) {
	svc, j := newTestService(t, nil)
	raw := buildFillQueue(5, 1)

	_, err := svc.ApplyEventQueue(raw)
	require.NoError(t, err)
	require.NoError(t, j.MarkSent(5))

	// Re-applying the same snapshot must not reset delivery state.
	_, err = svc.ApplyEventQueue(raw)
	require.NoError(t, err)
	rec, err := j.Get(5)
	require.NoError(t, err)
	require.Equal(t, journal.StateSent, rec.State)
}

func TestApplyEventQueueBadBuffer(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.ApplyEventQueue([]byte{1, 2, 3})
	require.ErrorContains(t, err, "decode event queue")
}

// buildFillQueue serializes a queue whose newest event carries seqNum
// and which holds count consecutive taker-sell fills.
func buildFillQueue(seqNum uint32, count int) []byte {
	ring := count + 2
	buf := make([]byte, queue.HeaderLen+ring*queue.EventLen)
	binary.LittleEndian.PutUint32(buf[21:25], uint32(count))
	binary.LittleEndian.PutUint32(buf[29:33], seqNum)
	for i := 0; i < count; i++ {
		rec := buf[queue.HeaderLen+i*queue.EventLen:][:queue.EventLen]
		rec[0] = byte(queue.EventFlagFill)
		binary.LittleEndian.PutUint64(rec[8:16], 100) // released
		binary.LittleEndian.PutUint64(rec[16:24], 50) // paid
		binary.LittleEndian.PutUint64(rec[80:88], uint64(1000+i))
	}
	return buf
}
