// Package service coordinates the decode core with the delivery
// infrastructure. It is the only place raw account buffers enter the
// system; the layer that fetches them is outside this repository.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"bookmirror/api/ws"
	"bookmirror/domain/book"
	"bookmirror/domain/market"
	"bookmirror/domain/queue"
	"bookmirror/domain/slab"
	"bookmirror/infra/journal"
	"bookmirror/infra/kafka"
)

// Depth is the published L2 snapshot of both sides.
type Depth struct {
	Market string       `json:"market"`
	Bids   []book.Level `json:"bids"`
	Asks   []book.Level `json:"asks"`
	Time   time.Time    `json:"time"`
}

// FillMessage is the journaled/broadcast form of one fill, enriched
// with the fee rates of the order's tier.
type FillMessage struct {
	Market        string  `json:"market"`
	Side          string  `json:"side"`
	Price         float64 `json:"price"`
	Size          float64 `json:"size"`
	FeeCost       float64 `json:"fee_cost"`
	FeeTier       uint8   `json:"fee_tier"`
	TakerRate     float64 `json:"taker_rate"`
	MakerRate     float64 `json:"maker_rate"`
	OrderID       string  `json:"order_id"`
	ClientOrderID uint64  `json:"client_order_id"`
	SeqNum        uint32  `json:"seq_num"`
}

// MarketDataService turns raw bids/asks/event-queue buffers into depth
// snapshots and journaled fills.
type MarketDataService struct {
	marketName  string
	cfg         market.Config
	depthLevels int

	journal *journal.FillJournal
	depth   *kafka.DepthPublisher
	hub     *ws.Hub[[]byte]
	log     *zap.Logger
}

// New wires the service. journal, depth and hub may each be nil when
// the corresponding sink is not configured.
func New(
	marketName string,
	cfg market.Config,
	depthLevels int,
	j *journal.FillJournal,
	depth *kafka.DepthPublisher,
	hub *ws.Hub[[]byte],
	log *zap.Logger,
) *MarketDataService {
	return &MarketDataService{
		marketName:  marketName,
		cfg:         cfg,
		depthLevels: depthLevels,
		journal:     j,
		depth:       depth,
		hub:         hub,
		log:         log,
	}
}

// ApplyBookUpdate decodes both sides of the book, aggregates depth and
// broadcasts the snapshot to the configured sinks.
func (s *MarketDataService) ApplyBookUpdate(ctx context.Context, bidsRaw, asksRaw []byte) (*Depth, error) {
	bidSlab, err := slab.Decode(bidsRaw)
	if err != nil {
		return nil, errors.Wrap(err, "decode bids")
	}
	askSlab, err := slab.Decode(asksRaw)
	if err != nil {
		return nil, errors.Wrap(err, "decode asks")
	}

	bids, err := book.New(market.Bid, bidSlab, s.cfg).GetL2(s.depthLevels)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate bids")
	}
	asks, err := book.New(market.Ask, askSlab, s.cfg).GetL2(s.depthLevels)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate asks")
	}

	d := &Depth{
		Market: s.marketName,
		Bids:   bids,
		Asks:   asks,
		Time:   time.Now().UTC(),
	}
	payload, err := json.Marshal(d)
	if err != nil {
		return nil, errors.Wrap(err, "marshal depth")
	}

	if s.hub != nil {
		s.hub.Broadcast(payload)
	}
	if s.depth != nil {
		if err := s.depth.Publish(ctx, s.marketName, payload); err != nil {
			s.log.Warn("depth publish failed", zap.Error(err))
		}
	}
	return d, nil
}

// ApplyEventQueue decodes the event queue and journals fills not seen
// before. It returns all fills currently in the queue, newest first.
func (s *MarketDataService) ApplyEventQueue(raw []byte) ([]queue.Fill, error) {
	q, err := queue.Decode(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode event queue")
	}
	fills := q.Fills(s.cfg, 0)

	if s.journal != nil {
		for _, f := range fills {
			payload, err := json.Marshal(s.fillMessage(f))
			if err != nil {
				return nil, errors.Wrap(err, "marshal fill")
			}
			if err := s.journal.Put(f.SeqNum, payload); err != nil {
				return nil, errors.Wrapf(err, "journal fill %d", f.SeqNum)
			}
		}
	}
	return fills, nil
}

func (s *MarketDataService) fillMessage(f queue.Fill) FillMessage {
	taker, maker := market.FeeRates(f.FeeTier)
	return FillMessage{
		Market:        s.marketName,
		Side:          f.Side.String(),
		Price:         f.Price,
		Size:          f.Size,
		FeeCost:       f.FeeCost,
		FeeTier:       f.FeeTier,
		TakerRate:     taker,
		MakerRate:     maker,
		OrderID:       f.OrderID.String(),
		ClientOrderID: f.ClientOrderID,
		SeqNum:        f.SeqNum,
	}
}
