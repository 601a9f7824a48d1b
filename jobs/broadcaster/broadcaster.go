// Package broadcaster replays journaled fills to Kafka.
package broadcaster

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"bookmirror/infra/journal"
)

// Broadcaster drains the fill journal into a Kafka topic with
// at-least-once delivery: a fill is marked SENT before the publish
// attempt and ACKED only after the broker confirms it, so a crash
// between the two replays the fill on the next pass.
type Broadcaster struct {
	journal  *journal.FillJournal
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      *zap.Logger
}

func New(
	j *journal.FillJournal,
	brokers []string,
	topic string,
	interval time.Duration,
	log *zap.Logger,
) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Broadcaster{
		journal:  j,
		producer: producer,
		topic:    topic,
		interval: interval,
		log:      log,
	}, nil
}

// Run replays pending fills until the context is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.Info("broadcaster started", zap.String("topic", b.topic))

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.replayOnce(journal.StateNew)
			// Fills stuck in SENT were published but never
			// acknowledged; retry them too.
			b.replayOnce(journal.StateSent)
		}
	}
}

func (b *Broadcaster) replayOnce(state journal.State) {
	err := b.journal.ScanByState(state, func(seq uint32, rec journal.Record) error {
		if err := b.journal.MarkSent(seq); err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(fmt.Sprintf("%d", seq)),
			Value: sarama.ByteEncoder(rec.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			b.log.Warn("publish failed, will retry",
				zap.Uint32("seq", seq), zap.Error(err))
			return nil
		}

		return b.journal.MarkAcked(seq)
	})
	if err != nil {
		b.log.Error("journal scan failed", zap.Error(err))
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
