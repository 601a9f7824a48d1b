package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"bookmirror/api/ws"
	"bookmirror/domain/market"
	"bookmirror/infra/journal"
	"bookmirror/infra/kafka"
	"bookmirror/jobs/broadcaster"
	"bookmirror/service"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "websocket feed listen address")
		dataDir     = flag.String("data", "./account_data", "directory with raw account dumps (bids.bin, asks.bin, events.bin)")
		journalDir  = flag.String("journal", "./journal_data", "fill journal directory")
		brokers     = flag.String("brokers", "", "comma-separated Kafka brokers (empty disables Kafka)")
		depthTopic  = flag.String("depth-topic", "market.depth", "Kafka topic for depth snapshots")
		fillTopic   = flag.String("fill-topic", "market.fills", "Kafka topic for fills")
		marketName  = flag.String("market", "BASE/QUOTE", "market name used in published payloads")
		depthLevels = flag.Int("depth", 20, "price levels per side in depth snapshots")
		interval    = flag.Duration("interval", 2*time.Second, "account re-read interval")

		baseLotSize   = flag.Uint64("base-lot-size", 100_000, "base lot size in native units")
		quoteLotSize  = flag.Uint64("quote-lot-size", 100, "quote lot size in native units")
		baseDecimals  = flag.Uint("base-decimals", 9, "base token decimals")
		quoteDecimals = flag.Uint("quote-decimals", 6, "quote token decimals")
	)
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg := market.Config{
		BaseLotSize:   *baseLotSize,
		QuoteLotSize:  *quoteLotSize,
		BaseDecimals:  uint32(*baseDecimals),
		QuoteDecimals: uint32(*quoteDecimals),
	}
	log.Info("market configured",
		zap.String("market", *marketName),
		zap.Float64("tick_size", cfg.TickSize()),
		zap.Float64("min_order_size", cfg.MinOrderSize()),
	)

	fillJournal, err := journal.Open(*journalDir)
	if err != nil {
		log.Fatal("journal init failed", zap.Error(err))
	}
	defer fillJournal.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var depthPub *kafka.DepthPublisher
	if *brokers != "" {
		brokerList := strings.Split(*brokers, ",")

		depthPub = kafka.NewDepthPublisher(brokerList, *depthTopic)
		defer depthPub.Close()

		bc, err := broadcaster.New(fillJournal, brokerList, *fillTopic, 250*time.Millisecond, log)
		if err != nil {
			log.Fatal("broadcaster init failed", zap.Error(err))
		}
		defer bc.Close()
		go bc.Run(ctx)
	}

	hub := ws.NewHub[[]byte]()
	svc := service.New(*marketName, cfg, *depthLevels, fillJournal, depthPub, hub, log)

	mux := http.NewServeMux()
	mux.Handle("/ws/depth", ws.NewFeedServer(hub, log))
	srv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		log.Info("feed server listening", zap.String("addr", *addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("feed server exited", zap.Error(err))
		}
	}()

	// The fetch layer that talks to the chain is outside this
	// repository; account dumps dropped into the data directory
	// stand in for it.
	go pollAccounts(ctx, svc, *dataDir, *interval, log)

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func pollAccounts(
	ctx context.Context,
	svc *service.MarketDataService,
	dir string,
	interval time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		bids, errB := os.ReadFile(filepath.Join(dir, "bids.bin"))
		asks, errA := os.ReadFile(filepath.Join(dir, "asks.bin"))
		if errB == nil && errA == nil {
			if _, err := svc.ApplyBookUpdate(ctx, bids, asks); err != nil {
				log.Error("book update failed", zap.Error(err))
			}
		}

		if events, err := os.ReadFile(filepath.Join(dir, "events.bin")); err == nil {
			if _, err := svc.ApplyEventQueue(events); err != nil {
				log.Error("event queue update failed", zap.Error(err))
			}
		}
	}
}
