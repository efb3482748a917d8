package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tomb "gopkg.in/tomb.v2"

	"exstack/internal/common"
	"exstack/internal/config"
	"exstack/internal/exchange"
	"exstack/internal/transport"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load configuration")
	}

	t, ctx := tomb.WithContext(ctx)
	exch := exchange.New(t)

	seedDemoInstrumentsAndBrokers(exch)

	srv := transport.New(cfg.Host, cfg.Port, exch)
	t.Go(func() error {
		return srv.Run(ctx)
	})

	<-ctx.Done()
	t.Kill(nil)
	if err := t.Wait(); err != nil {
		log.Error().Err(err).Msg("exchange shut down with error")
	}
}

// seedDemoInstrumentsAndBrokers lists a couple of instruments and a demo
// broker so a freshly started exchange has something to trade without a
// separate admin channel, which is out of this spec's scope.
func seedDemoInstrumentsAndBrokers(exch *exchange.Exchange) {
	exch.ListStock(common.Stock{Symbol: "STI.", Name: "Stinova"}, decimal.Zero)
	exch.ListStock(common.Stock{Symbol: "ELAN", Name: "Elantris"}, decimal.Zero)

	exch.RegisterBroker("broker-1", "1", "2")
	exch.RegisterClient(common.Client{
		CSID:    "1",
		Name:    "demo-buyer",
		Balance: decimal.NewFromInt(100000),
		Holdings: map[string]int64{
			"STI.": 10000,
			"ELAN": 10000,
		},
	})
	exch.RegisterClient(common.Client{
		CSID:    "2",
		Name:    "demo-seller",
		Balance: decimal.NewFromInt(100000),
		Holdings: map[string]int64{
			"STI.": 10000,
			"ELAN": 10000,
		},
	})
}
