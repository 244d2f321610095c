// Command engine wires every subsystem in dependency order and runs the
// options-trading runtime until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dufanyin/optionrunner/internal/config"
	"github.com/dufanyin/optionrunner/internal/domain"
	"github.com/dufanyin/optionrunner/internal/eventbus"
	"github.com/dufanyin/optionrunner/internal/gateway"
	"github.com/dufanyin/optionrunner/internal/hedge"
	"github.com/dufanyin/optionrunner/internal/httpapi"
	"github.com/dufanyin/optionrunner/internal/logging"
	"github.com/dufanyin/optionrunner/internal/persistence"
	"github.com/dufanyin/optionrunner/internal/portfolio"
	"github.com/dufanyin/optionrunner/internal/position"
	"github.com/dufanyin/optionrunner/internal/strategy"
	"github.com/dufanyin/optionrunner/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults to ./config.yaml when present)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("engine failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	bus := eventbus.New(logger)
	store := portfolio.New(logger)
	adapter := gateway.NewMockAdapter(logger, bus)
	positions := position.New(logger, store)

	classRegistry := strategy.NewRegistry()

	settingFile := persistence.NewBlobFile[domain.StrategyConfig](cfg.Persistence.SettingPath)
	dataFile := persistence.NewBlobFile[position.SerializedHolding](cfg.Persistence.DataPath)

	manager, err := strategy.New(logger, bus, adapter, positions, store, classRegistry, settingFile, dataFile)
	if err != nil {
		return err
	}

	hedger := hedge.New(logger, bus, manager, positions)
	manager.SetHedger(hedger)
	positions.SetSender(manager)
	positions.SetLookup(manager)

	// Handler registration order fixes delivery order per event type: the
	// manager's OMS cache updates land before the position engine accounts
	// for the same trade, and both before the hedging evaluation.
	manager.RegisterWithBus(bus)
	positions.RegisterWithBus(bus)
	hedger.RegisterWithBus(bus)
	bus.Register(eventbus.EventContract, func(ev eventbus.Event) {
		if ce, ok := ev.(eventbus.ContractEvent); ok {
			store.IngestContract(ce.Contract)
		}
	})
	bus.Register(eventbus.EventTimer, func(eventbus.Event) {
		adapter.ProcessTimer()
	})
	registerMetricsTaps(bus, m, manager)

	var api *httpapi.Server
	if cfg.HTTP.Enabled {
		api = httpapi.New(logger, cfg.HTTP.Addr, manager, positions, registry)
		api.Hub().AttachBus(bus)
	}

	bus.Start()
	if api != nil {
		api.Start()
	}

	if err := adapter.Connect(cfg.Gateway.Host, cfg.Gateway.Port, cfg.Gateway.ClientID, cfg.Gateway.Account); err != nil {
		logger.Warn("initial gateway connect failed, heartbeat will retry", zap.Error(err))
	}

	logger.Info("engine started",
		zap.Strings("strategy_classes", classRegistry.ClassNames()),
		zap.String("setting_file", settingFile.Path()),
		zap.String("data_file", dataFile.Path()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := manager.Close(); err != nil {
		logger.Error("strategy manager close failed", zap.Error(err))
	}
	if api != nil {
		if err := api.Stop(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", zap.Error(err))
		}
	}
	if err := adapter.Disconnect(); err != nil {
		logger.Error("gateway disconnect failed", zap.Error(err))
	}
	bus.Stop()
	return nil
}

// registerMetricsTaps mirrors bus/OMS activity into the Prometheus
// collectors without coupling the engine packages to pkg/metrics.
func registerMetricsTaps(bus *eventbus.Bus, m *metrics.Metrics, manager *strategy.Manager) {
	bus.Register(eventbus.EventOrder, func(ev eventbus.Event) {
		oe, ok := ev.(eventbus.OrderEvent)
		if !ok {
			return
		}
		switch oe.Order.Status {
		case domain.StatusSubmitting:
			m.OrdersSent.Inc()
			if strings.HasPrefix(oe.Order.Reference, "Hedge_") {
				m.HedgeOrdersSent.Inc()
			}
		case domain.StatusAllTraded:
			m.OrdersFilled.Inc()
		case domain.StatusRejected:
			m.OrdersRejected.Inc()
		case domain.StatusCancelled:
			m.OrdersCancelled.Inc()
		}
	})
	bus.Register(eventbus.EventTrade, func(ev eventbus.Event) {
		if _, ok := ev.(eventbus.TradeEvent); ok {
			m.TradesReceived.Inc()
		}
	})
	bus.Register(eventbus.EventTimer, func(eventbus.Event) {
		stats := bus.Stats()
		m.EventsPublished.Set(float64(stats.Published))
		m.EventsProcessed.Set(float64(stats.Processed))
		m.EventsDropped.Set(float64(stats.Dropped))
		m.ActiveStrategies.Set(float64(len(manager.StrategyNames())))
	})
}
