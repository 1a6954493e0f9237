package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ljtgentle/solana-scan/internal/bus"
	"github.com/ljtgentle/solana-scan/internal/chain"
	"github.com/ljtgentle/solana-scan/internal/config"
	"github.com/ljtgentle/solana-scan/internal/dispatch"
	"github.com/ljtgentle/solana-scan/internal/httpapi"
	"github.com/ljtgentle/solana-scan/internal/registry"
	"github.com/ljtgentle/solana-scan/internal/scanner"
	"github.com/ljtgentle/solana-scan/internal/store"
	"github.com/ljtgentle/solana-scan/internal/wsapi"
	"github.com/ljtgentle/solana-scan/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "solscan",
		Usage: "Solana address-watch scanning service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "solana-rpc-url", Aliases: []string{"r"}, Usage: "Solana JSON-RPC endpoint"},
			&cli.StringFlag{Name: "mongodb-uri", Aliases: []string{"m"}, Usage: "Persistent store connection string"},
			&cli.StringFlag{Name: "kafka-brokers", Aliases: []string{"k"}, Usage: "Comma-separated Kafka broker list"},
			&cli.IntFlag{Name: "rpc-port", Aliases: []string{"P"}, Usage: "Control plane HTTP port"},
			&cli.IntFlag{Name: "websocket-port", Aliases: []string{"w"}, Usage: "Push channel port"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if c.IsSet("solana-rpc-url") {
		cfg.SolanaRPCURL = c.String("solana-rpc-url")
	}
	if c.IsSet("mongodb-uri") {
		cfg.MongoDBURI = c.String("mongodb-uri")
	}
	if c.IsSet("kafka-brokers") {
		cfg.KafkaBrokers = c.String("kafka-brokers")
	}
	if c.IsSet("rpc-port") {
		cfg.RPCPort = c.Int("rpc-port")
	}
	if c.IsSet("websocket-port") {
		cfg.WebsocketPort = c.Int("websocket-port")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}

	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	st, err := store.NewPostgresStore(cfg.MongoDBURI, log)
	if err != nil {
		return fmt.Errorf("failed to connect to store: %w", err)
	}

	chainClient := chain.New(cfg.SolanaRPCURL)

	brokers := strings.Split(cfg.KafkaBrokers, ",")
	publisher, err := bus.NewKafkaPublisher(brokers, cfg.KafkaClientID, cfg.KafkaTransactionTopic, log)
	if err != nil {
		return fmt.Errorf("failed to connect to message bus: %w", err)
	}

	reg := registry.New()
	dispatcher := dispatch.New(st, publisher, reg, log)

	scan := scanner.New(chainClient, st, dispatcher, log, scanner.Config{
		Tick:                  cfg.ScanTick,
		MaxConcurrentRequests: cfg.MaxConcurrentRequests,
		BootstrapWindow:       cfg.BootstrapWindow,
		MaxAddresses:          cfg.MaxAddresses,
	})

	httpServer := httpapi.New(scan, cfg.RPCPort, log)
	wsServer := wsapi.New(reg, cfg.WebsocketPort, log)

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go httpServer.Start()
	go wsServer.Start()
	go func() {
		if err := scan.Start(ctx); err != nil {
			log.Error("scanner stopped with error", "error", err)
		}
	}()

	sig := <-sigChan
	log.Info("received shutdown signal", "signal", sig.String())
	cancel()

	if err := httpServer.Shutdown(); err != nil {
		log.Error("error shutting down control plane", "error", err)
	}
	if err := wsServer.Shutdown(); err != nil {
		log.Error("error shutting down push channel", "error", err)
	}
	if err := publisher.Close(); err != nil {
		log.Error("error closing bus publisher", "error", err)
	}
	if err := st.Close(); err != nil {
		log.Error("error closing store", "error", err)
	}

	log.Info("shutdown complete")
	return nil
}
