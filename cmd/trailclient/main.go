// trailclient is a headless client: it registers with a server, mirrors
// every avatar it hears about and wanders its own avatar around.
//
// Usage:
//
//	go run ./cmd/trailclient -addr 127.0.0.1:27000 -walk 2s
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/inmosttrail/server/internal/config"
	"github.com/inmosttrail/server/internal/logging"
	gonet "github.com/inmosttrail/server/internal/net"
	"github.com/inmosttrail/server/internal/net/packet"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := "config/server.toml"
	if p := os.Getenv("TRAIL_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fs := flag.NewFlagSet("trailclient", flag.ExitOnError)
	addr := fs.String("addr", cfg.Client.ServerAddress, "server address")
	walkEvery := fs.Duration("walk", 2*time.Second, "interval between random walk commands (0 = never)")
	fs.Parse(os.Args[1:])

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	sock, err := gonet.Dial(*addr, cfg.Client.ConnectTimeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", *addr, err)
	}
	client := gonet.NewClient(sock, gonet.ClientConfig{
		ProtocolVersion: cfg.Server.ProtocolVersion,
		MaxReadsPerTick: cfg.Network.MaxReadsPerTick,
		PingInterval:    cfg.Client.PingInterval,
		BucketSize:      cfg.Client.BucketSize,
		BucketRefill:    cfg.Client.BucketRefill,
	}, log.With(zap.String("server", *addr)))
	defer client.Close()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Network.TickRate)
	defer ticker.Stop()
	report := time.NewTicker(5 * time.Second)
	defer report.Stop()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var lastWalk time.Time

	for {
		select {
		case now := <-ticker.C:
			client.Update(now)
			if client.Closed() {
				return fmt.Errorf("connection to %s lost", *addr)
			}
			if *walkEvery > 0 && client.State() == packet.StateRegistered && now.Sub(lastWalk) >= *walkEvery {
				lastWalk = now
				client.WalkTo(uint32(rng.Intn(int(cfg.World.Width))), uint32(rng.Intn(int(cfg.World.Height))))
			}
		case <-report.C:
			log.Info("client status",
				zap.Stringer("avatar", client.Avatar()),
				zap.Int("known", client.Known()),
				zap.Duration("rtt", client.RTT()),
				zap.Float64("clock_offset", client.ClockOffset()))
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			return nil
		}
	}
}
