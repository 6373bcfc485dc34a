package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/inmosttrail/server/internal/config"
	"github.com/inmosttrail/server/internal/core/event"
	coresys "github.com/inmosttrail/server/internal/core/system"
	"github.com/inmosttrail/server/internal/data"
	"github.com/inmosttrail/server/internal/logging"
	gonet "github.com/inmosttrail/server/internal/net"
	"github.com/inmosttrail/server/internal/persist"
	"github.com/inmosttrail/server/internal/scripting"
	"github.com/inmosttrail/server/internal/system"
	"github.com/inmosttrail/server/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

var numbers = message.NewPrinter(language.English)

func printBanner(serverName string, protocol uint32) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            The Inmost Trail               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        avatar synchronization server      \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(protocol %d)\033[0m\n\n", serverName, protocol)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := numbers.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("TRAIL_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ProtocolVersion)

	// 3. Load unit catalog, spawn list and scripts
	printSection("data")
	units, err := data.LoadUnitTable(cfg.Data.UnitsPath)
	if err != nil {
		return fmt.Errorf("units: %w", err)
	}
	printStat("unit types", units.Count())

	spawns, err := data.LoadSpawnList(cfg.Data.SpawnsPath)
	if err != nil {
		return fmt.Errorf("spawns: %w", err)
	}
	printStat("spawn entries", len(spawns))

	terrain, err := data.LoadTerrain(cfg.Data.TerrainPath)
	if err != nil {
		return fmt.Errorf("terrain: %w", err)
	}
	printStat("terrain rects", len(terrain))

	engine, err := scripting.NewEngine(cfg.Data.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("scripts: %w", err)
	}
	defer engine.Close()
	printOK("lua scripts loaded")
	fmt.Println()

	// 4. World state
	bus := event.NewBus()
	worldState := world.NewState(world.Options{
		Width:          cfg.World.Width,
		Height:         cfg.World.Height,
		Capacity:       cfg.World.AvatarCapacity,
		WanderInterval: cfg.World.WanderInterval,
	}, units, bus, log)
	worldState.SetWanderer(engine)
	worldState.Paint(terrain)
	if !worldState.Passable(world.Point{X: cfg.World.SpawnX, Y: cfg.World.SpawnY}) {
		return fmt.Errorf("player spawn (%d,%d) is on blocked terrain", cfg.World.SpawnX, cfg.World.SpawnY)
	}

	// 5. Optional persistence; a restored population replaces the spawn list
	printSection("world")
	var persistSys *system.PersistenceSystem
	restored := 0
	if cfg.Database.DSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		if err := persist.RunMigrations(ctx, db.Pool, log); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")

		avatarRepo := persist.NewAvatarRepo(db)
		rows, err := avatarRepo.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("load avatars: %w", err)
		}
		restored = system.Restore(worldState, rows, log)
		printStat("restored avatars", restored)
		persistSys = system.NewPersistenceSystem(worldState, avatarRepo, log, cfg.SaveIntervalTicks())
	}
	if restored == 0 {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		printStat("spawned avatars", worldState.Populate(spawns, rng))
	}
	printStat("avatar capacity", worldState.Capacity())
	fmt.Println()

	// 6. Network server; the listener is created on the first tick
	netServer := gonet.NewServer(gonet.ServerConfig{
		BindAddress:     cfg.Network.BindAddress,
		ProtocolVersion: cfg.Server.ProtocolVersion,
		MaxReadsPerTick: cfg.Network.MaxReadsPerTick,
		MaxConnections:  cfg.Network.MaxConnections,
		IdleTimeout:     cfg.Network.IdleTimeout,
		PlayerUnit:      cfg.World.PlayerUnitType,
		Spawn:           world.Point{X: cfg.World.SpawnX, Y: cfg.World.SpawnY},
	}, worldState, bus, log)

	// 7. Create systems and register with runner
	runner := coresys.NewRunner()
	runner.Register(system.NewInputSystem(netServer, time.Now))
	runner.Register(system.NewEventSystem(bus))
	runner.Register(system.NewWorldSystem(worldState))
	runner.Register(system.NewOutputSystem(netServer))
	if persistSys != nil {
		runner.Register(persistSys)
	}
	runner.Register(system.NewCleanupSystem(netServer))

	// 8. Start game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Network.TickRate)
	defer ticker.Stop()

	runner.Tick(cfg.Network.TickRate)

	printSection("ready")
	printReady(fmt.Sprintf("bind address %s", cfg.Network.BindAddress))
	printReady(fmt.Sprintf("game loop running (tick: %s)", cfg.Network.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Network.TickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			if persistSys != nil {
				persistSys.SaveAll()
			}
			netServer.Shutdown()
			log.Info("server stopped",
				zap.Uint32("ticks", worldState.Tick()),
				zap.Int("avatars", worldState.Count()))
			return nil
		}
	}
}
