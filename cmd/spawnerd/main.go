package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/craftmods/cobblespawner/internal/catalog"
	"github.com/craftmods/cobblespawner/internal/config"
	"github.com/craftmods/cobblespawner/internal/db"
	"github.com/craftmods/cobblespawner/internal/model"
	"github.com/craftmods/cobblespawner/internal/ops"
	"github.com/craftmods/cobblespawner/internal/spawn"
	"github.com/craftmods/cobblespawner/internal/world"
)

const (
	defaultConfigPath = "config/spawnerd.yaml"
	demoDimension     = "overworld"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil && err != context.Canceled {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Optional .env for database credentials and config path overrides.
	_ = godotenv.Load()

	cfgPath := defaultConfigPath
	if p := os.Getenv("SPAWNERD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("spawnerd starting", "log_level", cfg.LogLevel, "tick_millis", cfg.TickMillis)

	// Persistence: PostgreSQL when configured, in-memory otherwise.
	var store spawn.Store
	if cfg.Database.Host != "" {
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		slog.Info("database connected")

		if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("database migrations applied")

		store = db.NewSpawnerRepository(database.Pool())
	} else {
		slog.Info("no database configured, using in-memory store")
		store = spawn.NewMemoryStore()
	}

	// Species and item catalog.
	registry := catalog.DemoRegistry()
	if cfg.CatalogPath != "" {
		if err := registry.LoadFile(cfg.CatalogPath); err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
	}
	slog.Info("catalog loaded", "species", registry.SpeciesCount())

	// Demo world.
	overworld := world.NewMemory(demoDimension)
	world.Generate(overworld, world.GenConfig{
		Seed:      cfg.World.Seed,
		Radius:    cfg.World.Radius,
		BaseY:     cfg.World.BaseY,
		Amplitude: cfg.World.Amplitude,
		WaterY:    cfg.World.WaterY,
	})
	worlds := world.NewSource()
	worlds.Register(overworld)
	slog.Info("demo world generated", "dimension", demoDimension, "radius", cfg.World.Radius)

	sink := ops.NewSink()
	engine := spawn.NewEngine(store, worlds, registry, registry, spawn.Options{
		StatBudget: cfg.Global.StatBudget,
		CullOnStop: cfg.Global.CullOnStop,
		Events:     sink,
	})
	opsServer := ops.NewServer(engine, sink)

	if err := engine.Load(ctx); err != nil {
		return fmt.Errorf("loading spawners: %w", err)
	}
	if engine.SpawnerCount() == 0 {
		if err := seedDemoSpawner(ctx, engine, overworld); err != nil {
			return fmt.Errorf("seeding demo spawner: %w", err)
		}
	}
	engine.StaggerTimers()

	runner := spawn.NewRunner(engine, func() { overworld.AdvanceTick() })

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Start(gctx, cfg.TickInterval())
	})
	if cfg.OpsBind != "" {
		g.Go(func() error {
			return opsServer.Run(gctx, cfg.OpsBind)
		})
	}

	err = g.Wait()
	engine.Shutdown()
	slog.Info("spawnerd stopped")
	return err
}

// seedDemoSpawner places one spawner on the demo terrain so a fresh start
// has something to watch.
func seedDemoSpawner(ctx context.Context, engine *spawn.Engine, w *world.Memory) error {
	pos := surfaceAt(w, 0, 0)
	key := model.NewSpawnerKey(pos, w.Dimension())

	spawner, err := engine.AddSpawner(ctx, key, "spawner_1")
	if err != nil {
		return err
	}

	entry := model.NewSpawnEntry("Fieldmouse")
	entry.MaxLevel = 20
	entry.ShinyChance = 1
	if !engine.AddEntry(ctx, spawner.Key(), entry) {
		return fmt.Errorf("adding demo entry")
	}

	slog.Info("demo spawner seeded", "key", key)
	return nil
}

// surfaceAt scans a column downward for the first standable position.
func surfaceAt(w *world.Memory, x, z int32) model.Position {
	for y := int32(127); y > 0; y-- {
		pos := model.NewPosition(x, y, z)
		if !w.BlockAt(pos.Down()).Passable() && w.BlockAt(pos).Passable() {
			return pos
		}
	}
	return model.NewPosition(x, 64, z)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
