package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/framecore/framecore/internal/config"
	"github.com/framecore/framecore/internal/core/system"
	"github.com/framecore/framecore/internal/data"
	"github.com/framecore/framecore/internal/engine"
	"github.com/framecore/framecore/internal/persist"
	"github.com/framecore/framecore/internal/render"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := "config/framecore.toml"
	if p := os.Getenv("FRAMECORE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = config.Default()
	} else if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	stopProfile, err := startProfile(cfg.Profile)
	if err != nil {
		return err
	}
	defer stopProfile()

	// 3. Open the save store
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("save store: %w", err)
	}
	defer closeStore()

	// 4. Create the engine
	eng, err := engine.New(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			log.Warn("engine close", zap.Error(err))
		}
	}()

	// 5. Restore the last session, or build the scenes described in config
	err = eng.LoadFrom(ctx, store, cfg.Save.Slot)
	switch {
	case errors.Is(err, persist.ErrSlotNotFound):
		if err := buildScenes(cfg.Save.Scenes, eng, log); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("restore %s: %w", cfg.Save.Slot, err)
	}

	// 6. Frame loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Loop.FrameTime())
	defer ticker.Stop()

	var deadline <-chan time.Time
	if cfg.Loop.Duration > 0 {
		deadline = time.After(cfg.Loop.Duration)
	}

	log.Info("frame loop started",
		zap.Duration("frame_time", cfg.Loop.FrameTime()),
		zap.Int("scenes", eng.Scenes().Len()),
		zap.Int("scenes2d", eng.Scenes2D().Len()),
	)

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			dt := float32(now.Sub(last).Seconds())
			last = now
			eng.Update(dt)
			if err := eng.Render(dt); err != nil {
				if errors.Is(err, render.ErrContextLost) {
					return err
				}
				log.Warn("frame dropped", zap.Uint64("frame", eng.Frames()), zap.Error(err))
			}
			if f := eng.Frames(); f > 0 && f%statsInterval == 0 {
				log.Debug("frame timings",
					zap.Uint64("frame", f),
					zap.Duration("resources", eng.PhaseTime(system.PhaseResources)),
					zap.Duration("scenes", eng.PhaseTime(system.PhaseScenes)),
					zap.Duration("scenes2d", eng.PhaseTime(system.PhaseScenes2D)),
					zap.Duration("ui", eng.UITime()),
				)
			}
		case <-deadline:
			log.Info("run duration reached")
			return save(eng, store, cfg.Save.Slot, log)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			return save(eng, store, cfg.Save.Slot, log)
		}
	}
}

// statsInterval is how many frames pass between timing logs.
const statsInterval = 600

func buildScenes(path string, eng *engine.Engine, log *zap.Logger) error {
	if path == "" {
		return nil
	}
	table, err := data.LoadSceneTable(path)
	if err != nil {
		return err
	}
	if err := table.Build(eng.Resources(), eng.Scenes(), eng.Scenes2D(), eng.Behaviors()); err != nil {
		return fmt.Errorf("build scenes: %w", err)
	}
	log.Info("scenes built", zap.String("file", path), zap.Int("count", table.Count()))
	return nil
}

func save(eng *engine.Engine, store persist.Store, slot string, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := eng.SaveTo(ctx, store, slot); err != nil {
		return fmt.Errorf("save %s: %w", slot, err)
	}
	log.Info("stopped", zap.Uint64("frames", eng.Frames()))
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (persist.Store, func(), error) {
	switch cfg.Save.Backend {
	case "", "file":
		s, err := persist.NewFileStore(cfg.Save.Dir, log.Named("save"))
		return s, func() {}, err
	case "postgres":
		db, err := persist.NewDB(ctx, cfg.Database, log.Named("db"))
		if err != nil {
			return nil, nil, err
		}
		if err := persist.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return persist.NewPGStore(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown save backend %q", cfg.Save.Backend)
	}
}

func startProfile(cfg config.ProfileConfig) (func(), error) {
	var mode func(*profile.Profile)
	switch cfg.Mode {
	case "":
		return func() {}, nil
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfile
	case "allocs":
		mode = profile.MemProfileAllocs
	default:
		return nil, fmt.Errorf("unknown profile mode %q", cfg.Mode)
	}
	p := profile.Start(mode, profile.ProfilePath(cfg.Path), profile.NoShutdownHook, profile.Quiet)
	return p.Stop, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
