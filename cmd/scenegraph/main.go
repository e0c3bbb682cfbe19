package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/scenegraph/internal/config"
	coresys "github.com/l1jgo/scenegraph/internal/core/system"
	"github.com/l1jgo/scenegraph/internal/persist"
	"github.com/l1jgo/scenegraph/internal/scene"
	"github.com/l1jgo/scenegraph/internal/scripting"
	"github.com/l1jgo/scenegraph/internal/serial"
	"github.com/l1jgo/scenegraph/internal/system"
	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// historyLimit bounds the history printed by -snapshots.
const historyLimit = 20

type flags struct {
	snapshots bool
	reset     bool
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("scenegraph", flag.ContinueOnError)
	fs.BoolVar(&f.snapshots, "snapshots", false, "print stored snapshots and the history of the configured scene, then exit")
	fs.BoolVar(&f.reset, "reset", false, "delete the stored snapshot of the configured scene before loading")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if fs.NArg() > 0 {
		return f, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return f, nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}
	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(sceneName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             scenegraph  v0.1.0            \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mscene:\033[0m %s\n\n", sceneName)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

// ── Frame loop ─────────────────────────────────────────────────────

func run(f flags) error {
	// 1. Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if cfg.Profile.Enabled {
		defer profile.Start(profileMode(cfg.Profile.Mode), profile.ProfilePath(cfg.Profile.Dir), profile.NoShutdownHook).Stop()
	}

	printBanner(cfg.Scene.Name)

	// 3. Snapshot store: PostgreSQL when enabled, else the scene file
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		store system.SnapshotStore
		repo  *persist.SnapshotRepo
	)
	if (f.snapshots || f.reset) && !cfg.Database.Enabled {
		return errors.New("-snapshots and -reset need [database] enabled")
	}
	if cfg.Database.Enabled {
		printSection("database")
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		if err := persist.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		repo = persist.NewSnapshotRepo(db)
		store = repo
		printOK("snapshot store ready")

		if f.snapshots {
			return printSnapshots(ctx, os.Stdout, repo, cfg.Scene.Name)
		}
		if f.reset {
			if err := repo.Delete(ctx, cfg.Scene.Name); err != nil {
				return err
			}
			log.Info("snapshot deleted", zap.String("scene", cfg.Scene.Name))
		}
	} else if cfg.Scene.File != "" {
		store = &fileStore{path: cfg.Scene.File}
	}

	// 4. Scripts
	printSection("scripts")
	engine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return fmt.Errorf("scripts: %w", err)
	}
	defer engine.Close()
	printOK("lua engine loaded")

	// 5. Scene
	printSection("scene")
	ser := serial.NewSerializer(serial.DefaultCodecs(), log)
	opts := scene.Options{
		Name:        cfg.Scene.Name,
		DebugChecks: cfg.Hierarchy.DebugChecks,
		Host:        engine,
	}
	sc, err := loadScene(ctx, cfg, repo, ser, opts, log)
	if err != nil {
		return err
	}
	engine.Bind(sc)
	printStat("entities", sc.Len())
	printStat("script instances", engine.Instances())

	// 6. Systems
	runner := coresys.NewRunner()
	runner.Register(system.NewEventSystem(sc.Bus()))
	runner.Register(system.NewScriptSystem(sc))
	runner.Register(system.NewHierarchySystem(sc.Tree()))
	runner.Register(system.NewTransformSystem(sc))
	var persistSys *system.PersistenceSystem
	if store != nil {
		persistSys = system.NewPersistenceSystem(sc, ser, store, cfg.Persist.AutosaveInterval, log)
		runner.Register(persistSys)
	}
	runner.Register(system.NewCleanupSystem(sc))

	// 7. Frame loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Scene.FrameRate)
	defer ticker.Stop()

	if cfg.Scene.StartRunning {
		sc.Start()
	}
	printOK(fmt.Sprintf("frame loop started (frame: %s)", cfg.Scene.FrameRate))
	fmt.Println()

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			runner.Tick(now.Sub(last))
			last = now
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			sc.Stop()
			sc.DestroyQueued()
			if persistSys != nil {
				saveCtx, saveCancel := context.WithTimeout(context.Background(), 10*time.Second)
				if _, err := persistSys.Save(saveCtx); err != nil {
					log.Error("final save failed", zap.Error(err))
				}
				saveCancel()
			}
			log.Info("scene stopped", zap.String("scene", sc.Name()))
			return nil
		}
	}
}

// loadScene restores the scene from the newest database snapshot, falling
// back to the scene file, then to an empty scene.
func loadScene(ctx context.Context, cfg *config.Config, repo *persist.SnapshotRepo, ser *serial.Serializer, opts scene.Options, log *zap.Logger) (*scene.Scene, error) {
	if repo != nil {
		row, err := repo.Load(ctx, cfg.Scene.Name)
		switch {
		case err == nil:
			log.Info("scene restored from snapshot", zap.Time("saved_at", row.SavedAt))
			return ser.NewScene(row.Body, opts, log)
		case !errors.Is(err, persist.ErrNoSnapshot):
			return nil, err
		}
	}
	if cfg.Scene.File != "" {
		raw, err := os.ReadFile(cfg.Scene.File)
		switch {
		case err == nil:
			sc, err := ser.NewScene(raw, opts, log)
			if err != nil {
				return nil, fmt.Errorf("scene %s: %w", cfg.Scene.File, err)
			}
			return sc, nil
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read scene: %w", err)
		}
		log.Warn("scene file missing, starting empty", zap.String("file", cfg.Scene.File))
	}
	return scene.New(opts, log), nil
}

type snapshotLister interface {
	List(ctx context.Context) ([]persist.SnapshotRow, error)
	History(ctx context.Context, name string, limit int) ([]persist.SnapshotLogRow, error)
}

// printSnapshots writes every stored snapshot, then the recent history of
// the named scene.
func printSnapshots(ctx context.Context, w io.Writer, repo snapshotLister, name string) error {
	rows, err := repo.List(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%-24s %8s  %-16s  %s\n", "SCENE", "ENTITIES", "CHECKSUM", "SAVED")
	for _, r := range rows {
		fmt.Fprintf(w, "%-24s %8d  %-16s  %s\n", r.Name, r.Entities, shortSum(r.Checksum), r.SavedAt.Format(time.DateTime))
	}

	hist, err := repo.History(ctx, name, historyLimit)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nhistory of %s (%d)\n", name, len(hist))
	for _, h := range hist {
		fmt.Fprintf(w, "  #%-6d %8d  %-16s  %s\n", h.ID, h.Entities, shortSum(h.Checksum), h.SavedAt.Format(time.DateTime))
	}
	return nil
}

func shortSum(sum []byte) string {
	if len(sum) > 8 {
		sum = sum[:8]
	}
	return hex.EncodeToString(sum)
}

// fileStore saves snapshots to the scene file, skipping unchanged bodies.
type fileStore struct {
	path string
	sum  []byte
}

func (f *fileStore) Save(_ context.Context, _ string, body []byte, _ int) (bool, error) {
	sum := persist.Checksum(body)
	if bytes.Equal(sum, f.sum) {
		return false, nil
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return false, fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return false, fmt.Errorf("replace snapshot: %w", err)
	}
	f.sum = sum
	return true, nil
}

func profileMode(mode string) func(*profile.Profile) {
	switch mode {
	case "mem":
		return profile.MemProfile
	case "block":
		return profile.BlockProfile
	case "mutex":
		return profile.MutexProfile
	case "trace":
		return profile.TraceProfile
	}
	return profile.CPUProfile
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
