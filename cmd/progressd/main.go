package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/l1jgo/progress/internal/api"
	"github.com/l1jgo/progress/internal/config"
	"github.com/l1jgo/progress/internal/core/ecs"
	"github.com/l1jgo/progress/internal/core/event"
	coresys "github.com/l1jgo/progress/internal/core/system"
	"github.com/l1jgo/progress/internal/data"
	"github.com/l1jgo/progress/internal/metrics"
	"github.com/l1jgo/progress/internal/persist"
	"github.com/l1jgo/progress/internal/plugin"
	"github.com/l1jgo/progress/internal/scripting"
	"github.com/l1jgo/progress/internal/state"
	"github.com/l1jgo/progress/internal/system"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "v0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := "config/progressd.toml"
	if p := os.Getenv("PROGRESS_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(version)

	// 3. Load plan and scripts
	printSection("load plan")
	plan, err := data.LoadPlan(cfg.Plan.Path)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}
	printStat("states with transitions", len(plan.Transitions))
	printStat("tasks", plan.TaskCount())
	printStat("assets", plan.AssetCount())

	scripts, err := scripting.NewEngine(cfg.Scripts.Dir, log)
	if err != nil {
		return fmt.Errorf("load scripts: %w", err)
	}
	defer scripts.Close()
	printStat("script tasks", len(scripts.Tasks()))
	fmt.Println()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 4. Optional report store
	var (
		recorder *persist.Recorder
		reports  api.ReportLister
		pinger   api.Pinger
	)
	if cfg.Database.Enabled {
		printSection("database")
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		version, err := persist.Migrate(ctx, db.Pool, log)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK(fmt.Sprintf("schema at version %d", version))
		pinger = db
		repo := persist.NewReportRepo(db)
		reports = repo
		recorder = persist.NewRecorder(repo, cfg.Database.ReportQueueSize, log)
		defer recorder.Close()
		fmt.Println()
	}

	// 5. Host: world, bus, state machine, runner
	world := ecs.NewWorld()
	bus := event.NewBus()
	machine := state.NewMachine(plan.Initial, bus, log)
	runner := coresys.NewRunner(cfg.Loop.MaxParallel)
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewCleanupSystem(world))

	// 6. Progress plugin
	p := plugin.New[string](cfg.Tracker, log)
	for _, tr := range plan.Transitions {
		p.WithTransition(tr.From, tr.To)
	}
	if err := p.Build(plugin.Host[string]{Runner: runner, Machine: machine, Bus: bus, World: world}); err != nil {
		return fmt.Errorf("build progress plugin: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	p.AddMetrics(collector)
	if recorder != nil {
		p.AddRecorder(recorder)
	}
	if len(scripts.Tasks()) > 0 {
		p.AddScripts(scripts)
	}

	sim := newSimulation(ctx, plan, p, machine, world)
	if cfg.Assets.Enabled {
		src := newSimAssets()
		sim.withAssets(src, p.AddAssets(src, cfg.Assets))
	}
	sim.install(runner)
	defer sim.stop()

	event.Subscribe(bus, func(ev event.ProgressComplete[string]) {
		printOK(fmt.Sprintf("%s done in %s (%s visible, %s hidden, %d entries)",
			ev.State, ev.Elapsed.Round(time.Millisecond), ev.Visible, ev.Hidden, ev.Entries))
	})

	// 7. Optional HTTP surface
	var srv *api.Server
	if cfg.HTTP.Enabled {
		srv = api.NewServer(cfg.HTTP.BindAddress, api.NewRouter(api.Deps{
			Source:   p.Tracker(),
			Gatherer: reg,
			Reports:  reports,
			DB:       pinger,
			Log:      log,
		}), log)
		srv.Start()
	}

	// 8. Game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Loop.TickRate)
	defer ticker.Stop()

	printSection("running")
	if srv != nil {
		printReady(fmt.Sprintf("http on %s", cfg.HTTP.BindAddress))
	}
	printReady(fmt.Sprintf("tick loop started (tick: %s, parallel: %d)", cfg.Loop.TickRate, cfg.Loop.MaxParallel))
	fmt.Println()

	machine.Start()
	if !p.Active() && srv == nil {
		log.Info("initial state has no transition, nothing to track", zap.String("state", machine.Current()))
		return nil
	}
	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Loop.TickRate)
			if machine.Apply() && !p.Active() {
				log.Info("reached final state", zap.String("state", machine.Current()))
				if srv == nil {
					// Deliver the last completion before exiting.
					bus.SwapBuffers()
					bus.DispatchAll()
					return nil
				}
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					log.Warn("http shutdown", zap.Error(err))
				}
			}
			log.Info("stopped")
			return nil
		}
	}
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
