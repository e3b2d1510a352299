package main

import (
	"context"
	"fmt"
	"time"

	"github.com/metalagman/screenpilot/internal/audit"
	"github.com/metalagman/screenpilot/internal/automation"
	"github.com/metalagman/screenpilot/internal/capture"
	"github.com/metalagman/screenpilot/internal/command"
	"github.com/metalagman/screenpilot/internal/config"
	"github.com/metalagman/screenpilot/internal/db"
	"github.com/metalagman/screenpilot/internal/executor"
	"github.com/metalagman/screenpilot/internal/logging"
	"github.com/metalagman/screenpilot/internal/orchestrator"
	"github.com/metalagman/screenpilot/internal/parser"
	"github.com/metalagman/screenpilot/internal/planner"
	"github.com/metalagman/screenpilot/internal/safety"
	"github.com/metalagman/screenpilot/internal/screen"
	"github.com/metalagman/screenpilot/internal/vision"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

const (
	probeTimeout = 5 * time.Second
	stopTimeout  = 5 * time.Second
)

// appParams are the command-line inputs of the object graph.
type appParams struct {
	Config config.Config
	DryRun bool
}

// driver is an automation backend that can also report the screen size.
type driver interface {
	executor.Automation
	ScreenSize(ctx context.Context) (screen.Size, error)
}

// startApp builds and starts the desktop object graph and fills targets,
// which must be pointers to provided types. The returned stop func
// releases the audit database.
func startApp(ctx context.Context, p appParams, targets ...any) (func(), error) {
	app := fx.New(
		fx.NopLogger,
		fx.Supply(p),
		fx.Provide(
			newRunner,
			newDriver,
			newScreenSize,
			newCapture,
			newOCR,
			newLocator,
			newSafety,
			newExecutor,
			newPlanner,
			newRecorder,
			parser.New,
			newProcessor,
		),
		fx.Populate(targets...),
	)
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}
	if err := app.Start(ctx); err != nil {
		return nil, fmt.Errorf("start app: %w", err)
	}
	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			log.Warn().Err(err).Msg("shutdown failed")
		}
	}, nil
}

func newRunner() command.Runner {
	return command.Exec{}
}

func newDriver(p appParams, runner command.Runner) driver {
	if p.DryRun || p.Config.Executor.Driver == config.DriverDryRun {
		log.Debug().Msg("using dry-run automation")
		return automation.NewDryRun(p.Config.Screen)
	}
	return automation.NewXdotool(runner, p.Config.Executor.XdotoolPath)
}

// newScreenSize asks the driver for the display size and falls back to
// the configured one.
func newScreenSize(p appParams, d driver) screen.Size {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	size, err := d.ScreenSize(ctx)
	if err != nil || size.Width <= 0 || size.Height <= 0 {
		log.Warn().Err(err).Int("width", p.Config.Screen.Width).Int("height", p.Config.Screen.Height).
			Msg("screen size unavailable, using configured size")
		return p.Config.Screen
	}
	log.Debug().Int("width", size.Width).Int("height", size.Height).Msg("screen size detected")
	return size
}

func newCapture(p appParams, runner command.Runner, size screen.Size) (*capture.Tool, error) {
	return capture.New(runner, p.Config.Capture.Command, p.Config.Capture.Dir, capture.WithFallbackSize(size))
}

func newOCR(p appParams, runner command.Runner) *vision.Tesseract {
	return vision.NewTesseract(runner, p.Config.OCR.Binary, p.Config.OCR.Languages)
}

func newLocator(c *capture.Tool, ocr *vision.Tesseract) *vision.Locator {
	return vision.NewLocator(c, ocr)
}

func newSafety(p appParams, size screen.Size) (*safety.Evaluator, error) {
	sc, err := p.Config.SafetyConfig()
	if err != nil {
		return nil, err
	}
	sc.Bounds = size
	return safety.New(sc), nil
}

func newExecutor(p appParams, size screen.Size, d driver, loc *vision.Locator, c *capture.Tool) *executor.Executor {
	return executor.New(p.Config.ExecutorConfig(size), d, loc, c)
}

func newPlanner(p appParams) (*planner.Manager, error) {
	return planner.NewManager(p.Config.LLM, nil)
}

// newRecorder wires the audit sinks. The SQLite store is closed after the
// recorder has ended the session.
func newRecorder(lc fx.Lifecycle, p appParams) (*audit.Recorder, error) {
	var sinks []audit.Sink
	if logging.DebugEnabled() {
		sinks = append(sinks, audit.NewLogSink(log.Logger))
	}
	if p.Config.Audit.Enabled {
		sqlDB, err := db.Open(p.Config.Audit.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open audit db: %w", err)
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return sqlDB.Close() }})
		sinks = append(sinks, audit.NewStore(sqlDB))
	}
	rec := audit.NewRecorder(context.Background(), sinks)
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error {
		rec.Close(ctx)
		return nil
	}})
	return rec, nil
}

type processorIn struct {
	fx.In

	Parser   *parser.Parser
	Safety   *safety.Evaluator
	Executor *executor.Executor
	Capture  *capture.Tool
	OCR      *vision.Tesseract
	Planner  *planner.Manager
	Audit    *audit.Recorder
}

func newProcessor(in processorIn) *orchestrator.Processor {
	return orchestrator.New(orchestrator.Deps{
		Parser:   in.Parser,
		Safety:   in.Safety,
		Executor: in.Executor,
		Capture:  in.Capture,
		OCR:      in.OCR,
		Planner:  in.Planner,
		Audit:    in.Audit,
	})
}
