// Command cyclesim rides a generated corridor headlessly from a scripted input timeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"driftpursuit/corridor/internal/audio"
	"driftpursuit/corridor/internal/camera"
	"driftpursuit/corridor/internal/config"
	"driftpursuit/corridor/internal/game"
	"driftpursuit/corridor/internal/input"
	"driftpursuit/corridor/internal/logging"
	"driftpursuit/corridor/internal/replay"
	"driftpursuit/corridor/internal/simulation"
	"driftpursuit/corridor/internal/telemetry"
	"driftpursuit/corridor/internal/track"
	"driftpursuit/corridor/internal/vehicle"
)

const (
	viewerConnectsPerMinute = 30
	replaySweepInterval     = 10 * time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "cyclesim:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Sync()

	script, err := input.ParseScript(cfg.InputScript)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}
	ctx = logging.ContextWithLogger(ctx, logger)

	sounds, err := audio.NewCountingSink(audio.LogSink{Logger: logger})
	if err != nil {
		return fmt.Errorf("sfx metrics: %w", err)
	}
	bike := vehicle.Bike{Accel: cfg.Bike.Accel, Drag: cfg.Bike.Drag, TopSpeed: cfg.Bike.TopSpeed}
	follower := camera.Follower{LerpFactor: cfg.Camera.LerpFactor, ZoomScale: cfg.Camera.ZoomScale}
	session, err := game.NewSession(game.Options{Bike: &bike, Follower: &follower, Sink: sounds, Logger: logger})
	if err != nil {
		return err
	}
	request := track.NewSpawnRequest(cfg.Seed, cfg.CycleSteps)
	session.RequestSpawn(request)

	monitor, err := simulation.NewInstrumentedTickMonitor()
	if err != nil {
		return err
	}
	pipeline, err := openPipeline(ctx, cfg, request, monitor)
	if err != nil {
		return err
	}
	frames := make(chan error, 1)
	loop := simulation.NewLoop(cfg.TickHz, monitor.Wrap(newStepper(session, script, pipeline.observe, frames)))

	logger.Info("ride started",
		logging.Uint32("seed", uint32(request.Seed)),
		logging.Int("cycle_steps", int(request.CycleSteps)),
		logging.Float64("tick_hz", cfg.TickHz),
		logging.Duration("duration", cfg.Duration),
	)
	loop.Start(ctx)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-frames:
		stop()
	}
	loop.Stop()

	stats := monitor.Snapshot()
	logger.Info("ride finished",
		logging.Duration("simulated", session.Now()),
		logging.Int("frames", stats.Samples),
		logging.Float64("average_fps", stats.AverageFPS()),
		logging.Duration("max_tick", stats.Max),
		logging.Int("steps", sounds.Count(audio.Step)),
	)
	return errors.Join(runErr, pipeline.shutdown(session.Now()))
}

// newStepper advances session once per loop step. The keys are those held at
// the end of the frame being simulated. The first frame error is reported on
// failed and the frame is skipped.
func newStepper(session *game.Session, source input.Source, observe func(game.Frame), failed chan<- error) simulation.StepFunc {
	return func(step time.Duration) {
		frame, err := session.Step(step, source.Held(session.Now()+step))
		if err != nil {
			select {
			case failed <- err:
			default:
			}
			return
		}
		observe(frame)
	}
}

// openPipeline starts the optional replay recorder and viewer feed.
func openPipeline(ctx context.Context, cfg *config.Config, request track.SpawnRequest, monitor *simulation.TickMonitor) (*framePipeline, error) {
	logger := logging.LoggerFromContext(ctx)
	pipeline := &framePipeline{log: logger, replayRoot: cfg.ReplayDir, retain: cfg.ReplayRetain, monitor: monitor}

	if cfg.ReplayDir != "" {
		writer, _, err := replay.NewWriter(cfg.ReplayDir, "seed-"+strconv.FormatUint(uint64(request.Seed), 10), nil)
		if err != nil {
			return nil, fmt.Errorf("open replay: %w", err)
		}
		pipeline.writer = writer
		//1.- Long rides also prune on a timer; shutdown sweeps once more.
		cleaner := replay.NewCleaner(cfg.ReplayDir, replay.RetentionPolicy{MaxBundles: cfg.ReplayRetain}, logger)
		go cleaner.Run(ctx, replaySweepInterval)
	}

	if cfg.TelemetryAddr != "" {
		hub := telemetry.NewHub(logger)
		hub.LimitConnections(time.Minute, viewerConnectsPerMinute)
		server := &http.Server{Addr: cfg.TelemetryAddr, Handler: hub.Handler(pipeline.status), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("telemetry server stopped", logging.Error(err))
			}
		}()
		logger.Info("telemetry listening",
			logging.String("addr", cfg.TelemetryAddr),
			logging.Strings("routes", []string{"/ws", "/livez", "/status"}),
		)
		pipeline.hub = hub
		pipeline.server = server
	}
	return pipeline, nil
}
