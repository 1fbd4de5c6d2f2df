package main

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"google.golang.org/protobuf/proto"

	"driftpursuit/corridor/internal/game"
	"driftpursuit/corridor/internal/logging"
	"driftpursuit/corridor/internal/replay"
	"driftpursuit/corridor/internal/simulation"
	"driftpursuit/corridor/internal/telemetry"
	"driftpursuit/corridor/internal/track"
)

// framePipeline forwards each finished frame to the optional recorder and viewer feed.
type framePipeline struct {
	writer     *replay.Writer
	replayRoot string
	retain     int
	hub        *telemetry.Hub
	server     *http.Server
	log        *logging.Logger
	monitor    *simulation.TickMonitor
	latest     atomic.Pointer[telemetry.Status]
}

func (p *framePipeline) observe(frame game.Frame) {
	if p.writer == nil && p.hub == nil {
		return
	}
	simulatedMs := frame.Time.Milliseconds()
	p.record(frame)

	if p.writer != nil {
		//1.- Spawns and sounds are sparse so every one becomes an event.
		for _, request := range frame.Spawned {
			p.writer.SetTrack(uint32(request.Seed), request.CycleSteps, replay.TrackParameters(track.Parameters()))
			msg, err := game.SpawnEvent(request)
			if err == nil {
				err = p.appendEvent(frame.Index, simulatedMs, "spawn", msg)
			}
			if err != nil {
				p.log.Warn("replay spawn event failed", logging.Error(err))
			}
		}
		for _, sfx := range frame.Sounds {
			msg, err := game.SoundEvent(sfx)
			if err == nil {
				err = p.appendEvent(frame.Index, simulatedMs, "sfx", msg)
			}
			if err != nil {
				p.log.Warn("replay sfx event failed", logging.Error(err))
			}
		}
		//2.- Poses are sampled by the writer's cadence.
		payload, err := game.MarshalFrame(frame)
		if err == nil {
			_, err = p.writer.AppendFrame(frame.Index, simulatedMs, payload)
		}
		if err != nil {
			p.log.Warn("replay frame failed", logging.Error(err), logging.Int64("frame", int64(frame.Index)))
		}
	}

	if p.hub != nil && p.hub.Clients() > 0 {
		msg, err := frame.Struct()
		if err == nil {
			err = p.hub.Publish(msg)
		}
		if err != nil {
			p.log.Warn("telemetry publish failed", logging.Error(err))
		}
	}
}

func (p *framePipeline) appendEvent(tick uint64, simulatedMs int64, kind string, msg proto.Message) error {
	payload, err := proto.Marshal(msg)
	if err != nil {
		return err
	}
	return p.writer.AppendEvent(tick, simulatedMs, kind, payload)
}

// record refreshes the summary served at /status.
func (p *framePipeline) record(frame game.Frame) {
	next := telemetry.Status{SimulatedMs: frame.Time.Milliseconds()}
	if previous := p.latest.Load(); previous != nil {
		next.Seed, next.CycleSteps = previous.Seed, previous.CycleSteps
	}
	for _, request := range frame.Spawned {
		next.Seed, next.CycleSteps = uint32(request.Seed), request.CycleSteps
	}
	if p.monitor != nil {
		stats := p.monitor.Snapshot()
		next.Frames = stats.Samples
		next.AverageFPS = stats.AverageFPS()
		next.MaxTickMs = float64(stats.Max) / float64(time.Millisecond)
	}
	p.latest.Store(&next)
}

// status returns the latest summary for the HTTP handler.
func (p *framePipeline) status() telemetry.Status {
	if latest := p.latest.Load(); latest != nil {
		return *latest
	}
	return telemetry.Status{}
}

// shutdown stops the viewer feed, seals the replay bundle and prunes old bundles.
func (p *framePipeline) shutdown(elapsed time.Duration) error {
	var errs []error
	if p.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, p.server.Shutdown(ctx))
		cancel()
	}
	if p.hub != nil {
		p.hub.Close()
	}
	if p.writer != nil {
		p.log.Info("replay recorded",
			logging.String("bundle", p.writer.Directory()),
			logging.Int("frames", p.writer.Frames()),
			logging.Duration("simulated", elapsed),
		)
		errs = append(errs, p.writer.Close())
		cleaner := replay.NewCleaner(p.replayRoot, replay.RetentionPolicy{MaxBundles: p.retain}, p.log)
		cleaner.Sweep()
	}
	return errors.Join(errs...)
}
