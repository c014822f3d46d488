package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeusync/perception/internal/core/events/bus"
	"github.com/zeusync/perception/internal/core/observability/log"
	"github.com/zeusync/perception/internal/core/perception"
	"github.com/zeusync/perception/internal/debugviz"
	"github.com/zeusync/perception/internal/injector"
)

func main() {
	scenarioPath := flag.String("scenario", "", "Scenario YAML file (required)")
	steps := flag.Int("steps", 600, "Number of fixed steps to run; 0 runs until interrupted")
	dt := flag.Float64("dt", 1.0/60, "Fixed step in seconds")
	realtime := flag.Bool("realtime", false, "Pace steps to wall-clock time")
	debugAddr := flag.String("debug-addr", "", "Serve the websocket debug feed on this address, e.g. :8080")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error, silent")
	flag.Parse()

	if *scenarioPath == "" {
		fmt.Fprintln(os.Stderr, "perceptiond: -scenario is required")
		flag.Usage()
		os.Exit(2)
	}
	if *dt <= 0 {
		fmt.Fprintln(os.Stderr, "perceptiond: -dt must be > 0")
		os.Exit(2)
	}

	rt, err := injector.InitializeRuntime(*scenarioPath, log.ParseLevel(*logLevel))
	if err != nil {
		fmt.Fprintln(os.Stderr, "perceptiond:", err)
		os.Exit(1)
	}
	defer rt.Logger.Sync()

	if err := run(rt, *steps, *dt, *realtime, *debugAddr); err != nil {
		rt.Logger.Error("run failed", log.Error(err))
		os.Exit(1)
	}
}

func run(rt *injector.Runtime, steps int, dt float64, realtime bool, debugAddr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := rt.Logger
	if _, err := rt.Events.Subscribe(perception.EventSightChanged, func(e bus.Event) error {
		snap, ok := e.Data().(*perception.Snapshot)
		if !ok {
			return nil
		}
		logger.Info("sight changed",
			log.String("sensor", e.Source()),
			log.Uint64("seq", snap.Seq),
			log.Int("in_sight", len(snap.InSight)),
			log.Int("in_range", len(snap.InRangeOnly)),
			log.Any("ids", snap.IDs(true)),
		)
		return nil
	}); err != nil {
		return err
	}

	if debugAddr != "" {
		if _, err := debugviz.Attach(rt.Events, rt.Feed); err != nil {
			return err
		}
		mux := http.NewServeMux()
		mux.Handle("/ws", rt.Feed)
		srv := &http.Server{Addr: debugAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("debug feed listening", log.String("addr", debugAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("debug feed stopped", log.Error(err))
			}
		}()
		defer func() {
			rt.Feed.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var ticker *time.Ticker
	if realtime {
		ticker = time.NewTicker(time.Duration(dt * float64(time.Second)))
		defer ticker.Stop()
	}

	logger.Info("simulation started",
		log.String("scenario", rt.Sim.Name),
		log.Int("steps", steps),
		log.Float64("dt", dt),
	)
	for i := 0; steps == 0 || i < steps; i++ {
		if ticker != nil {
			select {
			case <-ctx.Done():
			case <-ticker.C:
			}
		}
		if ctx.Err() != nil {
			break
		}
		if err := rt.Sim.Step(ctx, dt); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			return err
		}
	}

	for _, a := range rt.Sim.Agents {
		st := a.Sensor.Stats()
		logger.Info("sensor stats",
			log.String("sensor", a.ID),
			log.Uint64("scans", st.Scans),
			log.Uint64("backlog", st.Backlog),
			log.Uint64("truncations", st.Truncations),
			log.Int("last_in_sight", st.LastInSight),
		)
	}
	logger.Info("simulation finished",
		log.Uint64("steps", rt.Sim.Steps()),
		log.Float64("elapsed", rt.Sim.Elapsed()),
	)
	return nil
}
