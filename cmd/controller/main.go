package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/actions"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/config"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/controller"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/engine"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/history"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/logging"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/simulation"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// #region main
func main() {
	configPath := flag.String("config", envOr("SMARTHOME_CONFIG", ""), "path to YAML config")
	steps := flag.Int("steps", 0, "run the simulator for N readings instead of reading stdin")
	stepEvery := flag.Duration("step-every", 5*time.Minute, "simulated time between readings")
	pause := flag.Duration("pause", 0, "wall-clock pause between simulated readings")
	seed := flag.Int64("seed", time.Now().UnixNano(), "simulator seed")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	store, err := history.Open(cfg.Store, logger)
	if err != nil {
		log.Fatalf("failed to open history: %v", err)
	}
	defer store.Close()

	var opts []engine.Option
	if sqlStore, ok := store.(*history.SQLStore); ok {
		rec, err := logging.NewSQLRecorder(sqlStore.DB())
		if err != nil {
			log.Fatalf("decision log: %v", err)
		}
		opts = append(opts, engine.WithRecorder(rec))
	}
	eng := engine.New(store, engine.FromConfig(cfg.Engine), logger, opts...)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	ctrl := controller.New(gctx, eng, controller.Config{RetrainInterval: cfg.Controller.RetrainInterval}, logger)
	executor := actions.NewLogExecutor(logger)

	if cfg.Metrics.Addr != "" {
		serveMetrics(gctx, g, cfg.Metrics.Addr, logger)
	}

	logger.Info("controller ready",
		"backend", cfg.Store.Backend,
		"history", history.Count(store),
		"retrain_interval", cfg.Controller.RetrainInterval,
		"metrics", cfg.Metrics.Addr,
	)

	g.Go(func() error {
		defer cancel()
		if *steps > 0 {
			return runSimulation(gctx, ctrl, executor, *steps, *seed, *stepEvery, *pause)
		}
		return runREPL(gctx, ctrl, executor)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("controller stopped", "err", err)
	}
	ctrl.Wait()
}

// #endregion main

// #region metrics
func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g.Go(func() error {
		logger.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// #endregion metrics

// #region repl
func runREPL(ctx context.Context, ctrl *controller.Controller, executor actions.Executor) error {
	fmt.Println("Home controller ready.")
	fmt.Println(`Enter a reading as JSON, e.g. {"temperature":27,"humidity":60,"door_status":false,"air_quality":80,"presence":true}`)
	fmt.Println("Commands: rules | leaves | retrain | history | quit")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Print("> ")
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "rules":
			printRules(ctrl.LearnedRules())
			continue
		case "leaves":
			for _, lr := range ctrl.LeafRules() {
				fmt.Printf("  %s -> [%s] (confidence %.2f, %d samples)\n",
					lr.Condition, strings.Join(lr.Actions, ", "), lr.Confidence, lr.Samples)
			}
			continue
		case "retrain":
			res := ctrl.Retrain()
			fmt.Printf("retrain: passed=%v samples=%d %s\n", res.Passed, res.Samples, res.Reason)
			continue
		case "history":
			fmt.Printf("history: %d entries\n", len(ctrl.History()))
			continue
		}

		var r home.Reading
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			fmt.Printf("invalid reading: %v\n", err)
			continue
		}
		handleReading(ctx, ctrl, executor, r)
	}
}

// #endregion repl

// #region simulation
func runSimulation(ctx context.Context, ctrl *controller.Controller, executor actions.Executor,
	steps int, seed int64, stepEvery, pause time.Duration) error {
	sim := simulation.New(seed)
	now := time.Now()
	// rate.Every(0) is rate.Inf, so a zero pause never blocks.
	limiter := rate.NewLimiter(rate.Every(pause), 1)

	for i := 0; i < steps; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		r := sim.Next(now)
		fmt.Printf("\n[%s] temp=%.1f°C humidity=%.1f%% door=%s air=%.1f presence=%v\n",
			now.Format("15:04"), r.Temperature, r.Humidity, doorLabel(r.DoorOpen), r.AirQuality, r.Presence)
		handleReading(ctx, ctrl, executor, r)

		now = now.Add(stepEvery)
	}

	fmt.Println("\nLearned rules:")
	printRules(ctrl.LearnedRules())
	return nil
}

// #endregion simulation

// #region helpers
func handleReading(ctx context.Context, ctrl *controller.Controller, executor actions.Executor, r home.Reading) {
	d, trace := ctrl.DecideTrace(r)
	fmt.Printf("decisions: %s (classifier %s)\n", d, trace.Status)

	if err := actions.ExecuteAll(ctx, executor, actions.Plan(r, d)); err != nil {
		fmt.Printf("action error: %v\n", err)
	}
}

func printRules(rules []string) {
	if len(rules) == 0 {
		fmt.Println("  (no learned rules yet)")
		return
	}
	for _, rule := range rules {
		fmt.Println("  " + rule)
	}
}

func doorLabel(open bool) string {
	if open {
		return "open"
	}
	return "closed"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
