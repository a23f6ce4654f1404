package main

import (
	"context"
	"errors"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/clustereval/internal/cmm"
	"github.com/tensorplex-labs/clustereval/internal/config"
	"github.com/tensorplex-labs/clustereval/internal/horizon"
	"github.com/tensorplex-labs/clustereval/internal/measure"
	"github.com/tensorplex-labs/clustereval/internal/utils/logger"
)

// measureSummary uses nil for NaN statistics, JSON has no NaN.
type measureSummary struct {
	Mean          *float64 `json:"mean"`
	Median        *float64 `json:"median"`
	Min           *float64 `json:"min"`
	Max           *float64 `json:"max"`
	Last          *float64 `json:"last"`
	LowerQuartile *float64 `json:"lowerQuartile"`
	UpperQuartile *float64 `json:"upperQuartile"`
	Count         int      `json:"count"`
	Corrupted     bool     `json:"corrupted"`
}

type report struct {
	Params   string                    `json:"params"`
	Horizons int                       `json:"horizons"`
	Failed   int                       `json:"failed"`
	Measures map[string]measureSummary `json:"measures"`
}

func main() {
	logger.Init()
	defer func() { _ = logger.Logger.Sync() }()
	log.Info().Msg("Starting cluster evaluation...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load environment configuration")
	}

	ev, err := cmm.NewEvaluator(cfg.Options()...)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid evaluator parameters")
	}
	logger.Sugar().Infow("Evaluator configured", "params", ev.Params.String(), "environment", cfg.Environment)

	hp := cfg.HorizonParams()
	if err := hp.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid horizon parameters")
	}

	reg := prometheus.NewRegistry()
	exporter := measure.NewExporter(reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var server *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		server = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	collection := measure.NewCollection(cmm.MeasureNames()...)
	failed := 0
	for i := range cfg.Horizons {
		if ctx.Err() != nil {
			log.Warn().Int("horizon", i).Msg("Interrupted, stopping evaluation")
			break
		}
		if err := evaluateHorizon(ev, hp, uint64(i), collection, exporter); err != nil {
			failed++
			log.Error().Err(err).Int("horizon", i).Msg("failed to evaluate horizon")
		}
	}

	measure.PlotMeasuresTerminal(os.Stdout, collection.Means(), "Mean measures")

	out, err := sonic.ConfigStd.MarshalIndent(summarize(ev, collection, failed), "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("failed to encode report")
	} else {
		_, _ = os.Stdout.Write(append(out, '\n'))
	}

	if server == nil {
		return
	}
	log.Info().Msg("Evaluation finished, serving metrics until interrupted")
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to stop metrics server")
	}
}

func evaluateHorizon(ev *cmm.Evaluator, hp horizon.Params, index uint64, collection *measure.Collection, exporter *measure.Exporter) error {
	h, err := horizon.Generate(hp, index)
	if err != nil {
		collection.AddEmpty()
		exporter.ObserveFailure()
		return err
	}

	found, gt, points := h.EvaluationInput()
	res, err := ev.Evaluate(found, gt, points)
	if err != nil {
		collection.AddEmpty()
		exporter.ObserveFailure()
		return err
	}

	measures := res.Measures()
	if err := collection.AddAll(measures); err != nil {
		collection.AddEmpty()
		exporter.ObserveFailure()
		return err
	}
	exporter.Observe(measures)
	log.Info().
		Str("horizon", h.ID).
		Float64("cmm", res.CMM).
		Float64("basic", res.Basic).
		Int("referenceClusters", res.NumReferenceClusters).
		Int("foundClusters", res.NumFoundClusters).
		Msg("Evaluated horizon")
	for _, fc := range h.Found {
		match, _ := fc.Diagnostic(cmm.DiagMatch)
		log.Debug().Str("horizon", h.ID).Str("cluster", fc.ID()).Stringer("sphere", fc).Interface("match", match).Msg("Found cluster")
	}
	return nil
}

func summarize(ev *cmm.Evaluator, collection *measure.Collection, failed int) report {
	r := report{
		Params:   ev.Params.String(),
		Failed:   failed,
		Measures: make(map[string]measureSummary),
	}
	for _, name := range collection.Names() {
		r.Horizons = max(r.Horizons, collection.Count(name))
		r.Measures[name] = measureSummary{
			Mean:          finite(collection.Mean(name)),
			Median:        finite(collection.Median(name)),
			Min:           finite(collection.Min(name)),
			Max:           finite(collection.Max(name)),
			Last:          finite(collection.Last(name)),
			LowerQuartile: finite(collection.LowerQuartile(name)),
			UpperQuartile: finite(collection.UpperQuartile(name)),
			Count:         collection.Count(name),
			Corrupted:     collection.Corrupted(name),
		}
	}
	return r
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
