package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ruian/internal/archive"
	"ruian/internal/config"
	"ruian/internal/datasource"
	"ruian/internal/datasource/file"
	"ruian/internal/datasource/httpds"
	"ruian/internal/decode"
	"ruian/internal/logger"
	"ruian/internal/metrics"
	"ruian/internal/metrics/datadog"
	"ruian/internal/metrics/prompush"
	"ruian/internal/pipeline"
)

// latest selects the most recent monthly export on the publisher's server.
const latest = "latest"

// resolve builds the effective run config: defaults, then the config file,
// then the environment, then flags and the positional archive argument.
func (f *flags) resolve(cmd *cobra.Command, args []string, getenv func(string) string) (config.Run, error) {
	cfg := config.Default()
	if f.configFile != "" {
		var err error
		if cfg, err = config.Load(f.configFile); err != nil {
			return config.Run{}, err
		}
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return config.Run{}, fmt.Errorf("env: %w", err)
	}

	fl := cmd.Flags()
	if fl.Changed("workers") {
		cfg.Runtime.Workers = f.workers
	}
	if fl.Changed("queue-depth") {
		cfg.Runtime.QueueDepth = f.queueDepth
	}
	if fl.Changed("policy") {
		cfg.Decoder.Policy = f.policy
	}
	if fl.Changed("trim-space") {
		cfg.Decoder.TrimSpace = f.trimSpace
	}
	if fl.Changed("metrics-backend") {
		cfg.Metrics.Backend = f.metricsBackend
	}

	if len(args) > 0 {
		switch arg := args[0]; {
		case arg == latest:
			cfg.Source = config.Source{Kind: "http", Retries: cfg.Source.Retries, TempDir: cfg.Source.TempDir}
		case strings.HasPrefix(arg, "http://"), strings.HasPrefix(arg, "https://"):
			cfg.Source.Kind, cfg.Source.URL, cfg.Source.Path = "http", arg, ""
		default:
			cfg.Source.Kind, cfg.Source.Path, cfg.Source.URL = "file", arg, ""
		}
	}
	if cfg.Source.Kind == "http" && cfg.Source.URL == "" {
		cfg.Source.URL = httpds.ArchiveURL(httpds.LastPublished(time.Now()))
	}
	return cfg, nil
}

func (f *flags) initLogging(cmd *cobra.Command) {
	opt := logger.FromEnv()
	if f.logLevel != "" {
		opt.Level = f.logLevel
	}
	if f.logFormat != "" {
		opt.Format = f.logFormat
	}
	opt.Writer = cmd.ErrOrStderr()
	logger.Init(opt)
}

// checkConfig logs warnings and fails on errors.
func checkConfig(ctx context.Context, cfg config.Run) error {
	log := logger.C(ctx)
	var errs []error
	for _, iss := range config.ValidateRun(cfg) {
		if iss.Severity == config.SeverityError {
			errs = append(errs, iss)
			continue
		}
		log.Warn().Str("path", iss.Path).Msg(iss.Message)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// setupMetrics installs the configured backend and returns the flush to run
// on exit. A backend that fails to initialize leaves metrics disabled.
func setupMetrics(ctx context.Context, cfg config.Run) func() {
	log := logger.C(ctx)

	var (
		b   metrics.Backend
		err error
	)
	switch cfg.Metrics.Backend {
	case "pushgateway":
		b, err = prompush.NewBackend(cfg.Job, cfg.Metrics.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{Addr: cfg.Metrics.DatadogAddr})
	case "", "none":
		log.Debug().Msg("metrics disabled")
		return func() {}
	default:
		log.Warn().Str("backend", cfg.Metrics.Backend).Msg("unknown metrics backend; metrics disabled")
		return func() {}
	}
	if err != nil {
		log.Warn().Err(err).Str("backend", cfg.Metrics.Backend).Msg("metrics init failed; metrics disabled")
		return func() {}
	}

	metrics.SetBackend(b)
	log.Info().Str("backend", cfg.Metrics.Backend).Str("job", cfg.Job).Msg("metrics enabled")
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn().Err(err).Msg("metrics flush failed")
		}
	}
}

func sourceFor(cfg config.Run) datasource.Source {
	if cfg.Source.Kind == "http" {
		c := httpds.NewClient(httpds.Config{
			MaxRetries: cfg.Source.Retries,
			UserAgent:  "ruian/1 (+" + httpds.BaseURL + ")",
		})
		return httpds.NewRemote(c, cfg.Source.URL, cfg.Source.TempDir)
	}
	return file.NewLocal(cfg.Source.Path)
}

// session is one CLI run: resolved config, run-scoped context and the
// cleanup to defer.
type session struct {
	ctx   context.Context
	cfg   config.Run
	runID string
	close func()
}

func (f *flags) start(cmd *cobra.Command, args []string) (*session, error) {
	f.initLogging(cmd)

	runID := uuid.NewString()
	ctx := logger.WithRunID(cmd.Context(), runID)

	cfg, err := f.resolve(cmd, args, getenv)
	if err != nil {
		return nil, err
	}
	if err := checkConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return &session{ctx: ctx, cfg: cfg, runID: runID, close: setupMetrics(ctx, cfg)}, nil
}

// openArchive opens the configured source and reads its central directory.
// The returned close releases the source.
func (s *session) openArchive() (*archive.Archive, func(), error) {
	cfg := s.cfg
	t0 := time.Now()
	blob, err := sourceFor(cfg).Open(s.ctx)
	metrics.RecordStep(cfg.Job, "open", err, time.Since(t0))
	if err != nil {
		return nil, nil, pipeline.OpenError(err)
	}
	logger.C(s.ctx).Info().
		Str("archive", blob.Name()).
		Str("size", humanize.Bytes(uint64(blob.Size()))).
		Msg("archive opened")

	a, err := archive.Open(blob, blob.Size())
	if err != nil {
		_ = blob.Close()
		return nil, nil, pipeline.OpenError(err)
	}
	return a, func() { _ = blob.Close() }, nil
}

// load runs the pipeline over the configured archive.
func (s *session) load() (pipeline.Result, error) {
	cfg := s.cfg
	log := logger.C(s.ctx)

	policy, err := decode.ParsePolicy(cfg.Decoder.Policy)
	if err != nil {
		return pipeline.Result{}, err
	}
	a, closeArchive, err := s.openArchive()
	if err != nil {
		return pipeline.Result{}, err
	}
	defer closeArchive()

	total := len(a.Entries())
	done := 0
	return pipeline.Run(s.ctx, a, pipeline.Options{
		Workers:    cfg.Runtime.Workers,
		QueueDepth: cfg.Runtime.QueueDepth,
		Policy:     policy,
		TrimSpace:  cfg.Decoder.TrimSpace,
		InternSize: cfg.Runtime.InternSize,
		Job:        cfg.Job,
		OnEntry: func(st pipeline.EntryStats) {
			done++
			log.Info().
				Str("name", st.Entry.Name).
				Int("records", st.Records).
				Dur("took", st.Took).
				Str("progress", fmt.Sprintf("%d/%d", done, total)).
				Msg("entry parsed")
		},
	})
}
