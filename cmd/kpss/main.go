package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kpssprep/marathon/internal/catalog"
	"github.com/kpssprep/marathon/internal/config"
	"github.com/kpssprep/marathon/internal/exam"
	"github.com/kpssprep/marathon/internal/handler"
	appI18n "github.com/kpssprep/marathon/internal/i18n"
	"github.com/kpssprep/marathon/internal/llm"
	"github.com/kpssprep/marathon/internal/model"
	"github.com/kpssprep/marathon/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kpss",
		Short: "KPSS practice exams with generated questions",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the exam HTTP API",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "kpss.db", "SQLite database path")
	f.StringP("lang", "l", "tr", "Default response language (tr, en)")
	f.String("catalog", "", "Exam types YAML file (empty = built-in KPSS catalog)")
	f.StringP("provider", "p", "openai", "Question generator (openai, gemini, anthropic, mock)")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for the question generator")
	f.String("llm-model", "llama3.2", "Model name")
	f.Int("batch-size", exam.DefaultBatchSize, "Questions per generated batch")
	f.IntP("target", "n", 0, "Questions per exam (0 = exam type default)")
	f.Duration("batch-pace", exam.DefaultPace, "Delay between background batch requests")
	f.Int("max-retries", exam.DefaultMaxRetries, "Retries for a failed batch")
	f.Duration("retry-step", exam.DefaultRetryStep, "Linear backoff step between retries")
	f.Duration("mock-delay", 500*time.Millisecond, "Simulated latency of the mock generator")
	f.StringSlice("cors-origins", nil, "Allowed CORS origins (repeatable)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export archived attempts as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "kpss.db", "SQLite database path")
	f.String("exam-type", "", "Only export attempts of this exam type")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("KPSS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("kpss")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/kpss")
	v.AddConfigPath("/etc/kpss")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	cfg := config.FromViper(viperForCmd(cmd))
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.New(cfg.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := appI18n.Init(cfg.Lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create generator: %w", err)
	}
	slog.Info("question generator ready", "generator", gen.Name())

	if err := db.SetServiceInfo(model.ServiceInfo{
		Generator: gen.Name(),
		BatchSize: cfg.BatchSize,
		Language:  cfg.Lang,
	}); err != nil {
		return fmt.Errorf("record service info: %w", err)
	}

	fetcher := exam.NewFetcher(gen,
		exam.WithMaxRetries(cfg.MaxRetries),
		exam.WithRetryStep(cfg.RetryStep),
		exam.WithTarget(cfg.Target),
	)
	session := exam.NewSession(fetcher, cat, exam.Options{
		BatchSize: cfg.BatchSize,
		Target:    cfg.Target,
		Pace:      cfg.BatchPace,
		OnFinish: func(o exam.Outcome) {
			if err := db.SaveAttempt(o.Attempt()); err != nil {
				slog.Error("archive attempt", "id", o.ID, "error", err)
			}
		},
	})
	defer session.Close()

	h, err := handler.New(session, cat, db)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type", "Accept-Language"},
		}).Handler)
	}
	r.Use(appI18n.Middleware)
	h.Routes(r)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", cfg.Addr,
			"provider", cfg.Provider,
			"model", cfg.LLMModel,
			"lang", cfg.Lang,
			"batch_size", cfg.BatchSize,
			"target", cfg.Target,
			"exam_types", len(cat.All()),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	session.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

func newGenerator(ctx context.Context, cfg config.Config) (llm.Generator, error) {
	switch cfg.Provider {
	case "openai":
		c := llm.New(cfg.LLMURL, cfg.LLMKey, cfg.LLMModel)
		if err := c.Ping(ctx); err != nil {
			return nil, fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", cfg.LLMURL, "model", cfg.LLMModel)
		return c, nil
	case "gemini":
		c, err := llm.NewGemini(ctx, cfg.LLMKey, cfg.LLMModel)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "anthropic":
		return llm.NewAnthropic(cfg.LLMKey, cfg.LLMModel), nil
	case "mock":
		return llm.NewMock(cfg.MockDelay), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportAttempts(v.GetString("exam-type"))
	if err != nil {
		return fmt.Errorf("export attempts: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)

	slog.Info("exported attempts", "count", len(export.Attempts), "output", outPath)
	return nil
}
