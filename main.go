package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"daily_story_server/audit"
	"daily_story_server/config"
	"daily_story_server/generator"
	"daily_story_server/server"
)

const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	// Story requests block while queued behind the single generation slot,
	// so the write timeout has to outlast a few 60s upstream calls.
	writeTimeout    = 5 * time.Minute
	idleTimeout     = 2 * time.Minute
	shutdownTimeout = 10 * time.Second
)

var (
	configPath string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "daily_story_server",
	Short: "Serves a single cached LLM-generated story of the day",
	Long: `daily_story_server keeps exactly one story in memory and regenerates it
on demand. Every read triggers a fresh generation cycle; concurrent
requests are serialized so at most one upstream model call runs at a time.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if os.Getenv("STORY_ENV") == "development" {
			zapCfg = zap.NewDevelopmentConfig()
		}
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run one generation cycle and print the result as JSON",
	RunE:  runGenerate,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to config.json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	coord, store, err := buildCoordinator(&cfg)
	if err != nil {
		return err
	}
	coord.Start()
	defer coord.Stop()

	srv, err := server.New(coord, store, &cfg, logger, server.MustNewMetrics(nil))
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening",
			zap.String("addr", cfg.ServerAddr),
			zap.String("environment", cfg.Environment))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	coord, _, err := buildCoordinator(&cfg)
	if err != nil {
		return err
	}
	coord.Start()
	defer coord.Stop()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := coord.Trigger(ctx)
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if res.Error != "" {
		return fmt.Errorf("generation failed: %s", res.Error)
	}
	return nil
}

func buildCoordinator(cfg *config.Config) (*generator.Coordinator, *generator.ResultStore, error) {
	llm, err := buildLLM(cfg)
	if err != nil {
		return nil, nil, err
	}

	store := generator.NewResultStore()
	sink := audit.NewFileSink(cfg.AuditLogPath, logger)

	coord, err := generator.NewCoordinator(llm, store, generator.CoordinatorOptions{
		PromptPath:  cfg.PromptPath,
		Development: cfg.IsDevelopment(),
		Audit:       sink,
		Logger:      logger,
		Metrics:     generator.MustNewMetrics(nil),
	})
	if err != nil {
		return nil, nil, err
	}
	return coord, store, nil
}

func buildLLM(cfg *config.Config) (generator.LLMClient, error) {
	return generator.NewLLMClient(&generator.LLMSettings{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})
}
