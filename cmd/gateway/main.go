// Command gateway runs the local-inference gateway that translates the
// Anthropic Messages API to a locally running Ollama server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"

	"github.com/digitallysavvy/ollama-gateway/internal/config"
	"github.com/digitallysavvy/ollama-gateway/internal/gwlog"
	"github.com/digitallysavvy/ollama-gateway/internal/httpserver"
	"github.com/digitallysavvy/ollama-gateway/pkg/telemetry"
)

// version is overridden at build time via -ldflags.
var version = "dev"

// CLI is the complete gateway command-line interface.
var CLI struct {
	ConfigFile string `short:"c" name:"config" help:"Path to a YAML configuration file." type:"path" placeholder:"PATH"`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Start the gateway HTTP server."`
	Version VersionCmd `cmd:"" help:"Print version information and exit."`
}

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Port           *int     `help:"TCP listen port." placeholder:"PORT"`
	OllamaBaseURL  *string  `name:"ollama-url" help:"Base URL for the upstream Ollama server." placeholder:"URL"`
	DefaultModel   *string  `name:"default-model" help:"Fallback model when model_map misses a claude-prefixed name." placeholder:"MODEL"`
	StrictThinking *bool    `name:"strict-thinking" help:"Reject thinking requests for incapable models instead of silently stripping them."`
	LogLevel       *string  `name:"log-level" help:"One of error, warn, info, debug." placeholder:"LEVEL"`
	LogFile        *string  `name:"log-file" help:"Path to truncate and write logs to, instead of stderr." placeholder:"PATH"`
	RateLimitRPS   *float64 `name:"rate-limit-rps" help:"Sustained requests per second allowed per client IP. Zero disables rate limiting." placeholder:"RPS"`
	DryRun         bool     `name:"dry-run" help:"Load and print the resolved configuration, then exit without binding a socket."`
}

// VersionCmd prints the gateway's version.
type VersionCmd struct{}

func (v *VersionCmd) Run() error {
	fmt.Println("ollama-gateway", version)
	return nil
}

func (s *ServeCmd) Run() error {
	flags := config.Flags{
		Port:           s.Port,
		OllamaBaseURL:  s.OllamaBaseURL,
		DefaultModel:   s.DefaultModel,
		StrictThinking: s.StrictThinking,
		LogLevel:       s.LogLevel,
		LogFile:        s.LogFile,
		RateLimitRPS:   s.RateLimitRPS,
	}

	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load(CLI.ConfigFile, flags)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if s.DryRun {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	}

	log, closer, err := gwlog.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	shutdownTelemetry, err := telemetry.Init(context.Background(), otelEndpoint)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(shutdownCtx)
	}()
	telemetrySettings := telemetry.DefaultSettings().WithEnabled(otelEndpoint != "")
	if otelEndpoint != "" {
		log.Info("telemetry enabled", "otlp_endpoint", otelEndpoint)
	}

	router := httpserver.NewRouter(cfg, log, telemetrySettings)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", "port", cfg.Port, "ollama_base_url", cfg.OllamaBaseURL)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down, draining in-flight requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("ollama-gateway"),
		kong.Description("Translates the Anthropic Messages API to a local Ollama server."),
		kong.UsageOnError(),
	)
	if err := ctx.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
