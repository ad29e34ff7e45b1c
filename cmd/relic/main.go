package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/xonecas/relic-console/internal/config"
	"github.com/xonecas/relic-console/internal/core"
	"github.com/xonecas/relic-console/internal/protocol"
	"github.com/xonecas/relic-console/internal/provider"
	"github.com/xonecas/relic-console/internal/store"
	"github.com/xonecas/relic-console/internal/telemetry"
	"github.com/xonecas/relic-console/internal/tui"
)

// Version is set at build time via ldflags.
var Version = "dev"

const gatewayCheckTimeout = 15 * time.Second

func main() {
	// Parse flags
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "config.toml", "Path to config file")
		endpoint    = flag.String("endpoint", "", "Gateway WebSocket URL (overrides config)")
		debug       = flag.Bool("debug", false, "Enable debug logging")
		probe       = flag.Bool("probe", false, "Connect to the gateway, print a few frames, then exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("Relic Console %s\n", Version)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *endpoint != "" {
		cfg.Gateway.Endpoint = *endpoint
	}

	if *probe {
		// Warnings go to stderr so stdout carries only the frame report.
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
		os.Exit(runGatewayCheck(os.Stdout, cfg, gatewayCheckTimeout))
	}

	// Initialize logging
	if err := initLogging(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	log.Info().Str("version", Version).Str("endpoint", cfg.Gateway.Endpoint).Msg("Starting Relic Console")
	log.Debug().Interface("config", cfg).Msg("Configuration loaded")
	telemetry.SetBuildInfo(Version)

	// Load credentials
	creds, err := config.LoadCredentials()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load credentials")
		creds = &config.Credentials{}
	}

	// Initialize store. The console still works without a journal.
	s, err := store.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize store - journal and saved rules disabled")
		s = nil
	}
	var session *store.Session
	if s != nil {
		defer s.Close()
		session, err = s.BeginSession(cfg.Gateway.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to start journal session")
		}
	}

	// Initialize event bus
	bus := core.NewEventBus(cfg.Gateway.EventBuffer)
	defer bus.Close()
	eventCh := bus.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	// Gateway link
	link := core.NewLink(core.LinkConfigFrom(cfg.Gateway), bus)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := link.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Gateway link stopped")
		}
	}()

	// Metrics endpoint
	if cfg.Metrics.Listen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Str("addr", cfg.Metrics.Listen).Msg("Serving metrics")
			if err := telemetry.Serve(ctx, cfg.Metrics.Listen); err != nil {
				log.Error().Err(err).Msg("Metrics endpoint failed")
			}
		}()
	}

	// Rule assistant
	var assistant tui.Drafter
	p, err := provider.FromConfig(cfg.Assistant, creds)
	switch {
	case err == nil:
		assistant = provider.NewAssistant(p)
		log.Debug().Str("provider", p.Name()).Str("model", cfg.Assistant.Model).Msg("Assistant initialized")
	case errors.Is(err, provider.ErrProviderNotFound):
		log.Debug().Msg("Assistant disabled")
	default:
		log.Warn().Err(err).Msg("Failed to initialize assistant")
	}

	view := core.NewViewState(
		core.WithGossipCapacity(cfg.View.GossipCapacity),
		core.WithEventCapacity(cfg.View.EventCapacity),
	)

	opts := tui.Options{
		View:      view,
		Link:      link,
		Events:    eventCh,
		Store:     s,
		Session:   session,
		Assistant: assistant,
	}

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Create and run TUI
	program := tea.NewProgram(tui.New(opts), tea.WithAltScreen())

	// Handle shutdown in a goroutine
	go func() {
		select {
		case <-sigCh:
			log.Info().Msg("Received shutdown signal")
			program.Quit()
		case <-ctx.Done():
		}
	}()

	// Run the TUI
	if _, err := program.Run(); err != nil {
		log.Error().Err(err).Msg("TUI error")
	}

	// Clean shutdown: the link closes its socket when ctx is cancelled.
	cancel()
	wg.Wait()

	log.Info().Msg("Relic Console shutdown complete")
}

func initLogging(debug bool) error {
	// Ensure data directory exists
	dataDir, err := config.EnsureDataDir()
	if err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}

	// Open log file (truncate on startup)
	logPath := filepath.Join(dataDir, "relic.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Log to file only (TUI owns stdout/stderr)
	log.Logger = zerolog.New(logFile).With().Timestamp().Logger()

	return nil
}

// runGatewayCheck backs the -probe flag. It dials the gateway once, writes
// the first few frames to w and returns the process exit code.
func runGatewayCheck(w io.Writer, cfg *config.Config, timeout time.Duration) int {
	const wantFrames = 3

	fmt.Fprintln(w, "=== Gateway Check ===")
	fmt.Fprintf(w, "Endpoint: %s\n\n", cfg.Gateway.Endpoint)

	linkCfg := core.LinkConfigFrom(cfg.Gateway)
	linkCfg.Reconnect = false

	bus := core.NewEventBus(cfg.Gateway.EventBuffer)
	defer bus.Close()
	events := bus.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	link := core.NewLink(linkCfg, bus)
	runErr := make(chan error, 1)
	go func() { runErr <- link.Run(ctx) }()

	frames := 0
	for frames < wantFrames {
		select {
		case event := <-events:
			switch data := event.Data.(type) {
			case core.FrameData:
				frames++
				printFrame(w, frames, data.Message)
			case core.ErrorData:
				fmt.Fprintf(w, "  %s: %s\n", event.Type, data.Error)
			case core.LinkStateData:
				fmt.Fprintf(w, "  link %s -> %s\n", data.OldState, data.NewState)
			}
		case err := <-runErr:
			if ctx.Err() != nil {
				fmt.Fprintf(w, "\nTimed out after %d frame(s)\n", frames)
				return 1
			}
			if err != nil {
				fmt.Fprintf(w, "\nERROR: %v\n", err)
				return 1
			}
			fmt.Fprintln(w, "\nConnection closed by gateway")
			return 1
		case <-ctx.Done():
			fmt.Fprintf(w, "\nTimed out after %d frame(s)\n", frames)
			return 1
		}
	}

	cancel()
	<-runErr
	fmt.Fprintln(w, "\n=== Check Complete ===")
	return 0
}

func printFrame(w io.Writer, n int, msg protocol.Message) {
	switch msg.Kind {
	case protocol.KindTick:
		fmt.Fprintf(w, "OK: frame %d TICK nodes=%d mode=%s gossip=%d\n", n, len(msg.Nodes), msg.Mode, len(msg.Gossip))
	case protocol.KindSysEvent:
		fmt.Fprintf(w, "OK: frame %d SYS_EVENT %q\n", n, msg.Msg)
	default:
		fmt.Fprintf(w, "OK: frame %d %s nodes=%d\n", n, msg.Kind, len(msg.Nodes))
	}
}
