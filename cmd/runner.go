package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crowdmix/internal/flows"
	"github.com/desertthunder/crowdmix/internal/formatter"
	"github.com/desertthunder/crowdmix/internal/group"
	"github.com/desertthunder/crowdmix/internal/models"
	"github.com/desertthunder/crowdmix/internal/server"
	"github.com/desertthunder/crowdmix/internal/services"
	"github.com/desertthunder/crowdmix/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	logger     *log.Logger
	httpClient *http.Client
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Logger     *log.Logger
	HTTPClient *http.Client
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Runner{
		logger:     opts.Logger,
		httpClient: opts.HTTPClient,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, configCommand, topCommand, rosterCommand, resetCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves configuration for the serve command: .env overrides,
// then the config file when present, then embedded defaults.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	if err := shared.LoadDotenv(cmd.String("env")); err != nil {
		return nil, err
	}

	path := cmd.String("config")
	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		r.logger.Info("loaded config", "path", path)
		return config, nil
	}

	r.logger.Warn("config file not found, using defaults and environment", "path", path)
	return shared.DefaultConfig(), nil
}

// Serve validates configuration and runs the HTTP server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	// Missing credentials are fatal here, before any request is served.
	if err := config.Validate(); err != nil {
		return fmt.Errorf("startup check failed: %w", err)
	}

	spotify, err := services.NewSpotifyService(config.Credentials.Spotify)
	if err != nil {
		return err
	}

	registry := flows.NewRegistry(config.Group.LoginTTL())
	board := group.NewBoard()
	handler := server.NewGroupHandler(spotify, registry, board, r.logger, config.Group.PageSize)

	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.RequestLogger(r.logger), server.CORS())
	router.Register(handler)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := server.NewApp(config.Addr(), router, r.logger)
	return app.Start(ctx)
}

// ConfigInit writes the example configuration scaffold.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	return r.writePlain("✓ Wrote %s\n", path)
}

// Top fetches the leaderboard from a running server and renders it.
func (r *Runner) Top(ctx context.Context, cmd *cli.Command) error {
	var ranked []models.RankedTrack
	if err := r.getJSON(ctx, cmd.String("url")+"/aggregate", &ranked); err != nil {
		return err
	}

	switch format := cmd.String("format"); format {
	case "json":
		return r.writeJSON(ranked, true)
	case "csv":
		data, err := formatter.ToCSV(ranked)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	case "markdown", "md":
		return r.writeBytes(formatter.ToMarkdown(ranked))
	case "text":
		return r.writeBytes(formatter.ToText(ranked))
	case "table":
		return r.writeBytes(formatter.ToTable(ranked))
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidInput, format)
	}
}

// Roster fetches and prints the participant roster from a running server.
func (r *Runner) Roster(ctx context.Context, cmd *cli.Command) error {
	var participants []models.Participant
	if err := r.getJSON(ctx, cmd.String("url")+"/roster", &participants); err != nil {
		return err
	}
	return r.writeBytes(formatter.RosterToText(participants))
}

// Reset clears all group state on a running server.
func (r *Runner) Reset(ctx context.Context, cmd *cli.Command) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cmd.String("url")+"/reset", nil)
	if err != nil {
		return err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrUpstreamRejected, resp.StatusCode)
	}

	return r.writePlain("✓ Group state cleared\n")
}

func (r *Runner) getJSON(ctx context.Context, url string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrUpstreamRejected, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return r.writeBytes(append(output, '\n'))
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	return r.writeBytes(fmt.Appendf(nil, format, args...))
}
