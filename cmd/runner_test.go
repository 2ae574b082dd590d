package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/crowdmix/internal/shared"
	"github.com/urfave/cli/v3"
)

// runCommand executes one top-level command of a fresh Runner against args,
// returning what it wrote to output.
func runCommand(t *testing.T, command func(*Runner) *cli.Command, args []string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	runner := NewRunner(RunnerOpts{
		Logger: shared.NewLogger(io.Discard),
		Output: &buf,
	})

	app := &cli.Command{Name: "crowdmix", Commands: []*cli.Command{command(runner)}}
	err := app.Run(context.Background(), append([]string{"crowdmix"}, args...))
	return buf.String(), err
}

func newAggregateServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /aggregate", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"X","title":"First Song","artist":"Ann","listeners":2,"score":5},
			{"id":"Y","title":"Second Song","artist":"Ben","listeners":1,"score":2}
		]`))
	})
	mux.HandleFunc("GET /roster", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"p1","display_name":"Alice","joined_at":"2026-08-01T12:30:00Z"}]`))
	})
	mux.HandleFunc("POST /reset", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"reset":true}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestTopCommand(t *testing.T) {
	server := newAggregateServer(t)

	t.Run("Table", func(t *testing.T) {
		out, err := runCommand(t, topCommand, []string{"top", "--url", server.URL})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out, "First Song") || !strings.Contains(out, "Ann") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		out, err := runCommand(t, topCommand, []string{"top", "--url", server.URL, "--format", "json"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out, `"listeners": 2`) {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("CSV", func(t *testing.T) {
		out, err := runCommand(t, topCommand, []string{"top", "--url", server.URL, "--format", "csv"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out, "1,X,First Song,Ann,2,5") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		if _, err := runCommand(t, topCommand, []string{"top", "--url", server.URL, "--format", "yaml"}); err == nil {
			t.Error("expected error for unknown format")
		}
	})

	t.Run("Unreachable Server", func(t *testing.T) {
		down := httptest.NewServer(http.NewServeMux())
		down.Close()
		if _, err := runCommand(t, topCommand, []string{"top", "--url", down.URL}); err == nil {
			t.Error("expected error for unreachable server")
		}
	})
}

func TestRosterCommand(t *testing.T) {
	server := newAggregateServer(t)

	out, err := runCommand(t, rosterCommand, []string{"roster", "--url", server.URL})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(out, "Alice") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestResetCommand(t *testing.T) {
	server := newAggregateServer(t)

	out, err := runCommand(t, resetCommand, []string{"reset", "--url", server.URL})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(out, "cleared") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, configCommand, []string{"config", "init", "--path", path})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(out, path) {
		t.Errorf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected config file to exist: %v", err)
	}

	if _, err := runCommand(t, configCommand, []string{"config", "init", "--path", path}); err == nil {
		t.Error("expected error when file already exists")
	}
}

func TestServeStartupValidation(t *testing.T) {
	// placeholder credentials must fail the startup check before listening
	t.Setenv("SPOTIFY_CLIENT_ID", "")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")
	tmp := t.TempDir()
	_, err := runCommand(t, serveCommand, []string{
		"serve",
		"--config", filepath.Join(tmp, "missing.toml"),
		"--env", filepath.Join(tmp, "missing.env"),
	})
	if err == nil {
		t.Fatal("expected startup to fail without credentials")
	}
	if !strings.Contains(err.Error(), "startup check failed") {
		t.Errorf("unexpected error: %v", err)
	}
}
