package formatter

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/desertthunder/crowdmix/internal/models"
)

func sampleRanked() []models.RankedTrack {
	return []models.RankedTrack{
		{Track: models.Track{ID: "X", Title: "First Song", Artist: "Ann"}, Listeners: 2, Score: 5},
		{Track: models.Track{ID: "Y", Title: "Second Song", Artist: "Ben"}, Listeners: 1, Score: 2},
	}
}

func TestToCSV(t *testing.T) {
	data, err := ToCSV(sampleRanked())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "Rank,ID,Title,Artist,Listeners,Score" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if lines[1] != "1,X,First Song,Ann,2,5" {
		t.Errorf("unexpected first row: %s", lines[1])
	}
}

func TestToMarkdown(t *testing.T) {
	out := string(ToMarkdown(sampleRanked()))

	for _, want := range []string{"# Group Top Tracks", "| 1 | First Song | Ann | 2 | 5 |", "**Tracks**: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestToText(t *testing.T) {
	out := string(ToText(sampleRanked()))

	if !strings.Contains(out, "1. Ann - First Song (2 listeners, score 5)") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestToTable(t *testing.T) {
	t.Run("With Tracks", func(t *testing.T) {
		out := string(ToTable(sampleRanked()))
		for _, want := range []string{"First Song", "Ann", "Second Song"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected table to contain %q", want)
			}
		}
	})

	t.Run("Empty", func(t *testing.T) {
		out := string(ToTable(nil))
		if !strings.Contains(out, "No tracks yet") {
			t.Errorf("expected empty-state hint, got:\n%s", out)
		}
	})
}

func TestRosterToText(t *testing.T) {
	joined := time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC)
	out := string(RosterToText([]models.Participant{
		{ID: "p1", DisplayName: "Alice", JoinedAt: joined},
	}))

	if !strings.Contains(out, "1. Alice (joined 2026-08-01 12:30)") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged string, got %q", got)
	}
	if got := truncate("a very long track title", 10); len([]rune(got)) != 10 || !strings.HasSuffix(got, "…") {
		t.Errorf("expected truncated string with ellipsis, got %q", got)
	}

	t.Run("Multi-Byte Titles", func(t *testing.T) {
		got := truncate("日本語のとても長い曲名です", 6)
		if !utf8.ValidString(got) {
			t.Errorf("expected valid UTF-8, got %q", got)
		}
		if len([]rune(got)) != 6 || !strings.HasSuffix(got, "…") {
			t.Errorf("expected 6-rune string with ellipsis, got %q", got)
		}

		// a title exactly at the limit passes through untouched
		if got := truncate("日本語です", 5); got != "日本語です" {
			t.Errorf("expected unchanged string, got %q", got)
		}
	})
}
