// package formatter renders leaderboard snapshots to various formats (table, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/crowdmix/internal/models"
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#1DB954")).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

// ToCSV converts a leaderboard snapshot to CSV with columns: Rank, ID, Title, Artist, Listeners, Score
func ToCSV(ranked []models.RankedTrack) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Rank", "ID", "Title", "Artist", "Listeners", "Score"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range ranked {
		record := []string{
			strconv.Itoa(i + 1),
			track.ID,
			track.Title,
			track.Artist,
			strconv.Itoa(track.Listeners),
			strconv.Itoa(track.Score),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToMarkdown converts a leaderboard snapshot to a Markdown table.
func ToMarkdown(ranked []models.RankedTrack) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Group Top Tracks\n\n")
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(ranked)))
	buf.WriteString("| # | Title | Artist | Listeners | Score |\n")
	buf.WriteString("|---|-------|--------|-----------|-------|\n")

	for i, track := range ranked {
		buf.WriteString(fmt.Sprintf("| %d | %s | %s | %d | %d |\n",
			i+1, track.Title, track.Artist, track.Listeners, track.Score))
	}

	return buf.Bytes()
}

// ToText converts a leaderboard snapshot to plain text.
func ToText(ranked []models.RankedTrack) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Group Top Tracks (%d)\n\n", len(ranked)))
	for i, track := range ranked {
		buf.WriteString(fmt.Sprintf("%d. %s - %s (%d listeners, score %d)\n",
			i+1, track.Artist, track.Title, track.Listeners, track.Score))
	}

	return buf.Bytes()
}

// ToTable renders a styled terminal table of the leaderboard.
func ToTable(ranked []models.RankedTrack) []byte {
	var buf bytes.Buffer

	buf.WriteString(titleStyle.Render("♪ Group Top Tracks"))
	buf.WriteString("\n\n")

	if len(ranked) == 0 {
		buf.WriteString(dimStyle.Render("No tracks yet. Ask the group to log in at /login"))
		buf.WriteString("\n")
		return buf.Bytes()
	}

	buf.WriteString(headerStyle.Render(fmt.Sprintf("%-4s %-40s %-24s %9s %6s", "#", "Title", "Artist", "Listeners", "Score")))
	buf.WriteString("\n")

	for i, track := range ranked {
		buf.WriteString(fmt.Sprintf("%-4d %-40s %-24s %9d %6d\n",
			i+1, truncate(track.Title, 40), truncate(track.Artist, 24), track.Listeners, track.Score))
	}

	return buf.Bytes()
}

// RosterToText converts a roster snapshot to plain text, one line per participant.
func RosterToText(participants []models.Participant) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Participants (%d)\n\n", len(participants)))
	for i, p := range participants {
		buf.WriteString(fmt.Sprintf("%d. %s (joined %s)\n",
			i+1, p.DisplayName, p.JoinedAt.Format("2006-01-02 15:04")))
	}

	return buf.Bytes()
}

// truncate cuts on runes, not bytes, so multi-byte titles stay valid UTF-8.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}
