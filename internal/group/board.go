// package group holds the shared in-memory state for one listening group:
// the track leaderboard, the participant roster, and each participant's last
// contribution.
package group

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/desertthunder/crowdmix/internal/models"
	"github.com/desertthunder/crowdmix/internal/shared"
)

// tally accumulates statistics for one track across participants.
//
// Descriptive fields are first-writer-wins: later contributors only move the
// counters, so the leaderboard never relabels a track.
type tally struct {
	track     models.Track
	listeners int
	score     int
}

// contribution records one (track, weight) pair a participant added, so a
// repeat authorization can subtract its prior effect before re-adding.
type contribution struct {
	trackID string
	weight  int
}

// Board is the aggregate root for group state. Ingest, Reset, and the
// snapshot reads all serialize through one mutex; callers must do any
// network I/O before calling in.
type Board struct {
	mu            sync.Mutex
	tallies       map[string]*tally
	roster        map[string]models.Participant
	contributions map[string][]contribution

	// now is swappable for tests
	now func() time.Time
}

// NewBoard creates an empty Board.
func NewBoard() *Board {
	b := &Board{now: time.Now}
	b.clear()
	return b
}

// clear resets all collections. Callers must hold mu (or own the Board
// exclusively, as in NewBoard).
func (b *Board) clear() {
	b.tallies = make(map[string]*tally)
	b.roster = make(map[string]models.Participant)
	b.contributions = make(map[string][]contribution)
}

// Ingest merges one participant's ranked track list into the board and
// records the participant in the roster.
//
// A track at position i in a list of n contributes weight n-i, so the top
// pick counts most. Re-ingesting the same participant replaces their prior
// contribution rather than adding to it: counts never inflate when someone
// authorizes twice. The whole merge is all-or-nothing under the board lock.
func (b *Board) Ingest(participantID, displayName string, tracks []models.Track) (models.Participant, error) {
	if participantID == "" {
		return models.Participant{}, fmt.Errorf("%w: empty participant id", shared.ErrInvalidInput)
	}
	if displayName == "" {
		displayName = "Anonymous Listener"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.retract(participantID)

	n := len(tracks)
	added := make([]contribution, 0, n)
	seen := make(map[string]struct{}, n)
	for i, track := range tracks {
		if track.ID == "" {
			continue
		}
		// one participant contributes at most one occurrence per track;
		// a duplicate id in the same list only counts its best rank
		if _, dup := seen[track.ID]; dup {
			continue
		}
		seen[track.ID] = struct{}{}
		weight := n - i
		t, ok := b.tallies[track.ID]
		if !ok {
			t = &tally{track: track}
			b.tallies[track.ID] = t
		}
		t.listeners++
		t.score += weight
		added = append(added, contribution{trackID: track.ID, weight: weight})
	}
	b.contributions[participantID] = added

	participant, ok := b.roster[participantID]
	if !ok {
		participant = models.Participant{ID: participantID, DisplayName: displayName}
	}
	participant.JoinedAt = b.now()
	b.roster[participantID] = participant

	return participant, nil
}

// retract subtracts a participant's previously recorded contribution.
// Callers must hold mu.
func (b *Board) retract(participantID string) {
	prior, ok := b.contributions[participantID]
	if !ok {
		return
	}
	for _, c := range prior {
		t, ok := b.tallies[c.trackID]
		if !ok {
			continue
		}
		t.listeners--
		t.score -= c.weight
		if t.listeners <= 0 {
			delete(b.tallies, c.trackID)
		}
	}
	delete(b.contributions, participantID)
}

// Reset atomically empties the leaderboard, the roster, and the contribution
// history. Calling it on an empty board is a no-op success.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clear()
}

// Aggregate returns a defensive copy of the leaderboard in canonical order:
// listeners descending, then score descending, then track id ascending.
//
// This comparator is the only ordering rule for aggregate results; nothing
// downstream may re-sort with a different one.
func (b *Board) Aggregate() []models.RankedTrack {
	b.mu.Lock()
	ranked := make([]models.RankedTrack, 0, len(b.tallies))
	for _, t := range b.tallies {
		ranked = append(ranked, models.RankedTrack{Track: t.track, Listeners: t.listeners, Score: t.score})
	}
	b.mu.Unlock()

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Listeners != ranked[j].Listeners {
			return ranked[i].Listeners > ranked[j].Listeners
		}
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}

// Roster returns a defensive copy of the participant roster ordered by join
// time ascending, with id as a deterministic tiebreak.
func (b *Board) Roster() []models.Participant {
	b.mu.Lock()
	participants := make([]models.Participant, 0, len(b.roster))
	for _, p := range b.roster {
		participants = append(participants, p)
	}
	b.mu.Unlock()

	sort.Slice(participants, func(i, j int) bool {
		if !participants[i].JoinedAt.Equal(participants[j].JoinedAt) {
			return participants[i].JoinedAt.Before(participants[j].JoinedAt)
		}
		return participants[i].ID < participants[j].ID
	})
	return participants
}
