// package models defines the data model for the group listening service
package models

import "time"

// Track is one ranked item from a participant's top-tracks list.
//
// Rank position is implicit in slice order (index 0 = most preferred).
type Track struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	URL    string `json:"url,omitempty"`
}

// Participant is one authorized member of the group.
type Participant struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
}

// RankedTrack is a track with its accumulated group statistics, as surfaced
// by the aggregate endpoint.
type RankedTrack struct {
	Track
	// Listeners counts distinct participants whose list included the track.
	Listeners int `json:"listeners"`
	// Score sums each contributor's (list length - rank position), so a
	// higher-ranked pick contributes more weight.
	Score int `json:"score"`
}
