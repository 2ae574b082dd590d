// package services defines interface Service for the upstream music provider
package services

import (
	"context"

	"github.com/desertthunder/crowdmix/internal/models"
	"golang.org/x/oauth2"
)

// Service is the upstream music provider a participant authorizes against.
//
// Implementations are stateless per call: the token always travels as an
// argument so one service instance can serve many participants concurrently.
type Service interface {
	// AuthURL returns the authorization page URL for user login, carrying
	// the given state token through the redirect round-trip.
	AuthURL(state string) string

	// ExchangeCode exchanges a single-use authorization code for a token.
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)

	// CurrentUser retrieves the authenticated user's profile. Callers treat
	// failure as non-fatal and fall back to a generated identity.
	CurrentUser(ctx context.Context, token *oauth2.Token) (*Profile, error)

	// TopTracks retrieves the user's top tracks, most preferred first,
	// at most limit entries.
	TopTracks(ctx context.Context, token *oauth2.Token, limit int) ([]models.Track, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// Profile is the provider-agnostic slice of a user profile the group
// service needs.
type Profile struct {
	ID          string
	DisplayName string
}
