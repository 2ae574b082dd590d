// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/crowdmix/internal/models"
	"github.com/desertthunder/crowdmix/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// requestTimeout bounds every upstream call
	requestTimeout = 10 * time.Second
	// retryDelay is the fixed backoff before the single transient retry
	retryDelay = 500 * time.Millisecond
	// maxRetryAfter caps how long an upstream Retry-After hint is honored
	maxRetryAfter = 10 * time.Second
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	ExternalURLs externalURLs    `json:"external_urls"`
	Popularity   int             `json:"popularity"`
	URI          string          `json:"uri"`
}

// spotifyTopTracks is the paginated envelope of GET /me/top/tracks.
type spotifyTopTracks struct {
	Items []SpotifyTrack `json:"items"`
	Total int            `json:"total"`
	Limit int            `json:"limit"`
}

// SpotifyService implements the [Service] interface for Spotify API
// interactions. Uses [oauth2] for the code exchange and a [rate.Limiter] to
// pace outbound resource API calls.
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string

	// sleep is swappable for tests so retry backoff doesn't slow them down
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSpotifyService creates a Spotify service from validated credentials.
func NewSpotifyService(creds shared.SpotifyConfig) (*SpotifyService, error) {
	if creds.ClientID == "" {
		return nil, fmt.Errorf("%w: client_id", shared.ErrMissingCredentials)
	}
	if creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client_secret", shared.ErrMissingCredentials)
	}
	if creds.RedirectURI == "" {
		return nil, fmt.Errorf("%w: redirect_uri", shared.ErrMissingCredentials)
	}

	config := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       []string{"user-top-read"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
			// Spotify's token endpoint takes client_secret_basic; pinning the
			// style stops the oauth2 package from probing with a second call.
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(10), 1),
		baseURL:    spotifyBaseURL,
		sleep:      sleepContext,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for a token at the Spotify
// token endpoint.
//
// Upstream rejections are never retried: authorization codes are single-use
// by contract, so a second attempt cannot succeed. A transport failure gets
// one retry after a short delay.
func (s *SpotifyService) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		token, err := s.config.Exchange(ctx, code)
		if err == nil {
			return token, nil
		}

		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("%w: token endpoint status %d", shared.ErrUpstreamRejected, retrieveErr.Response.StatusCode)
		}

		// only transport failures are worth a retry; a 2xx response the
		// exchange could not parse is an upstream fault and the single-use
		// grant is already spent
		var urlErr *url.Error
		if !errors.As(err, &urlErr) {
			return nil, fmt.Errorf("%w: malformed token response: %v", shared.ErrUpstreamRejected, err)
		}

		lastErr = err
		if attempt == 0 {
			if err := s.sleep(ctx, retryDelay); err != nil {
				return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
			}
		}
	}

	return nil, fmt.Errorf("%w: token exchange: %v", shared.ErrNetwork, lastErr)
}

// CurrentUser retrieves the authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, token, "/me", &user); err != nil {
		return nil, err
	}
	return &Profile{ID: user.ID, DisplayName: user.DisplayName}, nil
}

// TopTracks retrieves the user's top tracks, most preferred first.
func (s *SpotifyService) TopTracks(ctx context.Context, token *oauth2.Token, limit int) ([]models.Track, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/me/top/tracks?limit=%d", limit)

	var response spotifyTopTracks
	if err := s.doRequest(ctx, token, endpoint, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Items))
	for _, item := range response.Items {
		if item.ID == "" {
			continue
		}
		names := make([]string, 0, len(item.Artists))
		for _, artist := range item.Artists {
			names = append(names, artist.Name)
		}
		tracks = append(tracks, models.Track{
			ID:     item.ID,
			Title:  item.Name,
			Artist: strings.Join(names, ", "),
			URL:    item.ExternalURLs.Spotify,
		})
	}

	return tracks, nil
}

// doRequest performs an authenticated GET against the Spotify API and decodes
// the JSON response into result.
//
// Error mapping: 401 and other non-2xx statuses fail immediately
// ([shared.ErrUpstreamUnauthorized] / [shared.ErrUpstreamRejected]); 429 is
// retried once after the Retry-After hint (capped); a transport failure is
// retried once after a fixed delay.
func (s *SpotifyService) doRequest(ctx context.Context, token *oauth2.Token, endpoint string, result any) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: missing access token", shared.ErrUpstreamUnauthorized)
	}

	apiURL := s.baseURL + endpoint

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrNetwork, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", shared.ErrNetwork, err)
			if attempt == 0 {
				if err := s.sleep(ctx, retryDelay); err != nil {
					return fmt.Errorf("%w: %v", shared.ErrNetwork, err)
				}
				continue
			}
			return lastErr
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			err := json.NewDecoder(resp.Body).Decode(result)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("%w: malformed response body: %v", shared.ErrUpstreamRejected, err)
			}
			return nil
		case resp.StatusCode == http.StatusUnauthorized:
			resp.Body.Close()
			return fmt.Errorf("%w: status 401", shared.ErrUpstreamUnauthorized)
		case resp.StatusCode == http.StatusTooManyRequests:
			delay := retryAfter(resp)
			resp.Body.Close()
			lastErr = fmt.Errorf("%w: status 429", shared.ErrRateLimited)
			if attempt == 0 {
				if err := s.sleep(ctx, delay); err != nil {
					return fmt.Errorf("%w: %v", shared.ErrNetwork, err)
				}
				continue
			}
			return lastErr
		default:
			code := resp.StatusCode
			resp.Body.Close()
			return fmt.Errorf("%w: status %d", shared.ErrUpstreamRejected, code)
		}
	}

	return lastErr
}

// retryAfter derives the 429 backoff from the upstream Retry-After hint,
// falling back to the fixed delay and capping unreasonable values.
func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return retryDelay
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return retryDelay
	}
	delay := time.Duration(seconds) * time.Second
	if delay > maxRetryAfter {
		return maxRetryAfter
	}
	return delay
}

// sleepContext waits for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
