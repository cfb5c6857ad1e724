package schwab

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Token is the persisted OAuth token pair.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the access token is past its expiry (with the
// refresh margin already baked into ExpiresAt at save time).
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// TokenStore persists the OAuth token pair as a JSON file with owner-only
// permissions.
type TokenStore struct {
	path string
}

// NewTokenStore creates a token store rooted at the credentials directory.
func NewTokenStore(dir string) *TokenStore {
	return &TokenStore{path: filepath.Join(dir, "schwab_token.json")}
}

// Load reads the stored token. A missing file returns (nil, nil).
func (s *TokenStore) Load() (*Token, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading token file: %w", err)
	}

	var token Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("parsing token file: %w", err)
	}

	return &token, nil
}

// Save writes the token with 0600 permissions, creating the credentials
// directory if needed.
func (s *TokenStore) Save(token *Token) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating credentials dir: %w", err)
	}

	raw, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}

	return nil
}

// AuthManager hands out valid access tokens, refreshing through the OAuth
// refresh-token grant when the cached token expires. The interactive
// authorization-code bootstrap is a separate operator concern; a missing
// refresh token is a hard error telling the operator to seed the token file.
type AuthManager struct {
	appKey     string
	appSecret  string
	tokenURL   string
	store      *TokenStore
	httpClient *http.Client
	logger     zerolog.Logger

	mu     sync.Mutex
	cached *Token
}

// AuthOptions holds options for creating a new AuthManager.
type AuthOptions struct {
	AppKey    string
	AppSecret string
	TokenURL  string
	Store     *TokenStore
	Timeout   time.Duration
}

// NewAuthManager creates an auth manager backed by the given token store.
func NewAuthManager(opts AuthOptions) *AuthManager {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &AuthManager{
		appKey:     opts.AppKey,
		appSecret:  opts.AppSecret,
		tokenURL:   opts.TokenURL,
		store:      opts.Store,
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     log.With().Str("component", "schwab_auth").Logger(),
	}
}

// AccessToken returns a valid access token, refreshing it when expired.
func (a *AuthManager) AccessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cached == nil {
		token, err := a.store.Load()
		if err != nil {
			return "", err
		}
		a.cached = token
	}

	if a.cached == nil || a.cached.RefreshToken == "" {
		return "", fmt.Errorf("no stored Schwab token; seed %s via the OAuth bootstrap first", a.store.path)
	}

	if !a.cached.Expired(time.Now()) {
		return a.cached.AccessToken, nil
	}

	a.logger.Info().Msg("Access token expired, refreshing")

	refreshed, err := a.refresh(ctx, a.cached.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("refreshing access token: %w", err)
	}

	if err := a.store.Save(refreshed); err != nil {
		return "", err
	}
	a.cached = refreshed

	return refreshed.AccessToken, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (a *AuthManager) refresh(ctx context.Context, refreshToken string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(a.appKey + ":" + a.appSecret))
	req.Header.Set("Authorization", "Basic "+credentials)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}

	// Renew one minute early so in-flight requests never carry a token that
	// expires mid-call.
	token := &Token{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(parsed.ExpiresIn)*time.Second - time.Minute),
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}

	return token, nil
}
