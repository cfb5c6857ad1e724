package schwab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenStoreLoadMissingFile(t *testing.T) {
	store := NewTokenStore(t.TempDir())

	token, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if token != nil {
		t.Errorf("expected nil token for missing file, got %+v", token)
	}
}

func TestTokenStoreRoundTrip(t *testing.T) {
	store := NewTokenStore(t.TempDir())

	saved := &Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(30 * time.Minute).Truncate(time.Second),
	}
	if err := store.Save(saved); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.AccessToken != saved.AccessToken || loaded.RefreshToken != saved.RefreshToken {
		t.Errorf("round trip mismatch: %+v vs %+v", loaded, saved)
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	token := &Token{ExpiresAt: now.Add(time.Minute)}

	if token.Expired(now) {
		t.Error("token should not be expired before ExpiresAt")
	}
	if !token.Expired(now.Add(time.Minute)) {
		t.Error("token should be expired at ExpiresAt")
	}
}

func TestAccessTokenRequiresSeededToken(t *testing.T) {
	auth := NewAuthManager(AuthOptions{
		AppKey:    "key",
		AppSecret: "secret",
		Store:     NewTokenStore(t.TempDir()),
	})

	if _, err := auth.AccessToken(context.Background()); err == nil {
		t.Error("expected error when no token has been seeded")
	}
}

func TestAccessTokenUsesCachedWhileValid(t *testing.T) {
	store := NewTokenStore(t.TempDir())
	if err := store.Save(&Token{
		AccessToken:  "still-good",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	auth := NewAuthManager(AuthOptions{
		AppKey:    "key",
		AppSecret: "secret",
		TokenURL:  "http://invalid.invalid/token",
		Store:     store,
	})

	token, err := auth.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken() error: %v", err)
	}
	if token != "still-good" {
		t.Errorf("token = %q, want still-good", token)
	}
}

func TestAccessTokenRefreshesExpiredToken(t *testing.T) {
	var sawBasicAuth, sawGrantType bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing form: %v", err)
		}
		sawGrantType = r.PostForm.Get("grant_type") == "refresh_token"
		_, _, sawBasicAuth = r.BasicAuth()

		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh",
			"expires_in":   1800,
		})
	}))
	defer server.Close()

	store := NewTokenStore(t.TempDir())
	if err := store.Save(&Token{
		AccessToken:  "stale",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	auth := NewAuthManager(AuthOptions{
		AppKey:    "key",
		AppSecret: "secret",
		TokenURL:  server.URL,
		Store:     store,
	})

	token, err := auth.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken() error: %v", err)
	}
	if token != "fresh" {
		t.Errorf("token = %q, want fresh", token)
	}
	if !sawGrantType {
		t.Error("refresh request missing grant_type=refresh_token")
	}
	if !sawBasicAuth {
		t.Error("refresh request missing basic auth credentials")
	}

	// Response omitted the refresh token, so the old one must survive.
	persisted, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if persisted.RefreshToken != "refresh" {
		t.Errorf("persisted refresh token = %q, want refresh", persisted.RefreshToken)
	}
	if persisted.AccessToken != "fresh" {
		t.Errorf("persisted access token = %q, want fresh", persisted.AccessToken)
	}
}
