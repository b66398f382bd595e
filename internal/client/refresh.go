package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/catchup-feed/edge-gateway/internal/models"
)

// Refresher exchanges a refresh token for a fresh token pair. It is an
// injected dependency so the refresh endpoint sits above the request loop
// instead of the client calling back into its own transport.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPairResponse, error)
}

// TokenRefresher is the standard Refresher: POST /api/auth/refresh against
// the backend API with its own plain HTTP client, outside the retry policy.
type TokenRefresher struct {
	baseURL    string
	httpClient *http.Client
}

func NewTokenRefresher(baseURL string, timeout time.Duration) *TokenRefresher {
	return &TokenRefresher{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (r *TokenRefresher) Refresh(ctx context.Context, refreshToken string) (*models.TokenPairResponse, error) {
	payload, err := json.Marshal(models.TokenRefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, fmt.Errorf("marshal refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/auth/refresh", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refresh endpoint returned HTTP %d", resp.StatusCode)
	}

	var pair models.TokenPairResponse
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return nil, fmt.Errorf("decode refresh response: %w", err)
	}
	if pair.AccessToken == "" {
		return nil, errors.New("refresh returned empty access token")
	}

	return &pair, nil
}
