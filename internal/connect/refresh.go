package connect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/joshua-takyi/bashbay-client/internal/models"
	"github.com/supabase-community/gotrue-go/types"
	"github.com/supabase-community/supabase-go"
)

type Tokens struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh,omitempty"`
}

// Refresher trades a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)
}

// BackendRefresher uses the backend's own token refresh endpoint.
type BackendRefresher struct {
	endpoint string
	http     *http.Client
}

func NewBackendRefresher(backendURL string, httpClient *http.Client) *BackendRefresher {
	return &BackendRefresher{
		endpoint: strings.TrimRight(backendURL, "/") + "/api/token/refresh/",
		http:     httpClient,
	}
}

func (r *BackendRefresher) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	body, err := json.Marshal(map[string]string{"refresh": refreshToken})
	if err != nil {
		return Tokens{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return Tokens{}, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return Tokens{}, fmt.Errorf("%w: token refresh: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Tokens{}, fmt.Errorf("%w: token refresh: %v", models.ErrNetwork, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return Tokens{}, fmt.Errorf("%w: token refresh returned %d", models.ErrNetwork, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return Tokens{}, fmt.Errorf("%w: refresh rejected with status %d", models.ErrAuthExpired, resp.StatusCode)
	}

	var tokens Tokens
	if err := json.Unmarshal(raw, &tokens); err != nil || tokens.AccessToken == "" {
		return Tokens{}, fmt.Errorf("%w: refresh response carried no access token", models.ErrAuthExpired)
	}
	return tokens, nil
}

// SupabaseRefresher refreshes sessions issued by Supabase GoTrue.
type SupabaseRefresher struct {
	client *supabase.Client
}

func NewSupabaseRefresher(client *supabase.Client) *SupabaseRefresher {
	return &SupabaseRefresher{client: client}
}

func (r *SupabaseRefresher) Refresh(_ context.Context, refreshToken string) (Tokens, error) {
	var resp *types.TokenResponse
	resp, err := r.client.Auth.RefreshToken(refreshToken)
	if err != nil {
		return Tokens{}, fmt.Errorf("%w: supabase refresh failed: %v", models.ErrAuthExpired, err)
	}
	if resp == nil || resp.AccessToken == "" {
		return Tokens{}, fmt.Errorf("%w: invalid refresh response", models.ErrAuthExpired)
	}
	return Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, nil
}
