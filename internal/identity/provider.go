// Package identity syncs role metadata to the external identity provider.
// Sync is best-effort: failures are logged and reported, never block a role
// change.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/finlead/membership-backend/internal/types"
)

type Provider interface {
	UpdateRoleMetadata(ctx context.Context, memberID string, role types.Role) error
}

type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *HTTPProvider) UpdateRoleMetadata(ctx context.Context, memberID string, role types.Role) error {
	body, err := json.Marshal(map[string]any{
		"app_metadata": map[string]any{"role": role},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		p.baseURL+"/api/v2/users/"+memberID, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("identity provider returned %d", resp.StatusCode)
	}
	return nil
}

// NoopProvider logs instead of calling out.
type NoopProvider struct{}

func (NoopProvider) UpdateRoleMetadata(ctx context.Context, memberID string, role types.Role) error {
	log.Printf("[Identity] (noop) set role=%s for member %s", role, memberID)
	return nil
}
