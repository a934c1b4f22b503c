// Package billing wraps the payment provider's subscription API behind a
// narrow interface. The engine treats provider calls as best-effort side
// effects: internal state is authoritative and a provider failure is
// surfaced to the caller, never rolled back into it.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Provider is the subset of the payment provider the lifecycle engine needs.
type Provider interface {
	// PauseBilling stops recurring charges until resumeAt.
	PauseBilling(ctx context.Context, subscriptionID string, resumeAt time.Time) error
	// UnpauseBilling resumes recurring charges immediately.
	UnpauseBilling(ctx context.Context, subscriptionID string) error
	// ScheduleCancellation ends the subscription at the given date. A zero
	// time means cancel at the current period end.
	ScheduleCancellation(ctx context.Context, subscriptionID string, at time.Time) error
}

// HTTPProvider calls the provider's REST API.
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

func (p *HTTPProvider) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("billing provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("billing provider returned %d for %s", resp.StatusCode, path)
	}
	return nil
}

func (p *HTTPProvider) PauseBilling(ctx context.Context, subscriptionID string, resumeAt time.Time) error {
	return p.post(ctx, "/v1/subscriptions/"+subscriptionID+"/pause", map[string]any{
		"resume_at": resumeAt.UTC().Format(time.RFC3339),
	})
}

func (p *HTTPProvider) UnpauseBilling(ctx context.Context, subscriptionID string) error {
	return p.post(ctx, "/v1/subscriptions/"+subscriptionID+"/resume", map[string]any{})
}

func (p *HTTPProvider) ScheduleCancellation(ctx context.Context, subscriptionID string, at time.Time) error {
	payload := map[string]any{"cancel_at_period_end": true}
	if !at.IsZero() {
		payload = map[string]any{"cancel_at": at.UTC().Format(time.RFC3339)}
	}
	return p.post(ctx, "/v1/subscriptions/"+subscriptionID+"/cancel", payload)
}

// NoopProvider logs calls without making them. Used when no provider is
// configured (local development) and as the default for tests.
type NoopProvider struct{}

func (NoopProvider) PauseBilling(ctx context.Context, subscriptionID string, resumeAt time.Time) error {
	log.Printf("[Billing] (noop) pause %s until %s", subscriptionID, resumeAt.Format(time.RFC3339))
	return nil
}

func (NoopProvider) UnpauseBilling(ctx context.Context, subscriptionID string) error {
	log.Printf("[Billing] (noop) unpause %s", subscriptionID)
	return nil
}

func (NoopProvider) ScheduleCancellation(ctx context.Context, subscriptionID string, at time.Time) error {
	log.Printf("[Billing] (noop) cancel %s at %v", subscriptionID, at)
	return nil
}
