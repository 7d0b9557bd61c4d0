// Package billing is the thin client for the external invoice service. The
// queue calls it as a fire-and-forget side effect of completing a
// consultation; it has no scheduling logic of its own.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// CreateInvoice asks the billing service to raise an invoice for a completed
// appointment.
func (c *Client) CreateInvoice(ctx context.Context, appointmentID uuid.UUID) error {
	if c.baseURL == "" {
		// Billing not configured; completion proceeds without invoicing.
		return nil
	}

	body, err := json.Marshal(map[string]string{"appointment_id": appointmentID.String()})
	if err != nil {
		return fmt.Errorf("marshal invoice request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/invoices", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build invoice request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("create invoice: billing service returned %d", resp.StatusCode)
	}
	return nil
}
