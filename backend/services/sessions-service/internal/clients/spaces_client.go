package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"parkwise/backend/services/sessions-service/internal/models"
)

// HTTPDoer defines http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// SpacesClient calls the parking-space inventory service. The inventory owns
// the space aggregate; this client only pushes status updates at it.
type SpacesClient struct {
	baseURL string
	client  HTTPDoer
}

// NewSpacesClient builds client with base URL.
func NewSpacesClient(baseURL string, client HTTPDoer) *SpacesClient {
	return &SpacesClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type setStatusRequest struct {
	Status models.SpaceStatus `json:"status"`
}

// SetStatus executes PUT /parking-spaces/{id}/status. A non-2xx response is
// an error; the caller decides whether it is fatal.
func (c *SpacesClient) SetStatus(ctx context.Context, spaceID int64, status models.SpaceStatus) error {
	body, err := json.Marshal(setStatusRequest{Status: status})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/parking-spaces/%d/status", c.baseURL, spaceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("spaces: set status %s for space %d: unexpected status %d", status, spaceID, resp.StatusCode)
	}
	return nil
}

// NewDefaultHTTPClient returns *http.Client with timeout.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
