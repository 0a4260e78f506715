package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"vehicle-control-service/internal/vehicle"
)

// maxHistoryLimit caps one page of remote history.
const maxHistoryLimit = 200

// Client talks to the remote vehicle-control service (car-api).
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a gateway client. token may be empty when the remote
// service does not require a credential.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// statusResponse is the remote envelope for status and control calls. The
// telemetry arrives under "data" on status reads and under "status" (or
// "data") on control dispatches.
type statusResponse struct {
	Success bool               `json:"success"`
	Data    *vehicle.Telemetry `json:"data,omitempty"`
	Status  *vehicle.Telemetry `json:"status,omitempty"`
	Message string             `json:"message,omitempty"`
	Error   string             `json:"error,omitempty"`
}

func (c *Client) FetchStatus(ctx context.Context, vehicleID string) (*vehicle.Snapshot, error) {
	endpoint := fmt.Sprintf("%s/api/vehicle/status?id=%s", c.baseURL, url.QueryEscape(vehicleID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatusCode(resp.StatusCode); err != nil {
		return nil, err
	}

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding status response: %v", ErrUnavailable, err)
	}
	if body.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, body.Error)
	}
	telemetry := body.Data
	if telemetry == nil {
		telemetry = body.Status
	}
	if telemetry == nil {
		return nil, fmt.Errorf("%w: status response carried no telemetry", ErrUnavailable)
	}

	return vehicle.FromTelemetry(*telemetry), nil
}

func (c *Client) Dispatch(ctx context.Context, vehicleID, property string, value any) (*vehicle.Snapshot, string, error) {
	payload := struct {
		ID       string `json:"id"`
		Property string `json:"property"`
		Value    any    `json:"value"`
	}{vehicleID, property, value}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}

	endpoint := fmt.Sprintf("%s/api/vehicle/control", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyControlCode(resp.StatusCode); err != nil {
		return nil, "", err
	}

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, "", fmt.Errorf("%w: decoding control response: %v", ErrUnavailable, err)
	}
	if body.Error != "" || !body.Success {
		return nil, "", fmt.Errorf("%w: %s", ErrInvalidRequest, body.Error)
	}
	telemetry := body.Status
	if telemetry == nil {
		telemetry = body.Data
	}
	if telemetry == nil {
		return nil, "", fmt.Errorf("%w: control response carried no telemetry", ErrUnavailable)
	}

	return vehicle.FromTelemetry(*telemetry), body.Message, nil
}

func (c *Client) ListVehicles(ctx context.Context) ([]vehicle.Info, error) {
	endpoint := fmt.Sprintf("%s/vehicles", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatusCode(resp.StatusCode); err != nil {
		return nil, err
	}

	var vehicles []vehicle.Info
	if err := json.NewDecoder(resp.Body).Decode(&vehicles); err != nil {
		return nil, fmt.Errorf("%w: decoding vehicle list: %v", ErrUnavailable, err)
	}

	return vehicles, nil
}

func (c *Client) FetchHistory(ctx context.Context, vehicleID string, limit, page int) (*HistoryPage, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if page < 1 {
		page = 1
	}

	endpoint := fmt.Sprintf("%s/vehicle/%s/history?limit=%d&page=%d",
		c.baseURL, url.PathEscape(vehicleID), limit, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatusCode(resp.StatusCode); err != nil {
		return nil, err
	}

	var body struct {
		Success bool         `json:"success"`
		Data    *HistoryPage `json:"data"`
		Error   string       `json:"error,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding history response: %v", ErrUnavailable, err)
	}
	if !body.Success || body.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, body.Error)
	}

	return body.Data, nil
}

func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	endpoint := fmt.Sprintf("%s/health", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned status %d", ErrUnavailable, resp.StatusCode)
	}

	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// classifyStatusCode maps read-path HTTP codes onto the failure taxonomy.
func classifyStatusCode(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, code)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: status %d", ErrNoVehicle, code)
	case code >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, code)
	default:
		return fmt.Errorf("%w: status %d", ErrInvalidRequest, code)
	}
}

// classifyControlCode maps dispatch HTTP codes onto the failure taxonomy.
// 503 means the remote vehicle service is down; any other 4xx besides auth
// is a rejection of the request itself.
func classifyControlCode(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, code)
	case code >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, code)
	default:
		return fmt.Errorf("%w: status %d", ErrInvalidRequest, code)
	}
}
