package customers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrNotFound = errors.New("customer not found")

// Client: lookup customer via registry service (service-to-service Bearer).
// Dipakai jalur create order; selain 200 diperlakukan customer invalid.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) Get(ctx context.Context, id int64) (*Customer, error) {
	url := fmt.Sprintf("%s/customers/%d", c.BaseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("customers lookup: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var cust Customer
		if err := json.NewDecoder(resp.Body).Decode(&cust); err != nil {
			return nil, fmt.Errorf("customers lookup: decode: %w", err)
		}
		return &cust, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	default:
		return nil, fmt.Errorf("customers lookup: unexpected status %d", resp.StatusCode)
	}
}
