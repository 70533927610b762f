package saga

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ariefcatur/go-order-saga.git/internal/orders"
)

// RemoteError membawa status code downstream apa adanya; orchestrator
// memantulkannya sebagai status response-nya sendiri.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote status %d: %s", e.Status, e.Message)
}

// OrdersClient memanggil orders service (create, confirm, cancel)
// dari orchestrator lewat HTTP.
type OrdersClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewOrdersClient(baseURL, token string) *OrdersClient {
	return &OrdersClient{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

type createOrderResponse struct {
	Message string       `json:"message"`
	Order   orders.Order `json:"order"`
}

func (c *OrdersClient) CreateOrder(ctx context.Context, customerID int64, items []orders.ItemInput) (*orders.Order, error) {
	body := map[string]any{"customer_id": customerID, "items": items}
	resp, raw, err := c.do(ctx, http.MethodPost, "/orders", body, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, remoteErr(resp.StatusCode, raw)
	}
	var out createOrderResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("orders create: decode: %w", err)
	}
	return &out.Order, nil
}

// ConfirmOrder mengembalikan body confirm mentah supaya orchestrator bisa
// menempelkannya sebagai details tanpa kehilangan field.
func (c *OrdersClient) ConfirmOrder(ctx context.Context, orderID int64, idemKey string) (json.RawMessage, error) {
	path := fmt.Sprintf("/orders/%d/confirm", orderID)
	hdr := map[string]string{"Idempotency-Key": idemKey}
	resp, raw, err := c.do(ctx, http.MethodPost, path, struct{}{}, hdr)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, remoteErr(resp.StatusCode, raw)
	}
	return raw, nil
}

func (c *OrdersClient) CancelOrder(ctx context.Context, orderID int64) error {
	path := fmt.Sprintf("/orders/%d/cancel", orderID)
	resp, raw, err := c.do(ctx, http.MethodPost, path, struct{}{}, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return remoteErr(resp.StatusCode, raw)
	}
	return nil
}

func (c *OrdersClient) do(ctx context.Context, method, path string, body any, headers map[string]string) (*http.Response, []byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("orders api %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("orders api %s %s: read body: %w", method, path, err)
	}
	return resp, raw, nil
}

// remoteErr: ekstrak message/error dari body downstream; fallback ke raw.
func remoteErr(status int, raw []byte) *RemoteError {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if parsed.Message != "" {
			msg = parsed.Message
		} else if parsed.Error != "" {
			msg = parsed.Error
		}
	}
	if msg == "" {
		msg = string(raw)
	}
	return &RemoteError{Status: status, Message: msg}
}
