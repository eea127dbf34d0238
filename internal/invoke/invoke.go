package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Request is the uniform payload every vendor integration sends through
// the remote function facility.
type Request struct {
	MerchantID string         `json:"merchantId"`
	Endpoint   string         `json:"endpoint"`
	Data       map[string]any `json:"data,omitempty"`
}

// Response is the uniform envelope every vendor function returns.
type Response struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId,omitempty"`
	Status        string `json:"status,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Invoker is the sole network transport boundary for vendor calls;
// gateways are unit-tested against a fake implementation.
type Invoker interface {
	Invoke(ctx context.Context, function string, req *Request) (*Response, error)
}

// HTTPInvoker posts JSON to <baseURL>/functions/<name>.
type HTTPInvoker struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPInvoker(baseURL, apiKey string) *HTTPInvoker {
	return &HTTPInvoker{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPInvoker) Invoke(ctx context.Context, function string, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "encode invoke request")
	}

	endpoint := c.baseURL + "/functions/" + function
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build invoke request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(err, "invoke %s", function)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		raw, _ := io.ReadAll(httpResp.Body)
		msg := strings.TrimSpace(string(raw))
		if msg != "" {
			return nil, fmt.Errorf("invoke %s: http status %d: %s", function, httpResp.StatusCode, msg)
		}
		return nil, fmt.Errorf("invoke %s: http status %d", function, httpResp.StatusCode)
	}

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, errors.Wrapf(err, "decode %s response", function)
	}
	return &resp, nil
}
