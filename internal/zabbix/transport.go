package zabbix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// EndpointPath is the JSON-RPC endpoint relative to the frontend URL.
const EndpointPath = "/api_jsonrpc.php"

// maxErrorBody bounds how much of a failed response body is kept in errors.
const maxErrorBody = 512

// Transport sends JSON-RPC envelopes to a Zabbix server. It knows nothing
// about sessions; the caller decides whether to attach a token.
type Transport struct {
	httpClient *http.Client
	logger     *zap.Logger
	nextID     atomic.Int64
}

// NewTransport creates a Transport with the given HTTP timeout.
func NewTransport(timeout time.Duration, logger *zap.Logger) *Transport {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Endpoint returns the JSON-RPC endpoint for a server URL. Both the
// frontend root ("http://z.example/zabbix") and the full endpoint URL are accepted.
func Endpoint(serverURL string) string {
	u := strings.TrimRight(strings.TrimSpace(serverURL), "/")
	if strings.HasSuffix(u, EndpointPath) {
		return u
	}
	return u + EndpointPath
}

// NewRequest builds an envelope with the next request id. auth is omitted
// from the encoded envelope when empty.
func (t *Transport) NewRequest(method string, params any, auth string) Request {
	if params == nil {
		params = emptyParams
	}
	return Request{
		JSONRPC: Version,
		Method:  method,
		Params:  params,
		ID:      t.nextID.Add(1),
		Auth:    auth,
	}
}

// Invoke performs one JSON-RPC call and returns the result member verbatim.
// It never retries.
func (t *Transport) Invoke(ctx context.Context, serverURL, method string, params any, auth string) (json.RawMessage, error) {
	start := time.Now()
	result, err := t.invoke(ctx, serverURL, t.NewRequest(method, params, auth))
	duration := time.Since(start)

	outcome := outcomeOK
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		outcome = outcomeAPIError
	case err != nil:
		outcome = outcomeTransport
	}
	rpcRequestsTotal.WithLabelValues(method, outcome).Inc()
	rpcRequestDuration.WithLabelValues(method).Observe(duration.Seconds())

	t.logger.Debug("zabbix rpc",
		zap.String("method", method),
		zap.String("outcome", outcome),
		zap.Bool("auth", auth != ""),
		zap.Duration("duration", duration),
	)
	return result, err
}

func (t *Transport) invoke(ctx context.Context, serverURL string, rpcReq Request) (json.RawMessage, error) {
	data, err := json.Marshal(rpcReq)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", rpcReq.Method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, Endpoint(serverURL), bytes.NewReader(data))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var rpcResp Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}

	if rpcResp.Error != nil {
		return nil, &APIError{
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
			Data:    rpcResp.Error.Data,
		}
	}
	return rpcResp.Result, nil
}
