package zabbix

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
)

// Session is the view of the authenticated session the client needs.
// Defined here (consumer-side) so the session package can depend on Transport.
type Session interface {
	// Credentials returns the server URL and token from one snapshot.
	Credentials() (serverURL, token string)
	// Invalidate drops the session after the server rejected token. A
	// session that has since moved on to another token is kept.
	Invalidate(ctx context.Context, token string)
}

// Client issues authenticated calls on behalf of one session.
type Client struct {
	transport *Transport
	session   Session
	logger    *zap.Logger
}

// NewClient creates a Client bound to a session.
func NewClient(t *Transport, s Session, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{transport: t, session: s, logger: logger}
}

// Call invokes method with the session token attached and returns the raw
// result. Without a session it fails with ErrNotAuthenticated before any
// network activity. A rejected token clears the session and yields an
// error matching ErrSessionExpired.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	serverURL, token := c.session.Credentials()
	if serverURL == "" || token == "" {
		return nil, ErrNotAuthenticated
	}

	result, err := c.transport.Invoke(ctx, serverURL, method, params, token)
	if err == nil {
		return result, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.SessionExpired() {
		c.logger.Warn("session rejected by server",
			zap.String("method", method),
			zap.Int("code", apiErr.Code),
			zap.String("detail", apiErr.Text()),
		)
		c.session.Invalidate(ctx, token)
		return nil, sessionExpired(apiErr)
	}
	return nil, err
}

// APIVersion returns the server's API version. apiinfo.version must be
// called without a token, so only a known server URL is required.
func (c *Client) APIVersion(ctx context.Context) (string, error) {
	serverURL, _ := c.session.Credentials()
	if serverURL == "" {
		return "", ErrNotAuthenticated
	}
	result, err := c.transport.Invoke(ctx, serverURL, "apiinfo.version", nil, "")
	if err != nil {
		return "", err
	}
	var v string
	if err := json.Unmarshal(result, &v); err != nil {
		return "", &TransportError{Err: err}
	}
	return v, nil
}

// Hosts calls host.get.
func (c *Client) Hosts(ctx context.Context, q HostQuery) (json.RawMessage, error) {
	return c.Call(ctx, "host.get", q.Params())
}

// HostGroups calls hostgroup.get.
func (c *Client) HostGroups(ctx context.Context, q HostGroupQuery) (json.RawMessage, error) {
	return c.Call(ctx, "hostgroup.get", q.Params())
}

// Triggers calls trigger.get.
func (c *Client) Triggers(ctx context.Context, q TriggerQuery) (json.RawMessage, error) {
	return c.Call(ctx, "trigger.get", q.Params())
}

// Problems calls problem.get.
func (c *Client) Problems(ctx context.Context, q ProblemQuery) (json.RawMessage, error) {
	return c.Call(ctx, "problem.get", q.Params())
}

// Items calls item.get.
func (c *Client) Items(ctx context.Context, q ItemQuery) (json.RawMessage, error) {
	return c.Call(ctx, "item.get", q.Params())
}

// History calls history.get.
func (c *Client) History(ctx context.Context, q HistoryQuery) (json.RawMessage, error) {
	return c.Call(ctx, "history.get", q.Params())
}
