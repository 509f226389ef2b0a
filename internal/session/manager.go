// Package session owns the Zabbix session: login, logout, and the
// token/server/user triple persisted across restarts.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/HerbHall/zabbixdash/internal/event"
	"github.com/HerbHall/zabbixdash/internal/zabbix"
	"go.uber.org/zap"
)

// Event topics published by the Manager.
const (
	TopicEstablished = "session.established"
	TopicCleared     = "session.cleared"
)

// Reasons carried in Change for TopicCleared.
const (
	ReasonLogout  = "logout"
	ReasonExpired = "expired"
)

// eventSource identifies the Manager on the event bus.
const eventSource = "session"

// State is a snapshot of the session fields.
type State struct {
	ServerURL string `json:"server_url"`
	Username  string `json:"username"`
	Token     string `json:"-"`
}

// Authenticated reports whether both a token and a server URL are held.
func (s State) Authenticated() bool {
	return s.Token != "" && s.ServerURL != ""
}

// Change is the payload of session events.
type Change struct {
	ServerURL string
	Username  string
	Reason    string // empty for TopicEstablished
}

// Authenticator performs the unauthenticated user.login call.
// *zabbix.Transport satisfies it.
type Authenticator interface {
	Invoke(ctx context.Context, serverURL, method string, params any, auth string) (json.RawMessage, error)
}

// Publisher receives session events. *event.Bus satisfies it.
type Publisher interface {
	Publish(ctx context.Context, e event.Event) error
}

// Compile-time interface guard.
var _ zabbix.Session = (*Manager)(nil)

// Manager holds one session. Login and Logout are the only mutators;
// concurrent writers resolve as last writer wins.
type Manager struct {
	// writeMu orders mutations so storage and memory change together.
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   State
	storage Storage
	auth    Authenticator
	bus     Publisher
	logger  *zap.Logger
}

// NewManager creates a Manager with an empty session. Call Restore to load
// a persisted one. bus may be nil.
func NewManager(storage Storage, auth Authenticator, bus Publisher, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		storage: storage,
		auth:    auth,
		bus:     bus,
		logger:  logger,
	}
}

// Restore loads the persisted session. Missing keys leave the Manager
// unauthenticated, and so does a token that can no longer be unsealed:
// its keys are deleted so a fresh login can replace them.
func (m *Manager) Restore(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	var st State
	var err error
	if st.Token, err = m.storage.Get(ctx, KeyToken); err != nil {
		if !errors.Is(err, ErrUnseal) {
			return fmt.Errorf("restore token: %w", err)
		}
		m.logger.Warn("discarding persisted session that cannot be unsealed", zap.Error(err))
		m.setState(State{})
		if err := m.storage.Delete(ctx, sessionKeys...); err != nil {
			return fmt.Errorf("discard unreadable session: %w", err)
		}
		return nil
	}
	if st.ServerURL, err = m.storage.Get(ctx, KeyServerURL); err != nil {
		return fmt.Errorf("restore server url: %w", err)
	}
	if st.Username, err = m.storage.Get(ctx, KeyUsername); err != nil {
		return fmt.Errorf("restore username: %w", err)
	}

	m.setState(st)

	m.logger.Debug("session restored",
		zap.Bool("authenticated", st.Authenticated()),
		zap.String("server", st.ServerURL),
		zap.String("username", st.Username),
	)
	return nil
}

// Login authenticates against serverURL and, on success, stores the new
// session in memory and in durable storage. On failure nothing changes.
func (m *Manager) Login(ctx context.Context, serverURL, username, password string) (string, error) {
	serverURL = strings.TrimSpace(serverURL)
	username = strings.TrimSpace(username)
	if serverURL == "" || username == "" || password == "" {
		return "", &AuthError{Message: ErrMissingFields.Error(), Err: ErrMissingFields}
	}

	result, err := m.auth.Invoke(ctx, serverURL, "user.login", zabbix.LoginParams{
		User:     username,
		Password: password,
	}, "")
	if err != nil {
		m.logger.Info("login rejected",
			zap.String("server", serverURL),
			zap.String("username", username),
			zap.Error(err),
		)
		return "", &AuthError{Message: loginFailureMessage(err), Err: err}
	}

	var token string
	if err := json.Unmarshal(result, &token); err != nil || token == "" {
		return "", &AuthError{Message: "Login failed", Err: fmt.Errorf("unexpected user.login result %s", result)}
	}

	m.writeMu.Lock()
	err = m.storage.Put(ctx, map[string]string{
		KeyToken:     token,
		KeyServerURL: serverURL,
		KeyUsername:  username,
	})
	if err != nil {
		m.writeMu.Unlock()
		return "", fmt.Errorf("persist session: %w", err)
	}
	m.setState(State{ServerURL: serverURL, Username: username, Token: token})
	m.writeMu.Unlock()

	m.logger.Info("session established",
		zap.String("server", serverURL),
		zap.String("username", username),
	)
	m.publish(ctx, TopicEstablished, Change{ServerURL: serverURL, Username: username})
	return token, nil
}

// Logout clears the session. It never touches the network and is safe to
// call repeatedly. The in-memory session is cleared even when the storage
// delete fails; that failure is returned.
func (m *Manager) Logout(ctx context.Context) error {
	_, err := m.clear(ctx, ReasonLogout, "")
	return err
}

// Invalidate clears the session after the server rejected token. When the
// session already holds a different token (a newer login, or none at all)
// it is left alone.
func (m *Manager) Invalidate(ctx context.Context, token string) {
	if token == "" {
		return
	}
	cleared, err := m.clear(ctx, ReasonExpired, token)
	if err != nil {
		m.logger.Error("failed to clear persisted session", zap.Error(err))
	}
	if !cleared {
		m.logger.Debug("stale token rejected, current session kept")
	}
}

// clear drops the session. A non-empty token limits it to the session
// holding that token; the result reports whether anything was cleared.
func (m *Manager) clear(ctx context.Context, reason, token string) (bool, error) {
	m.writeMu.Lock()
	prev := m.State()
	if token != "" && prev.Token != token {
		m.writeMu.Unlock()
		return false, nil
	}
	m.setState(State{})
	err := m.storage.Delete(ctx, sessionKeys...)
	m.writeMu.Unlock()
	if err != nil {
		err = fmt.Errorf("clear session: %w", err)
	}

	m.logger.Info("session cleared",
		zap.String("reason", reason),
		zap.String("server", prev.ServerURL),
		zap.String("username", prev.Username),
	)
	m.publish(ctx, TopicCleared, Change{ServerURL: prev.ServerURL, Username: prev.Username, Reason: reason})
	return true, err
}

func (m *Manager) setState(st State) {
	m.mu.Lock()
	m.state = st
	m.mu.Unlock()
}

func (m *Manager) publish(ctx context.Context, topic string, c Change) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(ctx, event.Event{Topic: topic, Source: eventSource, Payload: c}); err != nil {
		m.logger.Warn("publish session event", zap.String("topic", topic), zap.Error(err))
	}
}

// IsAuthenticated reports whether a token and a server URL are held.
func (m *Manager) IsAuthenticated() bool {
	return m.State().Authenticated()
}

// State returns a snapshot of the session.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Credentials returns the server URL and token from one snapshot.
func (m *Manager) Credentials() (serverURL, token string) {
	st := m.State()
	return st.ServerURL, st.Token
}

// Token returns the session token, or "" without a session.
func (m *Manager) Token() string { return m.State().Token }

// ServerURL returns the server URL, or "" without a session.
func (m *Manager) ServerURL() string { return m.State().ServerURL }

// Username returns the logged-in user, or "" without a session.
func (m *Manager) Username() string { return m.State().Username }

// loginFailureMessage extracts the server's explanation from a login error.
func loginFailureMessage(err error) string {
	var apiErr *zabbix.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Data != "" {
			return apiErr.Data
		}
		return "Login failed"
	}
	return err.Error()
}
