package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/HerbHall/zabbixdash/internal/overview"
	"github.com/HerbHall/zabbixdash/internal/session"
	"github.com/HerbHall/zabbixdash/internal/zabbix"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies for session and rpc endpoints.
const maxBodyBytes = 1 << 20

// SessionService is the part of the session manager the API needs.
// *session.Manager satisfies it.
type SessionService interface {
	Login(ctx context.Context, serverURL, username, password string) (string, error)
	Logout(ctx context.Context) error
	State() session.State
}

// DataSource issues Zabbix calls on behalf of the session.
// *zabbix.Client satisfies it.
type DataSource interface {
	overview.Source
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
	APIVersion(ctx context.Context) (string, error)
	HostGroups(ctx context.Context, q zabbix.HostGroupQuery) (json.RawMessage, error)
	Problems(ctx context.Context, q zabbix.ProblemQuery) (json.RawMessage, error)
	Items(ctx context.Context, q zabbix.ItemQuery) (json.RawMessage, error)
	History(ctx context.Context, q zabbix.HistoryQuery) (json.RawMessage, error)
}

// API serves the /api/v1 session and data endpoints.
type API struct {
	sessions      SessionService
	data          DataSource
	defaultServer string
	logger        *zap.Logger
}

// NewAPI creates the API handler. defaultServer is used when a login
// request omits server_url.
func NewAPI(sessions SessionService, data DataSource, defaultServer string, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		sessions:      sessions,
		data:          data,
		defaultServer: defaultServer,
		logger:        logger,
	}
}

// RegisterRoutes implements RouteRegistrar.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/session", a.handleSessionGet)
	mux.HandleFunc("POST /api/v1/session", a.handleLogin)
	mux.HandleFunc("DELETE /api/v1/session", a.handleLogout)

	mux.HandleFunc("GET /api/v1/hosts", a.handleHosts)
	mux.HandleFunc("GET /api/v1/hosts/{hostid}/items", a.handleItems)
	mux.HandleFunc("GET /api/v1/hostgroups", a.handleHostGroups)
	mux.HandleFunc("GET /api/v1/triggers", a.handleTriggers)
	mux.HandleFunc("GET /api/v1/problems", a.handleProblems)
	mux.HandleFunc("GET /api/v1/history", a.handleHistory)
	mux.HandleFunc("GET /api/v1/overview", a.handleOverview)
	mux.HandleFunc("POST /api/v1/rpc", a.handleRPC)
}

// SessionResponse describes the current session. The token is never exposed.
type SessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	ServerURL     string `json:"server_url,omitempty"`
	Username      string `json:"username,omitempty"`
	APIVersion    string `json:"api_version,omitempty"`
}

// LoginRequest is the body of POST /api/v1/session.
type LoginRequest struct {
	ServerURL string `json:"server_url"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// ResultResponse wraps a Zabbix result passed through unchanged.
type ResultResponse struct {
	Result json.RawMessage `json:"result"`
}

// RPCRequest is the body of POST /api/v1/rpc.
type RPCRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

func sessionResponse(st session.State) SessionResponse {
	return SessionResponse{
		Authenticated: st.Authenticated(),
		ServerURL:     st.ServerURL,
		Username:      st.Username,
	}
}

// handleSessionGet reports the current session.
//
//	@Summary		Get session
//	@Description	Returns the current session without its token. With probe=true the server's API version is queried as well.
//	@Tags			session
//	@Produce		json
//	@Param			probe	query		bool	false	"Query apiinfo.version"
//	@Success		200		{object}	SessionResponse
//	@Failure		502		{object}	Problem
//	@Router			/session [get]
func (a *API) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	resp := sessionResponse(a.sessions.State())
	if resp.Authenticated && r.URL.Query().Get("probe") == "true" {
		v, err := a.data.APIVersion(r.Context())
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		resp.APIVersion = v
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLogin logs in and persists the session.
//
//	@Summary		Log in
//	@Description	Logs in to a Zabbix server with user.login and persists the session.
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest	true	"Credentials; server_url defaults to zabbix.url"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	Problem	"Missing fields or malformed body"
//	@Failure		401		{object}	Problem	"Login rejected"
//	@Router			/session [post]
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	serverURL := req.ServerURL
	if strings.TrimSpace(serverURL) == "" {
		serverURL = a.defaultServer
	}

	if _, err := a.sessions.Login(r.Context(), serverURL, req.Username, req.Password); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(a.sessions.State()))
}

// handleLogout clears the session. It never contacts Zabbix.
//
//	@Summary	Log out
//	@Tags		session
//	@Success	204
//	@Failure	500	{object}	Problem
//	@Router		/session [delete]
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Logout(r.Context()); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

//	@Summary		List hosts
//	@Description	Runs host.get sorted by name.
//	@Tags			data
//	@Produce		json
//	@Param			search	query		string		false	"Match host names containing this term"
//	@Param			groupid	query		[]string	false	"Restrict to host group ids"	collectionFormat(multi)
//	@Success		200		{object}	ResultResponse
//	@Failure		401		{object}	Problem
//	@Failure		502		{object}	Problem
//	@Router			/hosts [get]
func (a *API) handleHosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	a.respond(w, r, func(ctx context.Context) (json.RawMessage, error) {
		return a.data.Hosts(ctx, zabbix.HostQuery{
			GroupIDs: q["groupid"],
			Search:   q.Get("search"),
		})
	})
}

//	@Summary	List host groups
//	@Tags		data
//	@Produce	json
//	@Param		real_hosts	query		bool	false	"Only groups that contain hosts"
//	@Success	200			{object}	ResultResponse
//	@Failure	401			{object}	Problem
//	@Failure	502			{object}	Problem
//	@Router		/hostgroups [get]
func (a *API) handleHostGroups(w http.ResponseWriter, r *http.Request) {
	realHosts := r.URL.Query().Get("real_hosts") == "true"
	a.respond(w, r, func(ctx context.Context) (json.RawMessage, error) {
		return a.data.HostGroups(ctx, zabbix.HostGroupQuery{RealHosts: realHosts})
	})
}

//	@Summary		List recent triggers
//	@Description	Runs trigger.get, newest change first.
//	@Tags			data
//	@Produce		json
//	@Param			hostid	query		[]string	false	"Restrict to host ids"	collectionFormat(multi)
//	@Param			limit	query		int			false	"Maximum number of triggers (default 10)"
//	@Success		200		{object}	ResultResponse
//	@Failure		400		{object}	Problem
//	@Failure		401		{object}	Problem
//	@Failure		502		{object}	Problem
//	@Router			/triggers [get]
func (a *API) handleTriggers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	a.respond(w, r, func(ctx context.Context) (json.RawMessage, error) {
		return a.data.Triggers(ctx, zabbix.TriggerQuery{
			HostIDs: q["hostid"],
			Limit:   limit,
		})
	})
}

//	@Summary		List problems
//	@Description	Runs problem.get, newest first.
//	@Tags			data
//	@Produce		json
//	@Param			from	query		string	false	"Lower bound, unix seconds or RFC 3339"
//	@Param			till	query		string	false	"Upper bound, unix seconds or RFC 3339"
//	@Param			limit	query		int		false	"Maximum number of problems (default 10)"
//	@Success		200		{object}	ResultResponse
//	@Failure		400		{object}	Problem
//	@Failure		401		{object}	Problem
//	@Failure		502		{object}	Problem
//	@Router			/problems [get]
func (a *API) handleProblems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, till, err := parseRange(q.Get("from"), q.Get("till"))
	if err != nil {
		BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	a.respond(w, r, func(ctx context.Context) (json.RawMessage, error) {
		return a.data.Problems(ctx, zabbix.ProblemQuery{
			TimeFrom: from,
			TimeTill: till,
			Limit:    limit,
		})
	})
}

//	@Summary	List items of a host
//	@Tags		data
//	@Produce	json
//	@Param		hostid	path		string		true	"Host id"
//	@Param		search	query		string		false	"Match item names containing this term"
//	@Param		key		query		[]string	false	"Exact item keys"	collectionFormat(multi)
//	@Success	200		{object}	ResultResponse
//	@Failure	401		{object}	Problem
//	@Failure	502		{object}	Problem
//	@Router		/hosts/{hostid}/items [get]
func (a *API) handleItems(w http.ResponseWriter, r *http.Request) {
	hostID := r.PathValue("hostid")
	q := r.URL.Query()
	a.respond(w, r, func(ctx context.Context) (json.RawMessage, error) {
		return a.data.Items(ctx, zabbix.ItemQuery{
			HostIDs: []string{hostID},
			Search:  q.Get("search"),
			Keys:    q["key"],
		})
	})
}

//	@Summary		Item history
//	@Description	Runs history.get, oldest first.
//	@Tags			data
//	@Produce		json
//	@Param			itemid	query		[]string	true	"Item ids"	collectionFormat(multi)
//	@Param			from	query		string		false	"Lower bound, unix seconds or RFC 3339"
//	@Param			till	query		string		false	"Upper bound, unix seconds or RFC 3339"
//	@Param			limit	query		int			false	"Maximum number of points (default 100)"
//	@Param			type	query		int			false	"History value type 0-4"
//	@Success		200		{object}	ResultResponse
//	@Failure		400		{object}	Problem
//	@Failure		401		{object}	Problem
//	@Failure		502		{object}	Problem
//	@Router			/history [get]
func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	itemIDs := q["itemid"]
	if len(itemIDs) == 0 {
		BadRequest(w, "itemid is required", r.URL.Path)
		return
	}
	from, till, err := parseRange(q.Get("from"), q.Get("till"))
	if err != nil {
		BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	var valueType *int
	if raw := q.Get("type"); raw != "" {
		t, err := strconv.Atoi(raw)
		if err != nil || t < zabbix.HistoryFloat || t > zabbix.HistoryText {
			BadRequest(w, "type must be between 0 and 4", r.URL.Path)
			return
		}
		valueType = &t
	}
	a.respond(w, r, func(ctx context.Context) (json.RawMessage, error) {
		return a.data.History(ctx, zabbix.HistoryQuery{
			ItemIDs:   itemIDs,
			TimeFrom:  from,
			TimeTill:  till,
			Limit:     limit,
			ValueType: valueType,
		})
	})
}

//	@Summary		Dashboard overview
//	@Description	Counts hosts, disabled hosts and recent triggers.
//	@Tags			data
//	@Produce		json
//	@Success		200	{object}	overview.Summary
//	@Failure		401	{object}	Problem
//	@Failure		502	{object}	Problem
//	@Router			/overview [get]
func (a *API) handleOverview(w http.ResponseWriter, r *http.Request) {
	sum, err := overview.Build(r.Context(), a.data)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleRPC forwards an arbitrary method with the session token attached.
//
//	@Summary		Raw API call
//	@Description	Forwards any API method with the session token attached. user.login and user.logout are refused.
//	@Tags			data
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RPCRequest	true	"Method and params"
//	@Success		200		{object}	ResultResponse
//	@Failure		400		{object}	Problem
//	@Failure		401		{object}	Problem
//	@Failure		502		{object}	Problem
//	@Router			/rpc [post]
func (a *API) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req RPCRequest
	if err := decodeBody(w, r, &req); err != nil {
		BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	method := strings.TrimSpace(req.Method)
	switch method {
	case "":
		BadRequest(w, "method is required", r.URL.Path)
		return
	case "user.login", "user.logout":
		BadRequest(w, "use /api/v1/session to log in or out", r.URL.Path)
		return
	}

	var params any
	if len(req.Params) > 0 {
		params = req.Params
	}
	a.respond(w, r, func(ctx context.Context) (json.RawMessage, error) {
		return a.data.Call(ctx, method, params)
	})
}

// respond runs fn and writes its raw result as {"result": ...}.
func (a *API) respond(w http.ResponseWriter, r *http.Request, fn func(context.Context) (json.RawMessage, error)) {
	result, err := fn(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	writeJSON(w, http.StatusOK, ResultResponse{Result: result})
}

// writeError maps client and session errors to problem responses.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		authErr      *session.AuthError
		apiErr       *zabbix.APIError
		transportErr *zabbix.TransportError
	)

	switch {
	case errors.Is(err, session.ErrMissingFields):
		BadRequest(w, session.ErrMissingFields.Error(), r.URL.Path)
	case errors.As(err, &authErr):
		Unauthorized(w, authErr.Message, r.URL.Path)
	case errors.Is(err, zabbix.ErrSessionExpired):
		Unauthorized(w, "session expired, please log in again", r.URL.Path)
	case errors.Is(err, zabbix.ErrNotAuthenticated):
		Unauthorized(w, "not authenticated", r.URL.Path)
	case errors.As(err, &apiErr):
		BadGateway(w, apiErr.Text(), r.URL.Path, apiErr.Code)
	case errors.As(err, &transportErr):
		a.logger.Warn("zabbix unreachable",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		BadGateway(w, "zabbix server unreachable", r.URL.Path, 0)
	default:
		a.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
		InternalError(w, "an unexpected error occurred", r.URL.Path)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return n, nil
}

// parseRange accepts unix seconds or RFC 3339 for each bound.
func parseRange(from, till string) (time.Time, time.Time, error) {
	f, err := parseTime(from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("from: %w", err)
	}
	t, err := parseTime(till)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("till: %w", err)
	}
	if !f.IsZero() && !t.IsZero() && t.Before(f) {
		return time.Time{}, time.Time{}, errors.New("till is before from")
	}
	return f, t, nil
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New("expected unix seconds or RFC 3339")
	}
	return t, nil
}
