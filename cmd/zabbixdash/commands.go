package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/HerbHall/zabbixdash/internal/auth"
	"github.com/HerbHall/zabbixdash/internal/config"
	"github.com/HerbHall/zabbixdash/internal/overview"
	"github.com/HerbHall/zabbixdash/internal/reach"
	"github.com/HerbHall/zabbixdash/internal/server"
	"github.com/HerbHall/zabbixdash/internal/version"
	"github.com/HerbHall/zabbixdash/internal/ws"
	"github.com/HerbHall/zabbixdash/internal/zabbix"
	"go.uber.org/zap"
)

// passwordEnv supplies the login password when -password is not given.
const passwordEnv = "ZD_PASSWORD"

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func runServe(ctx context.Context, args []string, _ io.Writer) error {
	fs, common := newFlagSet("serve")
	addr := fs.String("addr", "", "listen address (overrides server.host and server.port)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	a, err := openApp(ctx, common, false)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	stopGauge := server.TrackSession(a.bus, a.sessions.IsAuthenticated())
	defer stopGauge()

	listen := a.cfg.Server.Addr()
	if *addr != "" {
		listen = *addr
	}
	ready := func(ctx context.Context) error {
		if a.db == nil {
			return nil
		}
		return a.db.DB().PingContext(ctx)
	}
	api := server.NewAPI(a.sessions, a.client, a.cfg.Zabbix.URL, logger.Named("api"))
	events := ws.NewHandler(a.bus, a.sessions, a.cfg.Server.WSOrigins, logger.Named("ws"))
	defer events.Close()

	opts := server.Options{
		Addr:           listen,
		RateLimitRPS:   a.cfg.Server.RateLimitRPS,
		RateLimitBurst: a.cfg.Server.RateLimitBurst,
		Ready:          ready,
		DevMode:        a.cfg.Server.DevMode,
	}
	if a.cfg.Server.APISecret != "" {
		tokens, err := auth.NewTokenService([]byte(a.cfg.Server.APISecret), a.cfg.Server.APITokenTTL)
		if err != nil {
			return err
		}
		opts.Auth = auth.Middleware(tokens, logger.Named("auth"))
		logger.Info("api bearer tokens required", zap.String("component", "auth"))
	} else {
		logger.Warn("server.api_secret is not set, the API is open to anyone who can reach it",
			zap.String("component", "auth"),
		)
	}
	srv := server.New(opts, logger.Named("server"), api, events)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	logger.Info("zabbixdash ready",
		zap.String("addr", listen),
		zap.String("version", version.Short()),
		zap.Bool("authenticated", a.sessions.IsAuthenticated()),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}
	logger.Info("zabbixdash stopped")
	return nil
}

func runToken(_ context.Context, args []string, stdout io.Writer) error {
	fs, common := newFlagSet("token")
	subject := fs.String("subject", "", "who the token is for, e.g. wallboard (required)")
	ttl := fs.Duration("ttl", 0, "token lifetime (default server.api_token_ttl)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *subject == "" {
		fmt.Fprintln(fs.Output(), "-subject is required")
		return errUsage
	}

	v, err := config.Load(common.config)
	if err != nil {
		return err
	}
	cfg, err := config.Decode(v)
	if err != nil {
		return err
	}
	if cfg.Server.APISecret == "" {
		return errors.New("server.api_secret is not set")
	}
	tokens, err := auth.NewTokenService([]byte(cfg.Server.APISecret), cfg.Server.APITokenTTL)
	if err != nil {
		return err
	}
	token, err := tokens.Issue(*subject, *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}

func runLogin(ctx context.Context, args []string, stdout io.Writer) error {
	fs, common := newFlagSet("login")
	serverURL := fs.String("server", "", "Zabbix server URL (default zabbix.url)")
	username := fs.String("user", "", "user name (default zabbix.username)")
	password := fs.String("password", "", "password (default $"+passwordEnv+")")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	a, err := openApp(ctx, common, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if *serverURL == "" {
		*serverURL = a.cfg.Zabbix.URL
	}
	if *username == "" {
		*username = a.cfg.Zabbix.Username
	}
	if *password == "" {
		*password = os.Getenv(passwordEnv)
	}

	if _, err := a.sessions.Login(ctx, *serverURL, *username, *password); err != nil {
		return err
	}
	return writeJSON(stdout, statusOf(a, ""))
}

func runLogout(ctx context.Context, args []string, stdout io.Writer) error {
	fs, common := newFlagSet("logout")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	a, err := openApp(ctx, common, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.sessions.Logout(ctx); err != nil {
		return err
	}
	return writeJSON(stdout, statusOf(a, ""))
}

func runStatus(ctx context.Context, args []string, stdout io.Writer) error {
	fs, common := newFlagSet("status")
	probe := fs.Bool("probe", false, "query apiinfo.version on the server")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	a, err := openApp(ctx, common, true)
	if err != nil {
		return err
	}
	defer a.Close()

	var apiVersion string
	if *probe && a.sessions.IsAuthenticated() {
		if apiVersion, err = a.client.APIVersion(ctx); err != nil {
			return err
		}
	}
	return writeJSON(stdout, statusOf(a, apiVersion))
}

func statusOf(a *app, apiVersion string) server.SessionResponse {
	st := a.sessions.State()
	return server.SessionResponse{
		Authenticated: st.Authenticated(),
		ServerURL:     st.ServerURL,
		Username:      st.Username,
		APIVersion:    apiVersion,
	}
}

func runHosts(ctx context.Context, args []string, stdout io.Writer) error {
	fs, common := newFlagSet("hosts")
	search := fs.String("search", "", "match host names containing this term")
	var groups stringList
	fs.Var(&groups, "group", "restrict to a host group id (repeatable)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return query(ctx, common, stdout, func(ctx context.Context, c *zabbix.Client) (json.RawMessage, error) {
		return c.Hosts(ctx, zabbix.HostQuery{GroupIDs: groups, Search: *search})
	})
}

func runGroups(ctx context.Context, args []string, stdout io.Writer) error {
	fs, common := newFlagSet("groups")
	realHosts := fs.Bool("real-hosts", false, "only groups that contain hosts")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return query(ctx, common, stdout, func(ctx context.Context, c *zabbix.Client) (json.RawMessage, error) {
		return c.HostGroups(ctx, zabbix.HostGroupQuery{RealHosts: *realHosts})
	})
}

func runTriggers(ctx context.Context, args []string, stdout io.Writer) error {
	fs, common := newFlagSet("triggers")
	limit := fs.Int("limit", zabbix.DefaultTriggerLimit, "maximum number of triggers")
	var hosts stringList
	fs.Var(&hosts, "host", "restrict to a host id (repeatable)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return query(ctx, common, stdout, func(ctx context.Context, c *zabbix.Client) (json.RawMessage, error) {
		return c.Triggers(ctx, zabbix.TriggerQuery{HostIDs: hosts, Limit: *limit})
	})
}

func runProblems(ctx context.Context, args []string, stdout io.Writer) error {
	fs, common := newFlagSet("problems")
	since := fs.Duration("since", 0, "only problems newer than this, e.g. 24h")
	limit := fs.Int("limit", zabbix.DefaultProblemLimit, "maximum number of problems")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	q := zabbix.ProblemQuery{Limit: *limit}
	if *since > 0 {
		q.TimeFrom = time.Now().Add(-*since)
	}
	return query(ctx, common, stdout, func(ctx context.Context, c *zabbix.Client) (json.RawMessage, error) {
		return c.Problems(ctx, q)
	})
}

func runItems(ctx context.Context, args []string, stdout io.Writer) error {
	fs, common := newFlagSet("items")
	host := fs.String("host", "", "host id (required)")
	search := fs.String("search", "", "match item names containing this term")
	var keys stringList
	fs.Var(&keys, "key", "exact item key (repeatable)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *host == "" {
		fmt.Fprintln(fs.Output(), "-host is required")
		return errUsage
	}
	return query(ctx, common, stdout, func(ctx context.Context, c *zabbix.Client) (json.RawMessage, error) {
		return c.Items(ctx, zabbix.ItemQuery{HostIDs: []string{*host}, Search: *search, Keys: keys})
	})
}

func runHistory(ctx context.Context, args []string, stdout io.Writer) error {
	fs, common := newFlagSet("history")
	since := fs.Duration("since", time.Hour, "time range ending now")
	limit := fs.Int("limit", zabbix.DefaultHistoryLimit, "maximum number of points")
	valueType := fs.Int("type", -1, "history value type 0-4 (server default when unset)")
	var itemIDs stringList
	fs.Var(&itemIDs, "item", "item id (repeatable, required)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if len(itemIDs) == 0 {
		fmt.Fprintln(fs.Output(), "-item is required")
		return errUsage
	}

	q := zabbix.HistoryQuery{ItemIDs: itemIDs, Limit: *limit}
	if *since > 0 {
		q.TimeFrom = time.Now().Add(-*since)
	}
	if *valueType >= 0 {
		if *valueType > zabbix.HistoryText {
			fmt.Fprintln(fs.Output(), "-type must be between 0 and 4")
			return errUsage
		}
		q.ValueType = valueType
	}
	return query(ctx, common, stdout, func(ctx context.Context, c *zabbix.Client) (json.RawMessage, error) {
		return c.History(ctx, q)
	})
}

func runCall(ctx context.Context, args []string, stdout io.Writer) error {
	fs, common := newFlagSet("call")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: zabbixdash call [flags] <method> [params-json]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fs.Usage()
		return errUsage
	}

	method := fs.Arg(0)
	var params any
	if fs.NArg() == 2 {
		raw := json.RawMessage(fs.Arg(1))
		if !json.Valid(raw) {
			return errors.New("params must be valid JSON")
		}
		params = raw
	}
	return query(ctx, common, stdout, func(ctx context.Context, c *zabbix.Client) (json.RawMessage, error) {
		return c.Call(ctx, method, params)
	})
}

func runPing(ctx context.Context, args []string, stdout io.Writer) error {
	fs, common := newFlagSet("ping")
	host := fs.String("host", "", "host id (required)")
	count := fs.Int("count", 3, "echo requests per interface")
	timeout := fs.Duration("timeout", 5*time.Second, "time limit per interface")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *host == "" {
		fmt.Fprintln(fs.Output(), "-host is required")
		return errUsage
	}

	a, err := openApp(ctx, common, true)
	if err != nil {
		return err
	}
	defer a.Close()

	prober := reach.NewProber(a.client, nil, *count, *timeout, a.logger.Named("reach"))
	results, err := prober.ProbeHost(ctx, *host)
	if err != nil {
		return err
	}
	return writeJSON(stdout, results)
}

func runOverview(ctx context.Context, args []string, stdout io.Writer) error {
	fs, common := newFlagSet("overview")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	a, err := openApp(ctx, common, true)
	if err != nil {
		return err
	}
	defer a.Close()

	sum, err := overview.Build(ctx, a.client)
	if err != nil {
		return err
	}
	return writeJSON(stdout, sum)
}

// query opens the app, runs fn against the client and prints the result.
func query(ctx context.Context, common *commonFlags, stdout io.Writer, fn func(context.Context, *zabbix.Client) (json.RawMessage, error)) error {
	a, err := openApp(ctx, common, true)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := fn(ctx, a.client)
	if err != nil {
		if zabbix.IsSessionExpired(err) || zabbix.IsNotAuthenticated(err) {
			return fmt.Errorf("%w (run 'zabbixdash login')", err)
		}
		return err
	}

	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, result, "", "  "); err != nil {
		return fmt.Errorf("format result: %w", err)
	}
	buf.WriteByte('\n')
	_, err = buf.WriteTo(stdout)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
