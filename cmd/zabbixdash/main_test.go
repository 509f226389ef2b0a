package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/HerbHall/zabbixdash/internal/zabbix"
)

// newZabbixStub answers user.login with a token and host.get with one host.
// It records the auth value of every request by method.
func newZabbixStub(t *testing.T) (*httptest.Server, func(method string) []string) {
	t.Helper()
	var (
		mu    sync.Mutex
		auths = map[string][]string{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req zabbix.Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		auths[req.Method] = append(auths[req.Method], req.Auth)
		mu.Unlock()

		resp := zabbix.Response{JSONRPC: zabbix.Version, ID: req.ID}
		switch req.Method {
		case "user.login":
			resp.Result = json.RawMessage(`"cli-token"`)
		case "host.get":
			resp.Result = json.RawMessage(`[{"hostid":"10084","name":"Zabbix server","status":"0"}]`)
		case "event.acknowledge":
			// Neither result nor error.
		default:
			resp.Result = json.RawMessage(`[]`)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	return srv, func(method string) []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), auths[method]...)
	}
}

// setupEnv isolates configuration to a temp directory and the stub server.
func setupEnv(t *testing.T, serverURL string) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("ZD_DATABASE_PATH", filepath.Join(dir, "db", "zabbixdash.db"))
	t.Setenv("ZD_ZABBIX_URL", serverURL)
	t.Setenv("ZD_ZABBIX_USERNAME", "Admin")
	t.Setenv("ZD_LOGGING_LEVEL", "error")
	t.Setenv(passwordEnv, "zabbix")
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestCLI_SessionPersistsAcrossCommands(t *testing.T) {
	srv, authsFor := newZabbixStub(t)
	setupEnv(t, srv.URL)

	out, err := runCmd(t, "login")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if strings.Contains(out, "cli-token") {
		t.Error("login output must not print the token")
	}
	if !strings.Contains(out, `"authenticated": true`) {
		t.Errorf("login output = %s", out)
	}

	// A fresh process restores the session from the database.
	out, err = runCmd(t, "hosts", "-search", "Zabbix")
	if err != nil {
		t.Fatalf("hosts: %v", err)
	}
	if !strings.Contains(out, `"hostid": "10084"`) {
		t.Errorf("hosts output = %s", out)
	}
	if got := authsFor("host.get"); len(got) != 1 || got[0] != "cli-token" {
		t.Errorf("host.get auth = %v, want [cli-token]", got)
	}
	if got := authsFor("user.login"); len(got) != 1 || got[0] != "" {
		t.Errorf("user.login auth = %v, want one empty auth", got)
	}

	if _, err := runCmd(t, "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	_, err = runCmd(t, "hosts")
	if !zabbix.IsNotAuthenticated(err) {
		t.Fatalf("hosts after logout: err = %v, want not authenticated", err)
	}
	if got := authsFor("host.get"); len(got) != 1 {
		t.Errorf("host.get requests = %d after logout, want still 1", len(got))
	}
}

func TestCLI_Overview(t *testing.T) {
	srv, _ := newZabbixStub(t)
	setupEnv(t, srv.URL)

	if _, err := runCmd(t, "login"); err != nil {
		t.Fatalf("login: %v", err)
	}
	out, err := runCmd(t, "overview")
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	var sum map[string]int
	if err := json.Unmarshal([]byte(out), &sum); err != nil {
		t.Fatalf("decode overview %q: %v", out, err)
	}
	if sum["total_hosts"] != 1 || sum["availability_percent"] != 100 {
		t.Errorf("overview = %v", sum)
	}
}

func TestCLI_UsageErrors(t *testing.T) {
	srv, _ := newZabbixStub(t)
	setupEnv(t, srv.URL)

	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"reboot"}},
		{"items without host", []string{"items"}},
		{"history without item", []string{"history"}},
		{"history bad type", []string{"history", "-item", "1", "-type", "7"}},
		{"call without method", []string{"call"}},
		{"unknown flag", []string{"hosts", "-nope"}},
		{"ping without host", []string{"ping"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCmd(t, tt.args...); !errors.Is(err, errUsage) {
				t.Errorf("err = %v, want usage error", err)
			}
		})
	}
}

func TestCLI_CallRejectsInvalidParams(t *testing.T) {
	srv, _ := newZabbixStub(t)
	setupEnv(t, srv.URL)

	_, err := runCmd(t, "call", "host.get", "{not json")
	if err == nil || errors.Is(err, errUsage) {
		t.Fatalf("err = %v, want params error", err)
	}
}

func TestCLI_CallWithoutResultPrintsNull(t *testing.T) {
	srv, _ := newZabbixStub(t)
	setupEnv(t, srv.URL)

	if _, err := runCmd(t, "login"); err != nil {
		t.Fatalf("login: %v", err)
	}
	out, err := runCmd(t, "call", "event.acknowledge", `{"eventids":["1"]}`)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if strings.TrimSpace(out) != "null" {
		t.Errorf("output = %q, want null", out)
	}
}

func TestCLI_Version(t *testing.T) {
	out, err := runCmd(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "zabbixdash") {
		t.Errorf("version output = %q", out)
	}
}

func TestStringList(t *testing.T) {
	var s stringList
	_ = s.Set("1")
	_ = s.Set("2")
	if s.String() != "1,2" {
		t.Errorf("String() = %q, want 1,2", s.String())
	}
}

func TestCLI_Token(t *testing.T) {
	srv, _ := newZabbixStub(t)
	setupEnv(t, srv.URL)

	if _, err := runCmd(t, "token", "-subject", "wallboard"); err == nil {
		t.Fatal("expected error without server.api_secret")
	}

	t.Setenv("ZD_SERVER_API_SECRET", strings.Repeat("s", 40))
	out, err := runCmd(t, "token", "-subject", "wallboard", "-ttl", "1h")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if parts := strings.Split(strings.TrimSpace(out), "."); len(parts) != 3 {
		t.Errorf("token = %q, want a three-part JWT", out)
	}

	if _, err := runCmd(t, "token"); !errors.Is(err, errUsage) {
		t.Errorf("token without subject: err = %v, want usage error", err)
	}
}
