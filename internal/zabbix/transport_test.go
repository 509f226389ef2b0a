package zabbix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// recordedCall is one request seen by the mock server, with the raw body
// kept so tests can check which envelope members were present.
type recordedCall struct {
	Path        string
	ContentType string
	Request     Request
	Raw         map[string]json.RawMessage
}

// newMockZabbix starts a server answering every JSON-RPC call with reply.
func newMockZabbix(t *testing.T, reply func(req Request) Response) (*httptest.Server, *[]recordedCall) {
	t.Helper()
	var calls []recordedCall

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]json.RawMessage
		var body bytes.Buffer
		_, _ = body.ReadFrom(r.Body)
		_ = json.Unmarshal(body.Bytes(), &raw)
		var req Request
		_ = json.Unmarshal(body.Bytes(), &req)

		calls = append(calls, recordedCall{
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Request:     req,
			Raw:         raw,
		})

		resp := reply(req)
		resp.JSONRPC = Version
		resp.ID = req.ID
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func resultOf(t *testing.T, v any) func(Request) Response {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	return func(Request) Response { return Response{Result: data} }
}

func testTransport() *Transport {
	return NewTransport(5*time.Second, nil)
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://z.example", "http://z.example/api_jsonrpc.php"},
		{"http://z.example/", "http://z.example/api_jsonrpc.php"},
		{"http://z.example/zabbix/", "http://z.example/zabbix/api_jsonrpc.php"},
		{"http://z.example/zabbix/api_jsonrpc.php", "http://z.example/zabbix/api_jsonrpc.php"},
		{"  http://z.example  ", "http://z.example/api_jsonrpc.php"},
	}
	for _, tc := range tests {
		if got := Endpoint(tc.in); got != tc.want {
			t.Errorf("Endpoint(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestInvoke_ReturnsResultVerbatim(t *testing.T) {
	payload := []byte(`[{"hostid":"10084","name":"Zabbix server","groups":[{"name":"Linux"}],"status":"0"}]`)
	srv, calls := newMockZabbix(t, func(Request) Response {
		return Response{Result: payload}
	})

	got, err := testTransport().Invoke(context.Background(), srv.URL, "host.get", map[string]any{"output": []string{"hostid"}}, "tok")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("result = %s, want %s", got, payload)
	}

	if len(*calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(*calls))
	}
	c := (*calls)[0]
	if c.Path != EndpointPath {
		t.Errorf("path = %q, want %q", c.Path, EndpointPath)
	}
	if c.ContentType != "application/json" {
		t.Errorf("content type = %q, want application/json", c.ContentType)
	}
	if c.Request.JSONRPC != "2.0" {
		t.Errorf("jsonrpc = %q, want 2.0", c.Request.JSONRPC)
	}
	if c.Request.Method != "host.get" {
		t.Errorf("method = %q, want host.get", c.Request.Method)
	}
	if c.Request.Auth != "tok" {
		t.Errorf("auth = %q, want tok", c.Request.Auth)
	}
}

func TestInvoke_OmitsEmptyAuth(t *testing.T) {
	srv, calls := newMockZabbix(t, resultOf(t, "7.0.0"))

	if _, err := testTransport().Invoke(context.Background(), srv.URL, "apiinfo.version", nil, ""); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	raw := (*calls)[0].Raw
	if _, ok := raw["auth"]; ok {
		t.Error("auth member present, want it omitted")
	}
	if string(raw["params"]) != "{}" {
		t.Errorf("params = %s, want {}", raw["params"])
	}
}

func TestInvoke_IDsIncrease(t *testing.T) {
	srv, calls := newMockZabbix(t, resultOf(t, []string{}))
	tr := testTransport()

	for i := 0; i < 3; i++ {
		if _, err := tr.Invoke(context.Background(), srv.URL, "host.get", nil, "tok"); err != nil {
			t.Fatalf("Invoke #%d: %v", i, err)
		}
	}
	var prev int64
	for i, c := range *calls {
		if c.Request.ID <= prev {
			t.Errorf("call %d id = %d, want > %d", i, c.Request.ID, prev)
		}
		prev = c.Request.ID
	}
}

func TestInvoke_APIError(t *testing.T) {
	srv, _ := newMockZabbix(t, func(Request) Response {
		return Response{Error: &RPCError{Code: -32500, Message: "Application error.", Data: "No permissions."}}
	})

	_, err := testTransport().Invoke(context.Background(), srv.URL, "host.get", nil, "tok")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Code != -32500 {
		t.Errorf("code = %d, want -32500", apiErr.Code)
	}
	if apiErr.Text() != "No permissions." {
		t.Errorf("text = %q, want %q", apiErr.Text(), "No permissions.")
	}
}

func TestInvoke_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := testTransport().Invoke(context.Background(), srv.URL, "host.get", nil, "tok")
	var tErr *TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("err = %v, want *TransportError", err)
	}
	if tErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", tErr.StatusCode, http.StatusBadGateway)
	}
	if tErr.Body != "bad gateway" {
		t.Errorf("body = %q, want %q", tErr.Body, "bad gateway")
	}
}

func TestInvoke_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := testTransport().Invoke(context.Background(), url, "host.get", nil, "tok")
	var tErr *TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("err = %v, want *TransportError", err)
	}
	if tErr.StatusCode != 0 {
		t.Errorf("status = %d, want 0", tErr.StatusCode)
	}
	if tErr.Err == nil {
		t.Error("expected underlying cause")
	}
}

func TestInvoke_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>login page</html>"))
	}))
	t.Cleanup(srv.Close)

	_, err := testTransport().Invoke(context.Background(), srv.URL, "host.get", nil, "tok")
	var tErr *TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("err = %v, want *TransportError", err)
	}
}

func TestInvoke_ContextCanceled(t *testing.T) {
	srv, calls := newMockZabbix(t, resultOf(t, []string{}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testTransport().Invoke(ctx, srv.URL, "host.get", nil, "tok")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(*calls) != 0 {
		t.Errorf("calls = %d, want 0", len(*calls))
	}
}

func TestAPIError_Text(t *testing.T) {
	tests := []struct {
		name string
		err  APIError
		want string
	}{
		{"data wins", APIError{Code: 1, Message: "m", Data: "d"}, "d"},
		{"message fallback", APIError{Code: 1, Message: "m"}, "m"},
		{"code fallback", APIError{Code: -32000}, "API error: -32000"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.err.Text(); got != tc.want {
				t.Errorf("Text() = %q, want %q", got, tc.want)
			}
		})
	}
}
