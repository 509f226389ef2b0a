package zabbix

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

// normalize round-trips v through JSON into generic values.
func normalize(t *testing.T, v any) any {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestHostQuery_Defaults(t *testing.T) {
	want := map[string]any{
		"output":           []string{"hostid", "name", "status", "available"},
		"selectGroups":     []string{"name"},
		"selectInterfaces": []string{"ip"},
		"sortfield":        "name",
		"sortorder":        "ASC",
	}
	if got := (HostQuery{}).Params(); !reflect.DeepEqual(got, want) {
		t.Errorf("Params() = %v, want %v", got, want)
	}
}

func TestHostQuery_Filters(t *testing.T) {
	p := HostQuery{Output: []string{"status"}, HostIDs: []string{"10084"}, GroupIDs: []string{"2"}, Search: "web"}.Params()
	if !reflect.DeepEqual(p["output"], []string{"status"}) {
		t.Errorf("output = %v, want [status]", p["output"])
	}
	if !reflect.DeepEqual(p["hostids"], []string{"10084"}) {
		t.Errorf("hostids = %v, want [10084]", p["hostids"])
	}
	if !reflect.DeepEqual(p["groupids"], []string{"2"}) {
		t.Errorf("groupids = %v, want [2]", p["groupids"])
	}
	if !reflect.DeepEqual(p["search"], map[string]any{"name": "web"}) {
		t.Errorf("search = %v, want name=web", p["search"])
	}
}

func TestHostGroupQuery(t *testing.T) {
	p := HostGroupQuery{}.Params()
	if _, ok := p["real_hosts"]; ok {
		t.Error("real_hosts present without being requested")
	}
	if p := (HostGroupQuery{RealHosts: true}).Params(); p["real_hosts"] != true {
		t.Errorf("real_hosts = %v, want true", p["real_hosts"])
	}
}

func TestTriggerQuery(t *testing.T) {
	p := TriggerQuery{}.Params()
	if p["limit"] != DefaultTriggerLimit {
		t.Errorf("limit = %v, want %d", p["limit"], DefaultTriggerLimit)
	}
	if p["sortorder"] != SortDesc || p["sortfield"] != "lastchange" {
		t.Errorf("sort = %v %v, want lastchange DESC", p["sortfield"], p["sortorder"])
	}
	if p["expandDescription"] != true || p["expandData"] != true {
		t.Error("expand flags not set")
	}
	if _, ok := p["hostids"]; ok {
		t.Error("hostids present without filter")
	}

	p = TriggerQuery{HostIDs: []string{"10084"}, Limit: 50}.Params()
	if !reflect.DeepEqual(p["hostids"], []string{"10084"}) {
		t.Errorf("hostids = %v, want [10084]", p["hostids"])
	}
	if p["limit"] != 50 {
		t.Errorf("limit = %v, want 50", p["limit"])
	}
}

func TestProblemQuery_TimeRange(t *testing.T) {
	p := ProblemQuery{}.Params()
	for _, k := range []string{"time_from", "time_till"} {
		if _, ok := p[k]; ok {
			t.Errorf("%s present without a time range", k)
		}
	}

	from := time.Unix(1700000000, 0)
	p = ProblemQuery{TimeFrom: from}.Params()
	if p["time_from"] != int64(1700000000) {
		t.Errorf("time_from = %v, want 1700000000", p["time_from"])
	}
	if _, ok := p["time_till"]; ok {
		t.Error("time_till present without being set")
	}
	if p["source"] != 0 || p["object"] != 0 {
		t.Errorf("source/object = %v/%v, want 0/0", p["source"], p["object"])
	}
}

func TestItemQuery_Search(t *testing.T) {
	tests := []struct {
		name       string
		search     string
		wantSearch bool
	}{
		{"empty term", "", false},
		{"non-empty term", "CPU", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := ItemQuery{HostIDs: []string{"10084"}, Search: tc.search}.Params()
			s, ok := p["search"]
			if ok != tc.wantSearch {
				t.Fatalf("search present = %v, want %v", ok, tc.wantSearch)
			}
			if ok && !reflect.DeepEqual(s, map[string]any{"name": tc.search}) {
				t.Errorf("search = %v, want name=%s", s, tc.search)
			}
		})
	}
}

func TestItemQuery_Keys(t *testing.T) {
	p := ItemQuery{Keys: []string{"system.cpu.load"}}.Params()
	want := map[string]any{"key_": []string{"system.cpu.load"}}
	if !reflect.DeepEqual(p["filter"], want) {
		t.Errorf("filter = %v, want %v", p["filter"], want)
	}
	if _, ok := p["hostids"]; ok {
		t.Error("hostids present without filter")
	}
}

func TestHistoryQuery(t *testing.T) {
	vt := HistoryUnsigned
	p := HistoryQuery{
		ItemIDs:   []string{"23296"},
		TimeFrom:  time.Unix(100, 0),
		TimeTill:  time.Unix(200, 0),
		ValueType: &vt,
	}.Params()

	if p["output"] != "extend" {
		t.Errorf("output = %v, want extend", p["output"])
	}
	if !reflect.DeepEqual(p["itemids"], []string{"23296"}) {
		t.Errorf("itemids = %v", p["itemids"])
	}
	if p["time_from"] != int64(100) || p["time_till"] != int64(200) {
		t.Errorf("range = %v..%v, want 100..200", p["time_from"], p["time_till"])
	}
	if p["limit"] != DefaultHistoryLimit {
		t.Errorf("limit = %v, want %d", p["limit"], DefaultHistoryLimit)
	}
	if p["history"] != HistoryUnsigned {
		t.Errorf("history = %v, want %d", p["history"], HistoryUnsigned)
	}

	if _, ok := (HistoryQuery{}).Params()["history"]; ok {
		t.Error("history present without value type")
	}
}
