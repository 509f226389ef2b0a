package zabbix

import "time"

// Sort orders accepted by *.get methods.
const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

// Default result limits.
const (
	DefaultTriggerLimit = 10
	DefaultProblemLimit = 10
	DefaultHistoryLimit = 100
)

// History value types for HistoryQuery.ValueType.
const (
	HistoryFloat    = 0
	HistoryChar     = 1
	HistoryLog      = 2
	HistoryUnsigned = 3
	HistoryText     = 4
)

var (
	defaultHostOutput       = []string{"hostid", "name", "status", "available"}
	defaultHostGroups       = []string{"name"}
	defaultHostInterfaces   = []string{"ip"}
	defaultHostGroupOutput  = []string{"groupid", "name"}
	defaultTriggerOutput    = []string{"triggerid", "description", "priority", "state", "lastchange"}
	defaultProblemOutput    = []string{"eventid", "severity", "clock"}
	defaultProblemAckFields = []string{"userid", "clock"}
	defaultItemOutput       = []string{"itemid", "name", "key_", "units", "value_type"}
)

// HostQuery selects hosts. Zero value yields the dashboard defaults.
type HostQuery struct {
	Output           []string
	SelectGroups     []string
	SelectInterfaces []string
	HostIDs          []string // optional host filter
	GroupIDs         []string // optional group filter
	Search           string   // optional substring match on name
}

// Params returns the host.get parameters.
func (q HostQuery) Params() map[string]any {
	p := map[string]any{
		"output":           orDefault(q.Output, defaultHostOutput),
		"selectGroups":     orDefault(q.SelectGroups, defaultHostGroups),
		"selectInterfaces": orDefault(q.SelectInterfaces, defaultHostInterfaces),
		"sortfield":        "name",
		"sortorder":        SortAsc,
	}
	if len(q.HostIDs) > 0 {
		p["hostids"] = q.HostIDs
	}
	if len(q.GroupIDs) > 0 {
		p["groupids"] = q.GroupIDs
	}
	if q.Search != "" {
		p["search"] = map[string]any{"name": q.Search}
	}
	return p
}

// HostGroupQuery selects host groups.
type HostGroupQuery struct {
	Output []string
	// RealHosts limits the result to groups that contain hosts.
	RealHosts bool
}

// Params returns the hostgroup.get parameters.
func (q HostGroupQuery) Params() map[string]any {
	p := map[string]any{
		"output": orDefault(q.Output, defaultHostGroupOutput),
	}
	if q.RealHosts {
		p["real_hosts"] = true
	}
	return p
}

// TriggerQuery selects the most recently changed triggers.
type TriggerQuery struct {
	HostIDs     []string
	Output      []string
	SelectHosts []string
	Limit       int // 0 means DefaultTriggerLimit
}

// Params returns the trigger.get parameters.
func (q TriggerQuery) Params() map[string]any {
	p := map[string]any{
		"output":            orDefault(q.Output, defaultTriggerOutput),
		"expandDescription": true,
		"expandData":        true,
		"sortfield":         "lastchange",
		"sortorder":         SortDesc,
		"limit":             orDefaultInt(q.Limit, DefaultTriggerLimit),
	}
	if len(q.HostIDs) > 0 {
		p["hostids"] = q.HostIDs
	}
	if len(q.SelectHosts) > 0 {
		p["selectHosts"] = q.SelectHosts
	}
	return p
}

// ProblemQuery selects recent trigger problems, optionally within a time range.
type ProblemQuery struct {
	TimeFrom time.Time // zero means unbounded
	TimeTill time.Time // zero means unbounded
	Limit    int       // 0 means DefaultProblemLimit
}

// Params returns the problem.get parameters.
func (q ProblemQuery) Params() map[string]any {
	p := map[string]any{
		"output":             defaultProblemOutput,
		"selectAcknowledges": defaultProblemAckFields,
		"selectTags":         "extend",
		"source":             0, // triggers
		"object":             0, // trigger objects
		"sortfield":          []string{"clock"},
		"sortorder":          SortDesc,
		"limit":              orDefaultInt(q.Limit, DefaultProblemLimit),
	}
	if !q.TimeFrom.IsZero() {
		p["time_from"] = q.TimeFrom.Unix()
	}
	if !q.TimeTill.IsZero() {
		p["time_till"] = q.TimeTill.Unix()
	}
	return p
}

// ItemQuery selects items, usually of one host.
type ItemQuery struct {
	HostIDs []string
	Search  string   // substring match on item name
	Keys    []string // exact item keys
}

// Params returns the item.get parameters.
func (q ItemQuery) Params() map[string]any {
	p := map[string]any{
		"output":    defaultItemOutput,
		"sortfield": "name",
		"sortorder": SortAsc,
	}
	if len(q.HostIDs) > 0 {
		p["hostids"] = q.HostIDs
	}
	if q.Search != "" {
		p["search"] = map[string]any{"name": q.Search}
	}
	if len(q.Keys) > 0 {
		p["filter"] = map[string]any{"key_": q.Keys}
	}
	return p
}

// HistoryQuery selects history values of one or more items.
type HistoryQuery struct {
	ItemIDs   []string
	TimeFrom  time.Time
	TimeTill  time.Time
	Limit     int  // 0 means DefaultHistoryLimit
	ValueType *int // one of the History* constants; nil leaves the server default
}

// Params returns the history.get parameters.
func (q HistoryQuery) Params() map[string]any {
	itemIDs := q.ItemIDs
	if itemIDs == nil {
		itemIDs = []string{}
	}
	p := map[string]any{
		"output":    "extend",
		"itemids":   itemIDs,
		"sortfield": "clock",
		"sortorder": SortAsc,
		"limit":     orDefaultInt(q.Limit, DefaultHistoryLimit),
	}
	if !q.TimeFrom.IsZero() {
		p["time_from"] = q.TimeFrom.Unix()
	}
	if !q.TimeTill.IsZero() {
		p["time_till"] = q.TimeTill.Unix()
	}
	if q.ValueType != nil {
		p["history"] = *q.ValueType
	}
	return p
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
