// Package overview computes the headline numbers shown on the dashboard.
package overview

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/HerbHall/zabbixdash/internal/zabbix"
)

// hostStatusDisabled is host.status for unmonitored hosts.
const hostStatusDisabled = 1

// Source fetches the raw data the summary is built from.
// *zabbix.Client satisfies it.
type Source interface {
	Hosts(ctx context.Context, q zabbix.HostQuery) (json.RawMessage, error)
	Triggers(ctx context.Context, q zabbix.TriggerQuery) (json.RawMessage, error)
}

// Summary is the dashboard header.
type Summary struct {
	TotalHosts          int `json:"total_hosts"`
	DisabledHosts       int `json:"disabled_hosts"`
	AvailabilityPercent int `json:"availability_percent"`
	TriggerCount        int `json:"trigger_count"`
}

// host is the slice of host.get output the summary reads.
type host struct {
	HostID string  `json:"hostid"`
	Status flexInt `json:"status"`
}

// Build fetches hosts and recent triggers and derives the summary.
func Build(ctx context.Context, src Source) (*Summary, error) {
	rawHosts, err := src.Hosts(ctx, zabbix.HostQuery{Output: []string{"hostid", "status"}})
	if err != nil {
		return nil, fmt.Errorf("fetch hosts: %w", err)
	}
	var hosts []host
	if err := json.Unmarshal(rawHosts, &hosts); err != nil {
		return nil, fmt.Errorf("decode hosts: %w", err)
	}

	rawTriggers, err := src.Triggers(ctx, zabbix.TriggerQuery{})
	if err != nil {
		return nil, fmt.Errorf("fetch triggers: %w", err)
	}
	var triggers []json.RawMessage
	if err := json.Unmarshal(rawTriggers, &triggers); err != nil {
		return nil, fmt.Errorf("decode triggers: %w", err)
	}

	s := summarize(hosts)
	s.TriggerCount = len(triggers)
	return &s, nil
}

// summarize counts hosts and computes availability, rounded to a whole percent.
func summarize(hosts []host) Summary {
	s := Summary{TotalHosts: len(hosts)}
	for _, h := range hosts {
		if int(h.Status) == hostStatusDisabled {
			s.DisabledHosts++
		}
	}
	if s.TotalHosts > 0 {
		avail := float64(s.TotalHosts-s.DisabledHosts) / float64(s.TotalHosts) * 100
		s.AvailabilityPercent = int(math.Round(avail))
	}
	return s
}

// flexInt decodes Zabbix integers, which arrive as JSON strings, and also
// accepts plain numbers.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("parse %q: %w", s, err)
		}
		*f = flexInt(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}
