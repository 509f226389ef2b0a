// Package reach checks whether the interfaces Zabbix knows for a host
// answer ICMP echo from this machine.
package reach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/HerbHall/zabbixdash/internal/zabbix"
	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
)

// ErrHostNotFound is returned when host.get yields no host for the id.
var ErrHostNotFound = errors.New("host not found")

// HostSource fetches hosts. *zabbix.Client satisfies it.
type HostSource interface {
	Hosts(ctx context.Context, q zabbix.HostQuery) (json.RawMessage, error)
}

// Result is the outcome of pinging one interface address.
type Result struct {
	IP         string  `json:"ip"`
	Sent       int     `json:"sent"`
	Received   int     `json:"received"`
	PacketLoss float64 `json:"packet_loss"`
	AvgRTTMs   float64 `json:"avg_rtt_ms"`
	Error      string  `json:"error,omitempty"`
}

// PingFunc pings ip count times, giving up after timeout.
type PingFunc func(ctx context.Context, ip string, count int, timeout time.Duration) (Result, error)

// Prober pings the interfaces of Zabbix hosts.
type Prober struct {
	source  HostSource
	ping    PingFunc
	count   int
	timeout time.Duration
	logger  *zap.Logger
}

// NewProber creates a Prober. A nil ping uses ICMPPing.
func NewProber(source HostSource, ping PingFunc, count int, timeout time.Duration, logger *zap.Logger) *Prober {
	if ping == nil {
		ping = ICMPPing
	}
	if count <= 0 {
		count = 3
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{source: source, ping: ping, count: count, timeout: timeout, logger: logger}
}

type hostInterfaces struct {
	HostID     string `json:"hostid"`
	Interfaces []struct {
		IP string `json:"ip"`
	} `json:"interfaces"`
}

// ProbeHost pings every distinct interface IP of hostID in turn. A failed
// ping is reported in its Result; only lookup failures return an error.
func (p *Prober) ProbeHost(ctx context.Context, hostID string) ([]Result, error) {
	raw, err := p.source.Hosts(ctx, zabbix.HostQuery{
		Output:           []string{"hostid"},
		SelectInterfaces: []string{"ip"},
		HostIDs:          []string{hostID},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch host %s: %w", hostID, err)
	}
	var hosts []hostInterfaces
	if err := json.Unmarshal(raw, &hosts); err != nil {
		return nil, fmt.Errorf("decode host %s: %w", hostID, err)
	}
	if len(hosts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrHostNotFound, hostID)
	}

	seen := make(map[string]bool)
	results := make([]Result, 0, len(hosts[0].Interfaces))
	for _, iface := range hosts[0].Interfaces {
		if iface.IP == "" || seen[iface.IP] {
			continue
		}
		seen[iface.IP] = true

		res, err := p.ping(ctx, iface.IP, p.count, p.timeout)
		res.IP = iface.IP
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.Debug("ping failed", zap.String("ip", iface.IP), zap.Error(err))
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results, nil
}

// ICMPPing pings ip with pro-bing. It uses unprivileged UDP sockets
// except on Windows, which only supports raw ICMP.
func ICMPPing(ctx context.Context, ip string, count int, timeout time.Duration) (Result, error) {
	pinger, err := probing.NewPinger(ip)
	if err != nil {
		return Result{}, fmt.Errorf("create pinger: %w", err)
	}
	pinger.Count = count
	pinger.Timeout = timeout
	pinger.SetPrivileged(runtime.GOOS == "windows")

	errCh := make(chan error, 1)
	go func() { errCh <- pinger.Run() }()

	select {
	case err := <-errCh:
		if err != nil {
			return Result{}, fmt.Errorf("ping %s: %w", ip, err)
		}
	case <-ctx.Done():
		pinger.Stop()
		<-errCh
		return Result{}, ctx.Err()
	}

	stats := pinger.Statistics()
	return Result{
		IP:         ip,
		Sent:       stats.PacketsSent,
		Received:   stats.PacketsRecv,
		PacketLoss: stats.PacketLoss,
		AvgRTTMs:   float64(stats.AvgRtt.Microseconds()) / 1000.0,
	}, nil
}
