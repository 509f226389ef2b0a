package server

import (
	"context"

	"github.com/HerbHall/zabbixdash/internal/event"
	"github.com/HerbHall/zabbixdash/internal/session"
	"github.com/prometheus/client_golang/prometheus"
)

var sessionAuthenticated = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "zabbixdash_session_authenticated",
	Help: "1 while a Zabbix session is established, 0 otherwise.",
})

func init() {
	prometheus.MustRegister(sessionAuthenticated)
}

// Subscriber is the part of the event bus the session gauge needs.
// *event.Bus satisfies it.
type Subscriber interface {
	Subscribe(topic string, handler event.Handler) (unsubscribe func())
}

// TrackSession keeps the session gauge in step with session events,
// starting from the given state. The returned func unsubscribes.
func TrackSession(bus Subscriber, authenticated bool) (stop func()) {
	setSessionGauge(authenticated)
	offEstablished := bus.Subscribe(session.TopicEstablished, func(context.Context, event.Event) {
		setSessionGauge(true)
	})
	offCleared := bus.Subscribe(session.TopicCleared, func(context.Context, event.Event) {
		setSessionGauge(false)
	})
	return func() {
		offEstablished()
		offCleared()
	}
}

func setSessionGauge(on bool) {
	if on {
		sessionAuthenticated.Set(1)
		return
	}
	sessionAuthenticated.Set(0)
}
