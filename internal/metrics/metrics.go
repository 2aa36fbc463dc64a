package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Drop reasons.
const (
	DropNotMember   = "not_member"
	DropMalformed   = "malformed"
	DropSendFailed  = "send_failed"
	DropRateLimited = "rate_limited"
)

// Join results.
const (
	JoinJoined = "joined"
	JoinFull   = "full"
)

var (
	ParticipantsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roomrelay_participants_connected",
		Help: "The current number of connected participants.",
	})
	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roomrelay_rooms_active",
		Help: "The current number of rooms with at least one member.",
	})
	Joins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomrelay_joins_total",
		Help: "Join requests by result.",
	}, []string{"result"})
	Relayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomrelay_relayed_total",
		Help: "Negotiation messages delivered to the other room member, by event.",
	}, []string{"event"})
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomrelay_notifications_total",
		Help: "Room notifications delivered, by event.",
	}, []string{"event"})
	Dropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomrelay_dropped_total",
		Help: "Inbound or outbound messages dropped, by reason.",
	}, []string{"reason"})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
