// Package metrics exposes the process-wide Prometheus collectors room
// actors report into; grounded on the client_golang usage pattern in the
// retrieval pack (counters/gauges registered once, handed to every actor
// instance by reference rather than re-registered per room).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every collector the room actors touch.
type Metrics struct {
	RoomsCreated    *prometheus.CounterVec
	MovesAccepted   *prometheus.CounterVec
	MovesRejected   *prometheus.CounterVec
	SeatsStolen     *prometheus.CounterVec
	GamesFinished   *prometheus.CounterVec
	AttachedSockets *prometheus.GaugeVec
}

// New constructs and registers every collector against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RoomsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomserver",
			Name:      "rooms_created_total",
			Help:      "Rooms lazily created, by kind.",
		}, []string{"kind"}),
		MovesAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomserver",
			Name:      "moves_accepted_total",
			Help:      "Moves accepted by a room actor, by kind.",
		}, []string{"kind"}),
		MovesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomserver",
			Name:      "moves_rejected_total",
			Help:      "Moves rejected by a room actor, by kind and reason.",
		}, []string{"kind", "reason"}),
		SeatsStolen: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomserver",
			Name:      "seats_stolen_total",
			Help:      "Seats reassigned via grace-period reclamation, by kind.",
		}, []string{"kind"}),
		GamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomserver",
			Name:      "games_finished_total",
			Help:      "Games that reached a terminal state, by kind and reason.",
		}, []string{"kind", "reason"}),
		AttachedSockets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "roomserver",
			Name:      "attached_sockets",
			Help:      "Currently attached sockets per room.",
		}, []string{"kind", "room"}),
	}

	reg.MustRegister(
		m.RoomsCreated,
		m.MovesAccepted,
		m.MovesRejected,
		m.SeatsStolen,
		m.GamesFinished,
		m.AttachedSockets,
	)
	return m
}
