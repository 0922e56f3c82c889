package server

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/3405029277/roomserver/internal/metrics"
	"github.com/3405029277/roomserver/internal/seat"
)

// RelayActor is the generic message-relay variant: no persisted state,
// no authority, no schema — every frame that parses as JSON is broadcast
// verbatim to every attached socket, including the one that sent it.
type RelayActor struct {
	key string
	log *zap.Logger
	met *metrics.Metrics

	mu      sync.Mutex
	sockets map[*Client]struct{}
}

func NewRelayActor(key string, log *zap.Logger, met *metrics.Metrics) *RelayActor {
	return &RelayActor{key: key, log: log, met: met, sockets: make(map[*Client]struct{})}
}

func (a *RelayActor) Key() string { return a.key }

func (a *RelayActor) OnOpen(c *Client, token string, want seat.Want) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sockets[c] = struct{}{}
	c.Attach("relay", token)
	a.broadcastPresenceLocked()
}

func (a *RelayActor) OnMessage(c *Client, raw []byte) {
	if !json.Valid(raw) {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for other := range a.sockets {
		other.SendRaw(raw)
	}
}

func (a *RelayActor) OnClose(c *Client) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sockets, c)
	a.broadcastPresenceLocked()
}

func (a *RelayActor) broadcastPresenceLocked() {
	a.met.AttachedSockets.WithLabelValues("relay", a.key).Set(float64(len(a.sockets)))
	msg := ServerMessage{Type: "presence", Payload: PresencePayload{N: len(a.sockets)}}
	for c := range a.sockets {
		c.Send(msg)
	}
}
