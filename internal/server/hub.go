package server

import (
	"sync"

	"go.uber.org/zap"

	"github.com/3405029277/roomserver/internal/logging"
	"github.com/3405029277/roomserver/internal/metrics"
	"github.com/3405029277/roomserver/internal/server/store"
)

// Registry is the process-wide map from routing key to room actor: each
// (kind, roomID) identity resolves to exactly one actor for the life of
// the process. Actors are created lazily and never evicted by the core;
// it is the only collaborator besides the actors themselves that touches
// the actor map.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]RoomActor

	store store.RoomStore
	log   *zap.Logger
	met   *metrics.Metrics
}

func NewRegistry(st store.RoomStore, log *zap.Logger, met *metrics.Metrics) *Registry {
	return &Registry{rooms: make(map[string]RoomActor), store: st, log: log, met: met}
}

// GomokuRoom returns the Gomoku actor for roomID, creating it on first use.
func (reg *Registry) GomokuRoom(roomID string) *GomokuActor {
	key := "gomoku:" + roomID
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if existing, ok := reg.rooms[key]; ok {
		return existing.(*GomokuActor)
	}
	actor := NewGomokuActor(key, roomID, reg.store, logging.RoomLogger(reg.log, "gomoku", roomID), reg.met)
	reg.rooms[key] = actor
	return actor
}

// XiangqiRoom returns the Xiangqi actor for roomID, creating it on first use.
func (reg *Registry) XiangqiRoom(roomID string) *XiangqiActor {
	key := "xiangqi:" + roomID
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if existing, ok := reg.rooms[key]; ok {
		return existing.(*XiangqiActor)
	}
	actor := NewXiangqiActor(key, roomID, reg.store, logging.RoomLogger(reg.log, "xiangqi", roomID), reg.met)
	reg.rooms[key] = actor
	return actor
}

// RelayRoom returns the Relay actor for the given game tag and roomID.
func (reg *Registry) RelayRoom(gameTag, roomID string) *RelayActor {
	key := "relay:" + gameTag + ":" + roomID
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if existing, ok := reg.rooms[key]; ok {
		return existing.(*RelayActor)
	}
	actor := NewRelayActor(key, logging.RoomLogger(reg.log, "relay:"+gameTag, roomID), reg.met)
	reg.rooms[key] = actor
	return actor
}
