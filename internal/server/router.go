package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/3405029277/roomserver/internal/seat"
)

// Router maps an inbound upgrade request's (path, game, room) to a room
// actor and hands off the upgraded socket. It is the only external
// collaborator that knows the URL surface.
type Router struct {
	registry *Registry
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewRouter(registry *Registry, log *zap.Logger, readBuf, writeBuf int) *Router {
	return &Router{
		registry: registry,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBuf,
			WriteBufferSize: writeBuf,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ws":
		rt.serveGomoku(w, r)
	case "/relay":
		rt.serveRelay(w, r)
	default:
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func isWebsocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func queryOrDefault(r *http.Request, key, def string) string {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	return v
}

func (rt *Router) serveGomoku(w http.ResponseWriter, r *http.Request) {
	if !isWebsocketUpgrade(r) {
		w.WriteHeader(http.StatusUpgradeRequired)
		return
	}

	roomID := queryOrDefault(r, "room", "default")
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	want := seat.ParseWant(r.URL.Query().Get("want"))

	conn, err := rt.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rt.log.Warn("websocket 升级失败", zap.Error(err))
		return
	}

	actor := rt.registry.GomokuRoom(roomID)
	client := NewClient(conn, actor, rt.log)
	client.Serve(token, want)
}

func (rt *Router) serveRelay(w http.ResponseWriter, r *http.Request) {
	if !isWebsocketUpgrade(r) {
		w.WriteHeader(http.StatusUpgradeRequired)
		return
	}

	roomID := queryOrDefault(r, "room", "default")
	gameTag := queryOrDefault(r, "game", "relay")
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	want := seat.ParseWant(r.URL.Query().Get("want"))

	conn, err := rt.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rt.log.Warn("websocket 升级失败", zap.Error(err))
		return
	}

	var actor RoomActor
	if gameTag == "xq" {
		actor = rt.registry.XiangqiRoom(roomID)
	} else {
		actor = rt.registry.RelayRoom(gameTag, roomID)
	}

	client := NewClient(conn, actor, rt.log)
	client.Serve(token, want)
}
