package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/3405029277/roomserver/internal/metrics"
	"github.com/3405029277/roomserver/internal/roomstate"
	"github.com/3405029277/roomserver/internal/seat"
	"github.com/3405029277/roomserver/internal/server/store"
)

const (
	gomokuBoardSize = 19
	gomokuStoreKind = "gm_room"
)

// GomokuActor is the Gomoku variant of the room actor. One instance owns
// exactly one room record and serializes open/message/close against it
// through mu.
type GomokuActor struct {
	key    string
	roomID string
	store  store.RoomStore
	log    *zap.Logger
	met    *metrics.Metrics

	mu      sync.Mutex
	record  *roomstate.GomokuRoom
	sockets map[*Client]struct{}
}

func NewGomokuActor(key, roomID string, st store.RoomStore, log *zap.Logger, met *metrics.Metrics) *GomokuActor {
	a := &GomokuActor{
		key:     key,
		roomID:  roomID,
		store:   st,
		log:     log,
		met:     met,
		sockets: make(map[*Client]struct{}),
	}
	a.loadLocked()
	return a
}

func (a *GomokuActor) Key() string { return a.key }

func (a *GomokuActor) loadLocked() {
	record := roomstate.NewGomokuRoom()
	found, err := a.store.LoadRoom(context.Background(), gomokuStoreKind, a.roomID, record)
	if err != nil {
		a.log.Error("读取五子棋房间记录失败，使用默认房间", zap.String("room", a.roomID), zap.Error(err))
		record = roomstate.NewGomokuRoom()
	}
	if !found {
		a.met.RoomsCreated.WithLabelValues("gomoku").Inc()
	}
	record.Normalize()
	a.record = record
}

func (a *GomokuActor) persistLocked() {
	if err := a.store.SaveRoom(context.Background(), gomokuStoreKind, a.roomID, a.record); err != nil {
		a.log.Error("保存五子棋房间记录失败", zap.String("room", a.roomID), zap.Error(err))
	}
}

func (a *GomokuActor) onlineCountsLocked() seat.OnlineCounts {
	var counts seat.OnlineCounts
	for c := range a.sockets {
		switch {
		case c.Token() != "" && c.Token() == a.record.TokenA:
			counts.A++
		case c.Token() != "" && c.Token() == a.record.TokenB:
			counts.B++
		}
	}
	return counts
}

// OnOpen runs the admission sequence: register the socket, allocate or
// reclaim a seat, evict any stale duplicate, persist, then sync state.
func (a *GomokuActor) OnOpen(c *Client, token string, want seat.Want) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.sockets[c] = struct{}{}

	priorA, priorB := a.record.TokenA, a.record.TokenB
	res := seat.Allocate(seat.Request{
		Token:  token,
		Want:   want,
		Online: a.onlineCountsLocked(),
		Now:    time.Now(),
	}, a.record)

	if res.Minted {
		if (res.Role == roomstate.SeatA && priorA != "") || (res.Role == roomstate.SeatB && priorB != "") {
			a.met.SeatsStolen.WithLabelValues("gomoku").Inc()
		}
	}

	if res.Role != roomstate.Spectator {
		a.evictDuplicateLocked(res.Token, c)
	}

	a.persistLocked()

	c.Attach("gomoku", res.Token)

	a.sendInitLocked(c, res.Role, res.Token)
	a.broadcastPresenceLocked()
	a.broadcastSeatsLocked()
}

// evictDuplicateLocked forcibly closes every other socket currently
// attached with token, guaranteeing at most one live connection per
// token. Admission, record update and eviction run in that order so the
// evicted socket's own close handler observes a record that already
// reflects the new connection.
func (a *GomokuActor) evictDuplicateLocked(token string, except *Client) {
	if token == "" {
		return
	}
	for other := range a.sockets {
		if other == except || other.Token() != token {
			continue
		}
		delete(a.sockets, other)
		go other.ForceClose(1000, "reconnect")
	}
}

func (a *GomokuActor) OnMessage(c *Client, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	role := a.record.RoleFromToken(c.Token())

	switch msg.Type {
	case "move":
		var payload MovePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return
		}
		a.handleMoveLocked(c, role, payload)
	case "timeout":
		a.handleTimeoutLocked(c, role)
	case "rematch":
		a.handleRematchLocked(c, role)
	case "swap":
		a.handleSwapLocked(c, role)
	case "gm_leave":
		a.handleLeaveLocked(c, role)
	}
}

func (a *GomokuActor) handleMoveLocked(c *Client, role roomstate.Role, payload MovePayload) {
	if role != roomstate.SeatA && role != roomstate.SeatB {
		a.rejectMoveLocked(c, "观战不能落子")
		return
	}
	if a.record.GameOver {
		a.rejectMoveLocked(c, "对局已结束")
		return
	}
	if a.record.Current != role {
		a.rejectMoveLocked(c, "不是你的回合")
		return
	}
	if payload.R < 0 || payload.R >= gomokuBoardSize || payload.C < 0 || payload.C >= gomokuBoardSize {
		a.rejectMoveLocked(c, "坐标超出棋盘")
		return
	}
	for _, m := range a.record.Moves {
		if m.R == payload.R && m.C == payload.C {
			a.rejectMoveLocked(c, "该位置已有棋子")
			return
		}
	}

	a.record.Moves = append(a.record.Moves, roomstate.GomokuMove{R: payload.R, C: payload.C, P: role})
	a.record.TouchSeat(role, time.Now().UnixMilli())
	a.record.ClearVotes()
	a.met.MovesAccepted.WithLabelValues("gomoku").Inc()

	broadcast := GomokuMoveBroadcast{R: payload.R, C: payload.C, P: int(role)}
	if a.fiveInARowLocked(payload.R, payload.C, role) {
		a.record.GameOver = true
		a.record.Winner = role
		a.record.Reason = "五连"
		a.met.GamesFinished.WithLabelValues("gomoku", "五连").Inc()
		broadcast.Win = int(role)
		broadcast.Reason = "五连"
	} else {
		a.record.Current = opponentOf(role)
		broadcast.Next = int(a.record.Current)
	}

	a.persistLocked()
	a.broadcastLocked(ServerMessage{Type: "move", Payload: broadcast})
}

func (a *GomokuActor) rejectMoveLocked(c *Client, reason string) {
	a.met.MovesRejected.WithLabelValues("gomoku", reason).Inc()
	a.sendLocked(c, reject(reason, false))
}

// fiveInARowLocked checks all 4 directions through (r,c) for 5 consecutive
// stones of role, counting both ways from the just-placed stone.
func (a *GomokuActor) fiveInARowLocked(r, c int, role roomstate.Role) bool {
	occupied := make(map[[2]int]roomstate.Role, len(a.record.Moves))
	for _, m := range a.record.Moves {
		occupied[[2]int{m.R, m.C}] = m.P
	}
	directions := [][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}
	for _, d := range directions {
		count := 1
		for _, sign := range []int{1, -1} {
			rr, cc := r+d[0]*sign, c+d[1]*sign
			for occupied[[2]int{rr, cc}] == role {
				count++
				rr += d[0] * sign
				cc += d[1] * sign
			}
		}
		if count >= 5 {
			return true
		}
	}
	return false
}

func (a *GomokuActor) handleTimeoutLocked(c *Client, role roomstate.Role) {
	if role != roomstate.SeatA && role != roomstate.SeatB {
		a.sendLocked(c, reject("观战不能判负", false))
		return
	}
	if a.record.GameOver {
		a.sendLocked(c, reject("对局已结束", false))
		return
	}

	winner := opponentOf(a.record.Current)
	a.record.GameOver = true
	a.record.Winner = winner
	a.record.Reason = "超时判负"
	a.record.ClearVotes()
	a.met.GamesFinished.WithLabelValues("gomoku", "超时判负").Inc()
	a.persistLocked()

	a.broadcastLocked(ServerMessage{Type: "move", Payload: GomokuMoveBroadcast{
		R: -1, C: -1, Win: int(winner), Reason: "超时判负",
	}})
}

func (a *GomokuActor) handleRematchLocked(c *Client, role roomstate.Role) {
	if role != roomstate.SeatA && role != roomstate.SeatB {
		a.sendLocked(c, reject("观战不能发起重来", false))
		return
	}
	if !a.record.GameOver {
		a.sendLocked(c, reject("对局尚未结束", false))
		return
	}

	a.record.Rematch[role] = true
	a.persistLocked()
	a.broadcastLocked(ServerMessage{Type: "rematch_pending", Payload: emptyStruct{}})
	a.broadcastVotesLocked()

	if a.record.Rematch[roomstate.SeatA] && a.record.Rematch[roomstate.SeatB] &&
		a.record.TokenA != "" && a.record.TokenB != "" {
		a.record.Reset()
		a.persistLocked()
		a.broadcastLocked(ServerMessage{Type: "state", Payload: StatePayload{
			Moves: a.record.Moves, Current: int(a.record.Current), GameOver: a.record.GameOver,
		}})
		a.broadcastVotesLocked()
	}
}

func (a *GomokuActor) handleSwapLocked(c *Client, role roomstate.Role) {
	if role != roomstate.SeatA && role != roomstate.SeatB {
		a.sendLocked(c, reject("观战不能发起换边", false))
		return
	}
	if !a.record.GameOver && len(a.record.Moves) != 0 {
		a.sendLocked(c, reject("对局进行中不能换边", false))
		return
	}

	a.record.Swap[role] = true
	a.persistLocked()
	a.broadcastLocked(ServerMessage{Type: "swap_pending", Payload: emptyStruct{}})
	a.broadcastVotesLocked()

	if a.record.Swap[roomstate.SeatA] && a.record.Swap[roomstate.SeatB] &&
		a.record.TokenA != "" && a.record.TokenB != "" {
		a.record.SwapSeats()
		a.persistLocked()
		a.broadcastSeatsLocked()
		for other := range a.sockets {
			newRole := a.record.RoleFromToken(other.Token())
			other.Send(ServerMessage{Type: "role", Payload: RolePayload{You: int(newRole)}})
		}
		a.broadcastLocked(ServerMessage{Type: "state", Payload: StatePayload{
			Moves: a.record.Moves, Current: int(a.record.Current), GameOver: a.record.GameOver,
		}})
		a.broadcastVotesLocked()
	}
}

func (a *GomokuActor) handleLeaveLocked(c *Client, role roomstate.Role) {
	if role != roomstate.SeatA && role != roomstate.SeatB {
		return
	}
	a.record.ReleaseSeat(role)
	a.persistLocked()
	a.broadcastSeatsLocked()
	a.broadcastPresenceLocked()
}

func (a *GomokuActor) OnClose(c *Client) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.sockets, c)

	role := a.record.RoleFromToken(c.Token())
	if role == roomstate.SeatA || role == roomstate.SeatB {
		a.record.TouchSeat(role, time.Now().UnixMilli())
		a.persistLocked()
	}
	a.broadcastSeatsLocked()
	a.broadcastPresenceLocked()
}

func (a *GomokuActor) sendInitLocked(c *Client, role roomstate.Role, token string) {
	if role == roomstate.Spectator {
		token = ""
	}
	a.sendLocked(c, ServerMessage{Type: "init", Payload: InitPayload{
		You:      int(role),
		Token:    token,
		Moves:    a.record.Moves,
		Current:  int(a.record.Current),
		GameOver: a.record.GameOver,
		Winner:   int(a.record.Winner),
		Reason:   a.record.Reason,
		Seats:    a.seatsPayloadLocked(),
		Votes:    a.votesPayloadLocked(),
	}})
}

func (a *GomokuActor) seatsPayloadLocked() GomokuSeatsPayload {
	return GomokuSeatsPayload{Seats: GomokuSeats{Black: a.record.TokenA != "", White: a.record.TokenB != ""}}
}

func (a *GomokuActor) votesPayloadLocked() VotesPayload {
	return VotesPayload{
		Rematch: RoleVotes{A: a.record.Rematch[roomstate.SeatA], B: a.record.Rematch[roomstate.SeatB]},
		Swap:    RoleVotes{A: a.record.Swap[roomstate.SeatA], B: a.record.Swap[roomstate.SeatB]},
	}
}

func (a *GomokuActor) broadcastSeatsLocked() {
	a.broadcastLocked(ServerMessage{Type: "gm_seats", Payload: a.seatsPayloadLocked()})
}

func (a *GomokuActor) broadcastVotesLocked() {
	a.broadcastLocked(ServerMessage{Type: "votes", Payload: a.votesPayloadLocked()})
}

func (a *GomokuActor) broadcastPresenceLocked() {
	a.met.AttachedSockets.WithLabelValues("gomoku", a.roomID).Set(float64(len(a.sockets)))
	a.broadcastLocked(ServerMessage{Type: "presence", Payload: PresencePayload{N: len(a.sockets)}})
}

func (a *GomokuActor) broadcastLocked(msg ServerMessage) {
	for c := range a.sockets {
		c.Send(msg)
	}
}

func (a *GomokuActor) sendLocked(c *Client, msg ServerMessage) {
	c.Send(msg)
}

func reject(reason string, sync bool) ServerMessage {
	return ServerMessage{Type: "reject", Payload: RejectPayload{Reason: reason, Sync: sync}}
}

func opponentOf(role roomstate.Role) roomstate.Role {
	if role == roomstate.SeatA {
		return roomstate.SeatB
	}
	return roomstate.SeatA
}
