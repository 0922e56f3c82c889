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
	"github.com/3405029277/roomserver/internal/xiangqi"
)

const xiangqiStoreKind = "xq_room"

// XiangqiActor is the Xiangqi variant of the room actor. It shares the
// Gomoku actor's shape but delegates legality to the internal/xiangqi
// engine, rebuilt by replay on every move.
type XiangqiActor struct {
	key    string
	roomID string
	store  store.RoomStore
	log    *zap.Logger
	met    *metrics.Metrics

	mu      sync.Mutex
	record  *roomstate.XiangqiRoom
	sockets map[*Client]struct{}
}

func NewXiangqiActor(key, roomID string, st store.RoomStore, log *zap.Logger, met *metrics.Metrics) *XiangqiActor {
	a := &XiangqiActor{
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

func (a *XiangqiActor) Key() string { return a.key }

func (a *XiangqiActor) loadLocked() {
	record := roomstate.NewXiangqiRoom()
	found, err := a.store.LoadRoom(context.Background(), xiangqiStoreKind, a.roomID, record)
	if err != nil {
		a.log.Error("读取象棋房间记录失败，使用默认房间", zap.String("room", a.roomID), zap.Error(err))
		record = roomstate.NewXiangqiRoom()
	}
	if !found {
		a.met.RoomsCreated.WithLabelValues("xiangqi").Inc()
	}
	record.Normalize()
	a.record = record
}

func (a *XiangqiActor) persistLocked() {
	if err := a.store.SaveRoom(context.Background(), xiangqiStoreKind, a.roomID, a.record); err != nil {
		a.log.Error("保存象棋房间记录失败", zap.String("room", a.roomID), zap.Error(err))
	}
}

func (a *XiangqiActor) onlineCountsLocked() seat.OnlineCounts {
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

func (a *XiangqiActor) OnOpen(c *Client, token string, want seat.Want) {
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
			a.met.SeatsStolen.WithLabelValues("xiangqi").Inc()
		}
	}

	if res.Role != roomstate.Spectator {
		a.evictDuplicateLocked(res.Token, c)
	}

	a.persistLocked()
	c.Attach("xiangqi", res.Token)

	a.sendInitLocked(c, res.Role, res.Token)
	a.broadcastPresenceLocked()
	a.broadcastSeatsLocked()
}

func (a *XiangqiActor) evictDuplicateLocked(token string, except *Client) {
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

func (a *XiangqiActor) OnMessage(c *Client, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	role := a.record.RoleFromToken(c.Token())

	switch msg.Type {
	case "xq_move":
		var payload XQMovePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return
		}
		a.handleMoveLocked(c, role, payload)
	case "xq_timeout":
		a.handleTimeoutLocked(c, role)
	case "xq_rematch":
		a.handleRematchLocked(c, role)
	case "xq_swap":
		a.handleSwapLocked(c, role)
	case "xq_leave":
		a.handleLeaveLocked(c, role)
	}
}

func (a *XiangqiActor) rejectMoveLocked(c *Client, role roomstate.Role, reason string) {
	a.met.MovesRejected.WithLabelValues("xiangqi", reason).Inc()
	a.sendLocked(c, reject(reason, true))
	a.sendInitLocked(c, role, c.Token())
}

func (a *XiangqiActor) handleMoveLocked(c *Client, role roomstate.Role, payload XQMovePayload) {
	if role != roomstate.SeatA && role != roomstate.SeatB {
		a.rejectMoveLocked(c, role, "观战不能落子")
		return
	}
	if a.record.GameOver {
		a.rejectMoveLocked(c, role, "对局已结束")
		return
	}

	from := xiangqi.Point{R: payload.From.R, C: payload.From.C}
	to := xiangqi.Point{R: payload.To.R, C: payload.To.C}
	if !xiangqi.InBounds(from) || !xiangqi.InBounds(to) {
		a.rejectMoveLocked(c, role, "坐标超出棋盘")
		return
	}

	board, err := xiangqi.Replay(a.toMoveRecords())
	if err != nil {
		a.log.Error("重放象棋历史棋谱失败", zap.String("room", a.roomID), zap.Error(err))
		a.rejectMoveLocked(c, role, "棋局状态异常")
		return
	}

	mover := xiangqi.ColorForRole(int(role))
	if board.Turn != mover {
		a.rejectMoveLocked(c, role, "不是你的回合")
		return
	}

	move, ok := board.FindLegalMove(mover, from, to)
	if !ok {
		a.rejectMoveLocked(c, role, "非法走法")
		return
	}

	board.ApplyMove(move)
	a.record.Moves = append(a.record.Moves, roomstate.XiangqiMove{
		From: payload.From.toModel(), To: payload.To.toModel(), P: role,
	})
	a.record.TouchSeat(role, time.Now().UnixMilli())
	a.record.ClearVotes()
	a.met.MovesAccepted.WithLabelValues("xiangqi").Inc()

	broadcast := XQMoveBroadcast{From: payload.From, To: payload.To, P: int(role)}

	if reason, terminal := xiangqi.DetermineTerminal(board, board.Turn); terminal {
		a.record.GameOver = true
		a.record.Winner = role
		a.record.Reason = string(reason)
		a.met.GamesFinished.WithLabelValues("xiangqi", string(reason)).Inc()
		broadcast.Win = int(role)
		broadcast.Reason = string(reason)
		a.persistLocked()
		a.broadcastLocked(ServerMessage{Type: "xq_move", Payload: broadcast})
		a.broadcastLocked(ServerMessage{Type: "xq_over", Payload: XQOverPayload{
			Winner: int(role), Reason: string(reason),
		}})
		return
	}

	a.record.Current = opponentOf(role)
	broadcast.Next = int(a.record.Current)
	a.persistLocked()
	a.broadcastLocked(ServerMessage{Type: "xq_move", Payload: broadcast})
}

// toMoveRecords drops the roomstate.XiangqiMove's role tag: Replay only
// needs from/to, and re-derives the moved piece from the board itself.
func (a *XiangqiActor) toMoveRecords() []xiangqi.MoveRecord {
	out := make([]xiangqi.MoveRecord, 0, len(a.record.Moves))
	for _, m := range a.record.Moves {
		out = append(out, xiangqi.MoveRecord{
			From: xiangqi.Point{R: m.From.R, C: m.From.C},
			To:   xiangqi.Point{R: m.To.R, C: m.To.C},
		})
	}
	return out
}

func (p PointPayload) toModel() roomstate.XiangqiPoint {
	return roomstate.XiangqiPoint{R: p.R, C: p.C}
}

func (a *XiangqiActor) handleTimeoutLocked(c *Client, role roomstate.Role) {
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
	a.record.Reason = string(xiangqi.ReasonTimeout)
	a.record.ClearVotes()
	a.met.GamesFinished.WithLabelValues("xiangqi", string(xiangqi.ReasonTimeout)).Inc()
	a.persistLocked()

	sentinel := PointPayload{R: -1, C: -1}
	a.broadcastLocked(ServerMessage{Type: "xq_move", Payload: XQMoveBroadcast{
		From: sentinel, To: sentinel, Win: int(winner), Reason: string(xiangqi.ReasonTimeout),
	}})
	a.broadcastLocked(ServerMessage{Type: "xq_over", Payload: XQOverPayload{
		Winner: int(winner), Reason: string(xiangqi.ReasonTimeout),
	}})
}

func (a *XiangqiActor) handleRematchLocked(c *Client, role roomstate.Role) {
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
		a.broadcastLocked(ServerMessage{Type: "xq_reset", Payload: XQResetPayload{
			Reason: a.record.Reason, Current: int(a.record.Current), Moves: a.record.Moves,
		}})
		a.broadcastVotesLocked()
	}
}

func (a *XiangqiActor) handleSwapLocked(c *Client, role roomstate.Role) {
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
		a.broadcastLocked(ServerMessage{Type: "xq_reset", Payload: XQResetPayload{
			Reason: a.record.Reason, Current: int(a.record.Current), Moves: a.record.Moves,
		}})
		a.broadcastVotesLocked()

		// 换边后旧 token 的座位映射已经互换；与五子棋的定向 role 消息不同，
		// 这里直接把全房间踢线，客户端用各自仍然有效的新座位 token 重新
		// 连接协商身份。
		for other := range a.sockets {
			delete(a.sockets, other)
			go other.ForceClose(1000, "swap")
		}
	}
}

func (a *XiangqiActor) handleLeaveLocked(c *Client, role roomstate.Role) {
	if role != roomstate.SeatA && role != roomstate.SeatB {
		return
	}
	a.record.ReleaseSeat(role)
	a.persistLocked()
	a.broadcastSeatsLocked()
	a.broadcastPresenceLocked()
}

func (a *XiangqiActor) OnClose(c *Client) {
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

func (a *XiangqiActor) sendInitLocked(c *Client, role roomstate.Role, token string) {
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

func (a *XiangqiActor) seatsPayloadLocked() XiangqiSeatsPayload {
	return XiangqiSeatsPayload{Seats: XiangqiSeats{Red: a.record.TokenA != "", Black: a.record.TokenB != ""}}
}

func (a *XiangqiActor) votesPayloadLocked() VotesPayload {
	return VotesPayload{
		Rematch: RoleVotes{A: a.record.Rematch[roomstate.SeatA], B: a.record.Rematch[roomstate.SeatB]},
		Swap:    RoleVotes{A: a.record.Swap[roomstate.SeatA], B: a.record.Swap[roomstate.SeatB]},
	}
}

func (a *XiangqiActor) broadcastSeatsLocked() {
	a.broadcastLocked(ServerMessage{Type: "xq_seats", Payload: a.seatsPayloadLocked()})
}

func (a *XiangqiActor) broadcastVotesLocked() {
	a.broadcastLocked(ServerMessage{Type: "xq_votes", Payload: a.votesPayloadLocked()})
}

func (a *XiangqiActor) broadcastPresenceLocked() {
	a.met.AttachedSockets.WithLabelValues("xiangqi", a.roomID).Set(float64(len(a.sockets)))
	a.broadcastLocked(ServerMessage{Type: "presence", Payload: PresencePayload{N: len(a.sockets)}})
}

func (a *XiangqiActor) broadcastLocked(msg ServerMessage) {
	for c := range a.sockets {
		c.Send(msg)
	}
}

func (a *XiangqiActor) sendLocked(c *Client, msg ServerMessage) {
	c.Send(msg)
}
