// Package seat 实现座位分配算法：给定客户端出示的 token 与意向座位，
// 结合当前房间记录与在线人数，判定重连、占座、抢座或观战。不持锁、
// 不做 I/O，分配结果直接写入调用方传入的房间记录；token 由 Minter 铸造。
package seat

import (
	"time"

	"github.com/google/uuid"

	"github.com/3405029277/roomserver/internal/roomstate"
)

// Grace 是座位被判定为"已放弃"、允许被抢占的最短闲置时长。默认 3 分钟，
// 可在启动时由 internal/config 的 room.grace 覆盖。
var Grace = 3 * time.Minute

// Want 是客户端在连接时表达的座位意向。
type Want int

const (
	WantAuto Want = iota
	WantSeatA
	WantSeatB
	WantSpectate
)

// ParseWant 把查询参数里的别名归一化成 Want。
func ParseWant(raw string) Want {
	switch raw {
	case "a", "A", "black", "b", "1", "red", "r":
		return WantSeatA
	case "white", "w", "2":
		return WantSeatB
	case "spectate", "watch", "0":
		return WantSpectate
	default:
		return WantAuto
	}
}

// OnlineCounts 报告每个座位当前是否有存活连接——抢座判定需要这个信息
// （没有它，一个短暂断线的座位就会被误判为可抢）。
type OnlineCounts struct {
	A, B int
}

// Request 是分配请求的输入。
type Request struct {
	Token   string
	Want    Want
	Online  OnlineCounts
	Now     time.Time
	Minter  func() string // 为 nil 时使用 uuid.NewString
}

// Result 是分配算法的结论。
type Result struct {
	Role      roomstate.Role
	Token     string // 新铸造或维持不变的座位 token；观战时为空
	Minted    bool   // 是否铸造了新 token（供调用方判断是否需要持久化）
	Reconnect bool   // 是否命中既有 token 完成重连
}

// Allocate 按 token 重连优先、座位意向次之、抢占兜底的顺序直接操作
// 传入的房间记录（房间actor已持锁，分配结果随后由调用方一并持久化）。
func Allocate(req Request, room interface {
	SeatToken(roomstate.Role) string
	LastSeen(roomstate.Role) int64
	SetSeat(roomstate.Role, string, int64)
}) Result {
	now := req.Now.UnixMilli()

	// 1. token 命中：直接重连，刷新 lastSeen。
	if req.Token != "" {
		if req.Token == room.SeatToken(roomstate.SeatA) {
			room.SetSeat(roomstate.SeatA, req.Token, now)
			return Result{Role: roomstate.SeatA, Token: req.Token, Reconnect: true}
		}
		if req.Token == room.SeatToken(roomstate.SeatB) {
			room.SetSeat(roomstate.SeatB, req.Token, now)
			return Result{Role: roomstate.SeatB, Token: req.Token, Reconnect: true}
		}
	}

	// 2. 明确要求观战。
	if req.Want == WantSpectate {
		return Result{Role: roomstate.Spectator}
	}

	canSteal := func(role roomstate.Role, online int) bool {
		token := room.SeatToken(role)
		if token == "" || online > 0 {
			return false
		}
		idle := req.Now.Sub(time.UnixMilli(room.LastSeen(role)))
		return idle > Grace
	}

	mint := req.Minter
	if mint == nil {
		mint = uuid.NewString
	}

	// 4. 尝试 A：空座位或可抢占。
	if req.Want == WantSeatA || req.Want == WantAuto {
		if room.SeatToken(roomstate.SeatA) == "" || canSteal(roomstate.SeatA, req.Online.A) {
			token := mint()
			room.SetSeat(roomstate.SeatA, token, now)
			return Result{Role: roomstate.SeatA, Token: token, Minted: true}
		}
	}

	// 5. 尝试 B：对称逻辑。
	if req.Want == WantSeatB || req.Want == WantAuto {
		if room.SeatToken(roomstate.SeatB) == "" || canSteal(roomstate.SeatB, req.Online.B) {
			token := mint()
			room.SetSeat(roomstate.SeatB, token, now)
			return Result{Role: roomstate.SeatB, Token: token, Minted: true}
		}
	}

	// 6. 两座均不可用，归入观战。
	return Result{Role: roomstate.Spectator}
}
