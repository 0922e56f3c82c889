package server

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/3405029277/roomserver/internal/metrics"
	"github.com/3405029277/roomserver/internal/seat"
)

func newTestXiangqiActor(t *testing.T) (*XiangqiActor, *memStore) {
	t.Helper()
	st := newMemStore()
	met := metrics.New(prometheus.NewRegistry())
	actor := NewXiangqiActor("xiangqi:test", "test", st, zap.NewNop(), met)
	return actor, st
}

func connectXiangqi(actor *XiangqiActor, token string, want seat.Want) (*Client, *fakeConn) {
	conn := newFakeConn()
	client := NewClient(conn, actor, zap.NewNop())
	go client.Serve(token, want)
	return client, conn
}

// TestXiangqiLegalMoveFlipsTurn plays red's opening pawn push and checks
// the broadcast carries the move and hands the turn to black.
func TestXiangqiLegalMoveFlipsTurn(t *testing.T) {
	actor, _ := newTestXiangqiActor(t)

	_, connRed := connectXiangqi(actor, "", seat.WantSeatA)
	recvTyped(t, connRed, "init")
	_, connBlack := connectXiangqi(actor, "", seat.WantSeatB)
	recvTyped(t, connBlack, "init")

	drain := func(conn *fakeConn) {
		for i := 0; i < 2; i++ {
			conn.recv(200 * time.Millisecond)
		}
	}
	drain(connRed)
	drain(connBlack)

	sendClientMsg(connRed, "xq_move", XQMovePayload{
		From: PointPayload{R: 6, C: 0},
		To:   PointPayload{R: 5, C: 0},
	})

	moveMsg := recvTyped(t, connRed, "xq_move")
	var broadcast XQMoveBroadcast
	decodePayload(t, moveMsg, &broadcast)
	if broadcast.Win != 0 {
		t.Fatalf("兵前进一步不应终局，实际 win=%d", broadcast.Win)
	}
	if broadcast.Next != 2 {
		t.Fatalf("红方走完应轮到黑方(2)，实际 next=%d", broadcast.Next)
	}

	blackMoveMsg := recvTyped(t, connBlack, "xq_move")
	var blackBroadcast XQMoveBroadcast
	decodePayload(t, blackMoveMsg, &blackBroadcast)
	if blackBroadcast.From.R != 6 || blackBroadcast.To.R != 5 {
		t.Fatalf("观战方/对手也应看到同一步走子广播，实际 %+v", blackBroadcast)
	}
}

// TestXiangqiIllegalMoveRejectsAndResyncs covers an elephant trying to
// cross the river: the move is rejected and the sender gets a fresh init
// to resync against the unchanged board.
func TestXiangqiIllegalMoveRejectsAndResyncs(t *testing.T) {
	actor, _ := newTestXiangqiActor(t)

	_, connRed := connectXiangqi(actor, "", seat.WantSeatA)
	recvTyped(t, connRed, "init")
	_, connBlack := connectXiangqi(actor, "", seat.WantSeatB)
	recvTyped(t, connBlack, "init")
	connRed.recv(200 * time.Millisecond)
	connRed.recv(200 * time.Millisecond)

	// red elephant starts at (9,2); crossing the river means reaching
	// row <= 4, which is never a legal elephant destination.
	sendClientMsg(connRed, "xq_move", XQMovePayload{
		From: PointPayload{R: 9, C: 2},
		To:   PointPayload{R: 4, C: 2},
	})

	rejectMsg := recvTyped(t, connRed, "reject")
	var rejectPayload RejectPayload
	decodePayload(t, rejectMsg, &rejectPayload)
	if !rejectPayload.Sync {
		t.Fatalf("非法走法的拒绝消息应带 sync=true 以触发重新同步，实际 %+v", rejectPayload)
	}

	resyncMsg := recvTyped(t, connRed, "init")
	var resyncPayload InitPayload
	decodePayload(t, resyncMsg, &resyncPayload)
	if resyncPayload.Current != 1 || len(func() []any {
		moves, _ := resyncPayload.Moves.([]any)
		return moves
	}()) != 0 {
		t.Fatalf("非法走法后棋局应保持未变的初始局面，实际 %+v", resyncPayload)
	}
}

// TestXiangqiRematchRequiresBothVotes covers the vote-gated rematch path
// after a timeout ends the game.
func TestXiangqiRematchRequiresBothVotes(t *testing.T) {
	actor, _ := newTestXiangqiActor(t)

	_, connRed := connectXiangqi(actor, "", seat.WantSeatA)
	recvTyped(t, connRed, "init")
	_, connBlack := connectXiangqi(actor, "", seat.WantSeatB)
	recvTyped(t, connBlack, "init")
	connRed.recv(200 * time.Millisecond)
	connRed.recv(200 * time.Millisecond)
	connBlack.recv(200 * time.Millisecond)
	connBlack.recv(200 * time.Millisecond)

	sendClientMsg(connRed, "xq_timeout", emptyStruct{})
	recvTyped(t, connRed, "xq_move")
	recvTyped(t, connRed, "xq_over")
	connBlack.recv(200 * time.Millisecond)
	connBlack.recv(200 * time.Millisecond)

	sendClientMsg(connRed, "xq_rematch", emptyStruct{})
	recvTyped(t, connRed, "rematch_pending")
	connRed.recv(200 * time.Millisecond)

	sendClientMsg(connBlack, "xq_rematch", emptyStruct{})

	resetMsg := recvTyped(t, connRed, "xq_reset")
	var resetPayload XQResetPayload
	decodePayload(t, resetMsg, &resetPayload)
	if resetPayload.Current != 1 {
		t.Fatalf("重来后应恢复红方先行，实际 %+v", resetPayload)
	}
}
