package xiangqi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPawnMoveTable 用 require 跑一组兵（卒）走法合法性用例，一行断言
// 胜过人工比对多段 if——表驱动用例的固定诉求。
func TestPawnMoveTable(t *testing.T) {
	cases := []struct {
		name string
		from Point
		to   Point
		legal bool
	}{
		{"红兵直进一步合法", Point{R: 6, C: 0}, Point{R: 5, C: 0}, true},
		{"红兵不能后退", Point{R: 6, C: 0}, Point{R: 7, C: 0}, false},
		{"红兵未过河不能横移", Point{R: 6, C: 0}, Point{R: 6, C: 1}, false},
		{"红兵不能一次走两步", Point{R: 6, C: 0}, Point{R: 4, C: 0}, false},
	}
	for _, c := range cases {
		b := NewBoard()
		_, ok := b.FindLegalMove(Red, c.from, c.to)
		require.Equalf(t, c.legal, ok, "%s: %v -> %v", c.name, c.from, c.to)
	}
}

func TestNewBoardSetup(t *testing.T) {
	b := NewBoard()
	if b.Turn != Red {
		t.Fatalf("红方应先行，实际 %v", b.Turn)
	}
	king, ok := b.KingPosition(Red)
	if !ok || king != (Point{R: 9, C: 4}) {
		t.Fatalf("红帅应在 (9,4)，实际 %v ok=%v", king, ok)
	}
	if len(b.LegalMoves(Red)) == 0 {
		t.Fatalf("开局红方应有合法着法")
	}
}

func TestHorseHobbled(t *testing.T) {
	b := NewBoard()
	// 红方正常开局马二进三：马(9,7) -> (7,6) 应合法。
	if _, ok := b.FindLegalMove(Red, Point{R: 9, C: 7}, Point{R: 7, C: 6}); !ok {
		t.Fatalf("期望马 (9,7)->(7,6) 合法")
	}
	// 人为在蹩腿位置 (8,7) 放一个己方兵，阻断该马腿。
	b.Squares[8][7] = Piece{Type: Pawn, Color: Red}
	if _, ok := b.FindLegalMove(Red, Point{R: 9, C: 7}, Point{R: 7, C: 6}); ok {
		t.Fatalf("蹩马腿后该着法应不合法")
	}
}

func TestElephantCannotCrossRiver(t *testing.T) {
	b := &Board{Turn: Red}
	b.Squares[6][4] = Piece{Type: Elephant, Color: Red}
	moves := b.elephantMoves(Point{R: 6, C: 4}, Piece{Type: Elephant, Color: Red})
	for _, m := range moves {
		if m.To.R < 5 {
			t.Fatalf("红象不应越过河界，却生成了 %v", m)
		}
	}
	if len(moves) != 2 {
		t.Fatalf("象在 (6,4) 应只剩两个未过河的对角目标，实际 %v", moves)
	}
}

func TestCannonRequiresExactlyOneScreen(t *testing.T) {
	b := &Board{Turn: Red}
	b.Squares[5][4] = Piece{Type: Cannon, Color: Red}
	b.Squares[5][0] = Piece{Type: Rook, Color: Black}
	// 中间没有炮架，不能越子直接吃。
	moves := b.cannonMoves(Point{R: 5, C: 4}, Piece{Type: Cannon, Color: Red})
	for _, m := range moves {
		if m.To == (Point{R: 5, C: 0}) {
			t.Fatalf("无炮架时不应能吃到 %v", m.To)
		}
	}
	// 放一个炮架子后，应可以吃。
	b.Squares[5][2] = Piece{Type: Pawn, Color: Black}
	moves = b.cannonMoves(Point{R: 5, C: 4}, Piece{Type: Cannon, Color: Red})
	found := false
	for _, m := range moves {
		if m.To == (Point{R: 5, C: 0}) {
			found = true
		}
	}
	if !found {
		t.Fatalf("恰好一个炮架时应能吃掉对方车")
	}
}

func TestFlyingGeneralCheck(t *testing.T) {
	b := &Board{Turn: Red}
	b.Squares[9][4] = Piece{Type: King, Color: Red}
	b.Squares[0][4] = Piece{Type: King, Color: Black}
	if !b.IsChecked(Red) {
		t.Fatalf("两王对脸中间无子应视为被将军")
	}
	b.Squares[5][4] = Piece{Type: Pawn, Color: Red}
	if b.IsChecked(Red) {
		t.Fatalf("中间有子阻挡后不应再被白脸将军将")
	}
}

func TestPinnedPieceCannotExposeKing(t *testing.T) {
	b := &Board{Turn: Red}
	b.Squares[9][4] = Piece{Type: King, Color: Red}
	b.Squares[7][4] = Piece{Type: Rook, Color: Red}
	b.Squares[0][4] = Piece{Type: Rook, Color: Black}
	// 红车若离开将道，红帅立刻被对方车将军——该着法不应出现在合法着法中。
	legal := b.LegalMoves(Red)
	for _, m := range legal {
		if m.From == (Point{R: 7, C: 4}) && m.To.C != 4 {
			t.Fatalf("被牵制的车离开直线应暴露将军，不应合法：%v", m)
		}
	}
}

func TestReplayIsFixpoint(t *testing.T) {
	history := []MoveRecord{
		{From: Point{R: 7, C: 1}, To: Point{R: 7, C: 4}, P: Cannon},
		{From: Point{R: 0, C: 1}, To: Point{R: 2, C: 2}, P: Horse},
	}
	replayed, err := Replay(history)
	if err != nil {
		t.Fatalf("重放应成功：%v", err)
	}
	fresh := NewBoard()
	for _, rec := range history {
		piece := fresh.At(rec.From)
		fresh.ApplyMove(Move{From: rec.From, To: rec.To, Piece: piece})
	}
	if *replayed != *fresh {
		t.Fatalf("重放结果应与逐步施加的结果一致")
	}
}

func TestCheckmateDetection(t *testing.T) {
	// 构造一个绝杀局面：黑方只剩孤将，三面被红车锁死，九宫内无一格可走。
	b := &Board{Turn: Black}
	b.Squares[0][4] = Piece{Type: King, Color: Black}
	b.Squares[1][4] = Piece{Type: Rook, Color: Red} // 正将，若被将吃则暴露于下方同列的车
	b.Squares[5][4] = Piece{Type: Rook, Color: Red}
	b.Squares[0][0] = Piece{Type: Rook, Color: Red} // 封锁 (0,3)
	b.Squares[0][8] = Piece{Type: Rook, Color: Red} // 封锁 (0,5)
	b.Squares[9][4] = Piece{Type: King, Color: Red}

	if !b.IsChecked(Black) {
		t.Fatalf("黑方应处于被将军状态")
	}
	if len(b.LegalMoves(Black)) != 0 {
		t.Fatalf("黑方应无合法着法，实际 %v", b.LegalMoves(Black))
	}

	reason, ok := DetermineTerminal(b, Black)
	if !ok {
		t.Fatalf("黑方应已无棋可走")
	}
	if reason != ReasonCheckmate {
		t.Fatalf("应判定为绝杀，实际 %v", reason)
	}
}

func TestStalemateDetection(t *testing.T) {
	// 困毙：黑方无棋可走，但当前并未被将军。
	b := &Board{Turn: Black}
	b.Squares[0][4] = Piece{Type: King, Color: Black}
	b.Squares[1][3] = Piece{Type: Rook, Color: Red} // 封锁 (1,4) 与 (0,3)
	b.Squares[1][5] = Piece{Type: Rook, Color: Red} // 封锁 (1,4) 与 (0,5)
	b.Squares[7][3] = Piece{Type: King, Color: Red} // 避免与黑将同列构成白脸将

	if b.IsChecked(Black) {
		t.Fatalf("该局面黑方不应处于被将军状态")
	}
	reason, ok := DetermineTerminal(b, Black)
	if !ok {
		t.Fatalf("黑方应已无棋可走")
	}
	if reason != ReasonStalemate {
		t.Fatalf("应判定为困毙，实际 %v", reason)
	}
}
