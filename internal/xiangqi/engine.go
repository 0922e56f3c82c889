package xiangqi

import "fmt"

// ApplyMove 落子：覆盖目标格、清空起点，并轮换走子方。
func (b *Board) ApplyMove(m Move) {
	b.set(m.To, m.Piece)
	b.set(m.From, Piece{})
	b.Turn = b.Turn.Opponent()
}

// LegalMoves 返回 color 方全部合法着法：伪合法着法中排除任何会令己方
// 被将军的走法（checkSimulate：试走、判断、还原——这里用克隆棋盘实现还原）。
func (b *Board) LegalMoves(color Color) []Move {
	pseudo := b.PseudoLegalMoves(color)
	legal := make([]Move, 0, len(pseudo))
	for _, m := range pseudo {
		trial := b.Clone()
		trial.ApplyMove(m)
		if !trial.IsChecked(color) {
			legal = append(legal, m)
		}
	}
	return legal
}

// FindLegalMove 在 color 方合法着法中查找 from→to 的走法；顺序无关，
// 找不到则返回 ok=false。
func (b *Board) FindLegalMove(color Color, from, to Point) (Move, bool) {
	for _, m := range b.LegalMoves(color) {
		if m.From == from && m.To == to {
			return m, true
		}
	}
	return Move{}, false
}

// IsChecked 报告 color 方是否正被将军。
func (b *Board) IsChecked(color Color) bool {
	return b.checkSource(color)
}

// checkSource 判定将军来源：
//  1. 白脸将/飞将——两王同列且中间无子；
//  2. 普通攻击——敌方任一棋子的伪合法着法能落在己方王所在格（此规则天然覆盖炮的隔子攻击）。
func (b *Board) checkSource(color Color) bool {
	king, ok := b.KingPosition(color)
	if !ok {
		return false
	}
	oppKing, ok := b.KingPosition(color.Opponent())
	if ok && oppKing.C == king.C {
		clear := true
		lo, hi := king.R, oppKing.R
		if lo > hi {
			lo, hi = hi, lo
		}
		for r := lo + 1; r < hi; r++ {
			if !b.Squares[r][king.C].Empty() {
				clear = false
				break
			}
		}
		if clear {
			return true
		}
	}

	for _, m := range b.PseudoLegalMoves(color.Opponent()) {
		if m.To == king {
			return true
		}
	}
	return false
}

// MoveRecord 是对局记录中单步象棋走子的可序列化表示。
type MoveRecord struct {
	From Point     `json:"from"`
	To   Point     `json:"to"`
	P    PieceType `json:"p"`
}

// Replay 从标准开局开始，按顺序重放历史着法，重建出当前局面。
// 历史着法已经过服务端接受，此处直接落子而不重新做合法性判定——
// "reconstructing the engine by replay yields the same board as applying
// moves incrementally" 正是由此保证的定点性质。
func Replay(history []MoveRecord) (*Board, error) {
	b := NewBoard()
	for i, rec := range history {
		piece := b.At(rec.From)
		if piece.Empty() {
			return nil, fmt.Errorf("xiangqi: replay 第 %d 步起点 %v 无子", i, rec.From)
		}
		b.ApplyMove(Move{From: rec.From, To: rec.To, Piece: piece, Captured: b.At(rec.To)})
	}
	return b, nil
}

// ColorForRole 把房间模型里的角色编号（1=红/A，2=黑/B）映射成引擎的 Color。
func ColorForRole(role int) Color {
	if role == 1 {
		return Red
	}
	return Black
}

// RoleForColor 是 ColorForRole 的逆映射。
func RoleForColor(c Color) int {
	if c == Red {
		return 1
	}
	return 2
}
