// Package xiangqi 实现中国象棋的棋盘表示、走子生成与将军判定。
//
// 本包是纯函数实现：不做任何 I/O，也不持有互斥锁——房间actor每次处理
// xq_move 时重放历史棋谱重建一份棋盘，调用本包完成合法性判定，再把结
// 果写回房间记录。
package xiangqi

import "fmt"

// PieceType 标识棋子种类。
type PieceType byte

const (
	None     PieceType = 0
	King     PieceType = 'K' // 将/帅
	Advisor  PieceType = 'A' // 仕/士
	Elephant PieceType = 'E' // 相/象
	Horse    PieceType = 'H' // 马
	Rook     PieceType = 'R' // 车
	Cannon   PieceType = 'C' // 炮
	Pawn     PieceType = 'P' // 兵/卒
)

// Color 标识棋子阵营。Red 坐在第 7-9 行，Black 坐在第 0-2 行。
type Color int8

const (
	Red   Color = 1
	Black Color = -1
)

// Opponent 返回对方阵营。
func (c Color) Opponent() Color {
	return -c
}

func (c Color) String() string {
	if c == Red {
		return "red"
	}
	return "black"
}

// Piece 是棋盘一格上的内容；零值表示空格。
type Piece struct {
	Type  PieceType
	Color Color
}

// Empty 报告该格是否为空。
func (p Piece) Empty() bool {
	return p.Type == None
}

// Point 是棋盘坐标，行 0-9，列 0-8。
type Point struct {
	R, C int
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.R, p.C)
}

// InBounds 报告坐标是否落在 10×9 棋盘内。
func InBounds(p Point) bool {
	return p.R >= 0 && p.R < 10 && p.C >= 0 && p.C < 9
}

// Board 是一局中国象棋的当前局面。
type Board struct {
	Squares [10][9]Piece
	Turn    Color
}

// NewBoard 返回标准开局局面，红先走。
func NewBoard() *Board {
	b := &Board{Turn: Red}

	backRank := []PieceType{Rook, Horse, Elephant, Advisor, King, Advisor, Elephant, Horse, Rook}
	for c, pt := range backRank {
		b.Squares[0][c] = Piece{Type: pt, Color: Black}
		b.Squares[9][c] = Piece{Type: pt, Color: Red}
	}
	for _, c := range []int{1, 7} {
		b.Squares[2][c] = Piece{Type: Cannon, Color: Black}
		b.Squares[7][c] = Piece{Type: Cannon, Color: Red}
	}
	for _, c := range []int{0, 2, 4, 6, 8} {
		b.Squares[3][c] = Piece{Type: Pawn, Color: Black}
		b.Squares[6][c] = Piece{Type: Pawn, Color: Red}
	}
	return b
}

// At 返回指定坐标上的棋子；越界视为空格。
func (b *Board) At(p Point) Piece {
	if !InBounds(p) {
		return Piece{}
	}
	return b.Squares[p.R][p.C]
}

func (b *Board) set(p Point, piece Piece) {
	b.Squares[p.R][p.C] = piece
}

// Clone 返回棋盘的深拷贝，供 checkSimulate 之类的试走使用。
func (b *Board) Clone() *Board {
	clone := *b
	return &clone
}

// KingPosition 返回指定阵营的将/帅坐标；若被吃（理论上不应发生）返回 false。
func (b *Board) KingPosition(color Color) (Point, bool) {
	for r := 0; r < 10; r++ {
		for c := 0; c < 9; c++ {
			p := b.Squares[r][c]
			if p.Type == King && p.Color == color {
				return Point{R: r, C: c}, true
			}
		}
	}
	return Point{}, false
}

func inPalace(p Point, color Color) bool {
	if p.C < 3 || p.C > 5 {
		return false
	}
	if color == Red {
		return p.R >= 7 && p.R <= 9
	}
	return p.R >= 0 && p.R <= 2
}

// onOwnSide 报告坐标 p 是否仍在 color 方自己的半场（未过河）。
// 黑方半场为行 0-4，红方半场为行 5-9。
func onOwnSide(p Point, color Color) bool {
	if color == Red {
		return p.R >= 5
	}
	return p.R <= 4
}
