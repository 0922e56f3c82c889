package xiangqi

// TerminalReason 描述象棋对局的终局原因。
type TerminalReason string

const (
	ReasonNone      TerminalReason = ""
	ReasonCheckmate TerminalReason = "绝杀"
	ReasonStalemate TerminalReason = "困毙"
	ReasonTimeout   TerminalReason = "超时判负"
)

// DetermineTerminal 在 mover 走完一步之后判断对方是否已经无棋可走。
// 若对方仍有合法着法，ok 为 false。否则根据对方是否正被将军，区分
// 绝杀（被将死）与困毙（无子可动但未被将军）。
func DetermineTerminal(b *Board, opponent Color) (reason TerminalReason, ok bool) {
	if len(b.LegalMoves(opponent)) > 0 {
		return ReasonNone, false
	}
	if b.IsChecked(opponent) {
		return ReasonCheckmate, true
	}
	return ReasonStalemate, true
}
