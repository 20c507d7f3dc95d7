package game

import "strings"

// Move is a player's or the bot's choice in one round.
type Move string

const (
	Cooperate Move = "COOPERATE"
	Defect    Move = "DEFECT"
)

// ParseMove recognises a move command.
func ParseMove(s string) (Move, bool) {
	switch m := Move(strings.ToUpper(strings.TrimSpace(s))); m {
	case Cooperate, Defect:
		return m, true
	default:
		return "", false
	}
}

// Points is the payoff of one round.
type Points struct {
	Player int
	Bot    int
}

var payoffs = map[Move]map[Move]Points{
	Cooperate: {
		Cooperate: {Player: 3, Bot: 3},
		Defect:    {Player: 5, Bot: 0},
	},
	Defect: {
		Cooperate: {Player: 0, Bot: 5},
		Defect:    {Player: 1, Bot: 1},
	},
}

// Payoff returns the points for a round given both moves.
func Payoff(bot, player Move) Points {
	return payoffs[bot][player]
}

// Round is one completed exchange.
type Round struct {
	PlayerMove   Move
	BotMove      Move
	PlayerPoints int
	BotPoints    int
}
