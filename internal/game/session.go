package game

import "fmt"

// State is the phase of a player's game session.
type State int

const (
	WaitingForPlayer State = iota
	Committed
	Finished
)

func (s State) String() string {
	switch s {
	case WaitingForPlayer:
		return "waiting_for_player"
	case Committed:
		return "committed"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is one player's game. The bot's move and nonce stay hidden until
// the player moves.
type Session struct {
	PlayerID   string
	BotMove    Move
	Nonce      string
	Commitment string
	State      State
	Rounds     []Round
}

// Stats summarises a session's rounds.
type Stats struct {
	Rounds            int
	PlayerPoints      int
	BotPoints         int
	PlayerCooperation float64
	BotCooperation    float64
}

// Stats computes totals and cooperation rates in percent.
func (s *Session) Stats() Stats {
	st := Stats{Rounds: len(s.Rounds)}
	if st.Rounds == 0 {
		return st
	}
	var playerCoop, botCoop int
	for _, r := range s.Rounds {
		st.PlayerPoints += r.PlayerPoints
		st.BotPoints += r.BotPoints
		if r.PlayerMove == Cooperate {
			playerCoop++
		}
		if r.BotMove == Cooperate {
			botCoop++
		}
	}
	st.PlayerCooperation = float64(playerCoop) / float64(st.Rounds) * 100
	st.BotCooperation = float64(botCoop) / float64(st.Rounds) * 100
	return st
}
