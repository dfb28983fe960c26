package selector

import (
	"fmt"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
)

type Direction string

const (
	Left  Direction = "left"
	Right Direction = "right"
	Up    Direction = "up"
	Down  Direction = "down"
)

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Left, Right, Up, Down:
		return d, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// AdjacentMatch returns the match next to matchID in the given direction.
// Up and down stay inside the round and clamp at its ends; left and right
// move to the feeding and fed rounds. The result is empty when there is no
// neighbour.
func AdjacentMatch(t *bracket.Tournament, stageID, matchID string, dir Direction) string {
	s := t.BracketStage(stageID)
	if s == nil {
		return ""
	}
	roundIdx := s.RoundIndex(matchID)
	if roundIdx < 0 {
		return ""
	}
	round := s.Rounds[roundIdx].MatchIDs
	idx := indexOf(round, matchID)

	switch dir {
	case Up:
		return round[max(0, idx-1)]
	case Down:
		return round[min(len(round)-1, idx+1)]
	case Left:
		if roundIdx == 0 {
			return ""
		}
		prev := s.Rounds[roundIdx-1].MatchIDs
		if len(prev) == 0 {
			return ""
		}
		return prev[min(len(prev)-1, idx*2)]
	case Right:
		if roundIdx+1 >= len(s.Rounds) {
			return ""
		}
		next := s.Rounds[roundIdx+1].MatchIDs
		if idx/2 >= len(next) {
			return ""
		}
		return next[idx/2]
	}
	return ""
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
