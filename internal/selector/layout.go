package selector

import "github.com/AdamBeresnev/bracket-engine/internal/bracket"

const (
	CardWidth  = 200
	CardHeight = 90
	xGap       = 80
	yGap       = 30
)

type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (a Rect) Intersects(b Rect) bool {
	return !(a.X+a.Width < b.X || b.X+b.Width < a.X || a.Y+a.Height < b.Y || b.Y+b.Height < a.Y)
}

type NodeLayout struct {
	MatchID    string `json:"matchId"`
	RoundIndex int    `json:"roundIndex"`
	OrderIndex int    `json:"orderIndex"`
	Rect
}

// NodeLayouts places every match card of a bracket stage on a grid. Rounds
// advance along x in horizontal orientation and along y in vertical, and the
// spacing inside a round doubles with every round. When viewport is non-nil
// only cards touching it are returned.
func NodeLayouts(t *bracket.Tournament, stageID string, orientation Orientation, viewport *Rect) []NodeLayout {
	s := t.BracketStage(stageID)
	if s == nil {
		return []NodeLayout{}
	}

	layouts := []NodeLayout{}
	for r, round := range s.Rounds {
		for i, id := range round.MatchIDs {
			across := r * (CardWidth + xGap)
			along := i * (CardHeight + yGap) << r
			node := NodeLayout{
				MatchID:    id,
				RoundIndex: r,
				OrderIndex: i,
				Rect:       Rect{X: across, Y: along, Width: CardWidth, Height: CardHeight},
			}
			if orientation == Vertical {
				node.X, node.Y = along, across
			}
			if viewport == nil || viewport.Intersects(node.Rect) {
				layouts = append(layouts, node)
			}
		}
	}
	return layouts
}
