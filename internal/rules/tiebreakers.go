package rules

import (
	"cmp"
	"slices"
)

const (
	TiebreakPoints    = "points"
	TiebreakPointDiff = "point_diff"
	TiebreakBuchholz  = "buchholz"
)

var DefaultTiebreakers = []string{TiebreakPoints, TiebreakPointDiff, TiebreakBuchholz}

type TiebreakRow struct {
	ParticipantID string `json:"participantId"`
	Points        int    `json:"points"`
	PointDiff     int    `json:"pointDiff"`
	Buchholz      int    `json:"buchholz"`
}

// SortWithTiebreakers orders rows by each named criterion descending and
// finally by participant id. Unknown criteria are ignored.
func SortWithTiebreakers(rows []TiebreakRow, order []string) []TiebreakRow {
	if len(order) == 0 {
		order = DefaultTiebreakers
	}
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b TiebreakRow) int {
		for _, rule := range order {
			var c int
			switch rule {
			case TiebreakPoints:
				c = cmp.Compare(b.Points, a.Points)
			case TiebreakPointDiff:
				c = cmp.Compare(b.PointDiff, a.PointDiff)
			case TiebreakBuchholz:
				c = cmp.Compare(b.Buchholz, a.Buchholz)
			}
			if c != 0 {
				return c
			}
		}
		return cmp.Compare(a.ParticipantID, b.ParticipantID)
	})
	return out
}
