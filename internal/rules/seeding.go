package rules

import (
	"cmp"
	"math"
	"slices"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/utils"
)

type SeedMethod string

const (
	SeedManual  SeedMethod = "manual"
	SeedRating  SeedMethod = "rating"
	SeedShuffle SeedMethod = "shuffle"
)

func (m SeedMethod) Valid() bool {
	return m == SeedManual || m == SeedRating || m == SeedShuffle
}

// CompareForSeed orders by seed ascending (unseeded last), rating descending,
// name, then id.
func CompareForSeed(a, b bracket.Participant) int {
	if c := cmp.Compare(seedKey(a), seedKey(b)); c != 0 {
		return c
	}
	if c := cmp.Compare(ratingKey(b), ratingKey(a)); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func seedKey(p bracket.Participant) int {
	if p.Seed == nil {
		return math.MaxInt
	}
	return *p.Seed
}

func ratingKey(p bracket.Participant) float64 {
	if p.Rating == nil {
		return math.Inf(-1)
	}
	return *p.Rating
}

// SortForSeed returns the participant ids in seed order.
func SortForSeed(participants []bracket.Participant) []string {
	sorted := slices.Clone(participants)
	slices.SortStableFunc(sorted, CompareForSeed)
	ids := make([]string, len(sorted))
	for i, p := range sorted {
		ids[i] = p.ID
	}
	return ids
}

// ApplyManualSeeds overrides the seed of every participant named in seeds and
// leaves the rest untouched.
func ApplyManualSeeds(participants []bracket.Participant, seeds map[string]int) []bracket.Participant {
	out := slices.Clone(participants)
	for i := range out {
		if seed, ok := seeds[out[i].ID]; ok {
			out[i].Seed = utils.Ptr(seed)
		}
	}
	return out
}

// SeedByRating sorts by rating descending (ties by id) and numbers seeds from 1.
func SeedByRating(participants []bracket.Participant) []bracket.Participant {
	out := slices.Clone(participants)
	slices.SortStableFunc(out, func(a, b bracket.Participant) int {
		if c := cmp.Compare(ratingKey(b), ratingKey(a)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return renumber(out)
}

// SeedByShuffle permutes the participants with StableShuffle and numbers seeds from 1.
func SeedByShuffle(participants []bracket.Participant, seed string) []bracket.Participant {
	return renumber(StableShuffle(participants, seed))
}

func renumber(participants []bracket.Participant) []bracket.Participant {
	for i := range participants {
		participants[i].Seed = utils.Ptr(i + 1)
	}
	return participants
}
