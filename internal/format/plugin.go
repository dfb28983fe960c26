package format

import (
	"slices"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
)

type GenerateInput struct {
	StageID      string
	StageName    string
	Participants []bracket.Participant
	Settings     bracket.StageSettings
	Options      bracket.StageOptions
	RNGSeed      string
	At           time.Time
}

type Generated struct {
	Stage   bracket.Stage
	Matches []bracket.Match
}

// ResultInput carries a recorded result. Tournament is a working copy owned
// by the caller and is mutated in place.
type ResultInput struct {
	Tournament *bracket.Tournament
	MatchID    string
	Score      *bracket.MatchScore
	Outcome    bracket.Outcome
	At         time.Time
}

// Plugin builds and advances one competition format.
type Plugin interface {
	Name() bracket.Format
	GenerateStage(in GenerateInput) Generated
	ProcessMatchResult(in ResultInput) []bracket.Event
}

type Registry struct {
	plugins map[bracket.Format]Plugin
}

func NewRegistry(plugins ...Plugin) *Registry {
	r := &Registry{plugins: make(map[bracket.Format]Plugin, len(plugins))}
	for _, p := range plugins {
		r.Register(p)
	}
	return r
}

// DefaultRegistry returns a registry with every built-in format.
func DefaultRegistry() *Registry {
	return NewRegistry(
		SingleElimination{},
		DoubleElimination{},
		Swiss{},
		RoundRobin{},
		Ladder{},
	)
}

// Register adds p, replacing any plugin with the same name.
func (r *Registry) Register(p Plugin) {
	r.plugins[p.Name()] = p
}

func (r *Registry) Get(name bracket.Format) (Plugin, bool) {
	p, ok := r.plugins[name]
	return p, ok
}

// Formats returns the registered names in sorted order.
func (r *Registry) Formats() []bracket.Format {
	out := make([]bracket.Format, 0, len(r.plugins))
	for name := range r.plugins {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
