// Package replay runs YAML command scripts through the engine. Scripts are
// used as fixtures and to reproduce a tournament history step by step.
package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/engine"
	"github.com/AdamBeresnev/bracket-engine/internal/validate"
	"gopkg.in/yaml.v3"
)

const defaultStep = time.Minute

type Script struct {
	Start time.Time      `yaml:"start"`
	Step  time.Duration  `yaml:"step"`
	Actor *bracket.Actor `yaml:"actor"`
	Steps []Step         `yaml:"commands"`
}

// Step is one scripted command. At and Actor override the script defaults.
type Step struct {
	Type    engine.CommandType `yaml:"type"`
	At      *time.Time         `yaml:"at"`
	Actor   *bracket.Actor     `yaml:"actor"`
	Payload yaml.Node          `yaml:"payload"`
}

// Command converts the YAML payload into the typed command.
func (s Step) Command() (engine.Command, error) {
	env := engine.Envelope{Type: s.Type}
	if !s.Payload.IsZero() {
		var payload any
		if err := s.Payload.Decode(&payload); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", s.Type, err)
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("convert %s payload: %w", s.Type, err)
		}
		env.Payload = data
	}
	return env.Command()
}

func Parse(r io.Reader) (*Script, error) {
	var s Script
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	return &s, nil
}

func Load(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

type StepReport struct {
	Index     int                `json:"index"`
	Type      engine.CommandType `json:"type"`
	At        time.Time          `json:"at"`
	Committed bool               `json:"committed"`
	Version   int                `json:"version"`
	Events    []bracket.Event    `json:"events"`
	Rejection *validate.Issue    `json:"rejection,omitempty"`
}

type Report struct {
	State      *bracket.Tournament `json:"state"`
	Validation validate.Report     `json:"validation"`
	Steps      []StepReport        `json:"steps"`
}

var ErrRejected = errors.New("scripted command rejected")

// Run applies every step in order. Rejected commands leave the state as it
// was; with strict set the first rejection stops the run with ErrRejected.
func Run(e *engine.Engine, s *Script, strict bool) (*Report, error) {
	step := s.Step
	if step <= 0 {
		step = defaultStep
	}

	report := &Report{Steps: []StepReport{}}
	var state *bracket.Tournament
	at := s.Start.UTC()
	for i, st := range s.Steps {
		if st.At != nil {
			at = st.At.UTC()
		} else if i > 0 {
			at = at.Add(step)
		}

		cmd, err := st.Command()
		if err != nil {
			return report, fmt.Errorf("step %d: %w", i+1, err)
		}
		actor := s.Actor
		if st.Actor != nil {
			actor = st.Actor
		}

		res := e.Apply(state, cmd, at, actor)
		sr := StepReport{Index: i + 1, Type: cmd.Type(), At: at, Committed: res.Committed, Events: res.Events}
		if res.Committed {
			state = res.State
		} else if errs := res.Validation.Errors(); len(errs) > 0 {
			sr.Rejection = &errs[0]
		}
		if state != nil {
			sr.Version = state.Version
		}
		report.Steps = append(report.Steps, sr)

		if !res.Committed && strict {
			report.State = state
			return report, fmt.Errorf("step %d: %w: %v", i+1, ErrRejected, res.Err())
		}
	}

	report.State = state
	if state != nil {
		report.Validation = e.Validate(state)
	}
	return report, nil
}
