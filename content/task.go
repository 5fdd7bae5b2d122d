package content

import (
	"fmt"
	"regexp"
)

const SeedInherit = "inherit"

type CheckerType = string

const (
	CheckerString  CheckerType = "string"
	CheckerRegex   CheckerType = "regex"
	CheckerProgram CheckerType = "program"
)

var (
	seedRe = regexp.MustCompile(`^[0-9a-f]{16}$`)
	hintRe = regexp.MustCompile(`^[0-9a-f]{32}$`)
)

// FlagChecker is one entry of a task's ordered checker list.
type FlagChecker struct {
	Type CheckerType `json:"type"`
	Data string      `json:"data"`
}

type Hint struct {
	HexId string `json:"hexid"`
	Text  string `json:"text"`
	Cost  int    `json:"cost"`
}

// Task is a challenge definition as stored in the content store. Flags may
// be instance-specific: the record under a generated instance directory
// carries the checkers produced by the generator, not the raw ones.
type Task struct {
	Id     int           `json:"id"`
	Title  string        `json:"title"`
	Text   string        `json:"text"`
	Value  int           `json:"value"`
	Labels []string      `json:"labels"`
	Flags  []FlagChecker `json:"flags"`
	Group  int           `json:"group"`
	Order  int           `json:"order"`
	Seed   string        `json:"seed"`
	Hints  []Hint        `json:"hints"`
}

func (t *Task) Hint(hexId string) *Hint {
	for i := range t.Hints {
		if t.Hints[i].HexId == hexId {
			return &t.Hints[i]
		}
	}
	return nil
}

func (t *Task) Validate() error {
	if t.Id <= 0 {
		return &ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	if t.Value < 0 {
		return &ValidationError{Field: "value", Reason: "must not be negative"}
	}
	if t.Group < 0 {
		return &ValidationError{Field: "group", Reason: "must be a group id or 0"}
	}
	if err := validateSeed(t.Seed); err != nil {
		return err
	}
	for _, flag := range t.Flags {
		switch flag.Type {
		case CheckerString, CheckerRegex, CheckerProgram:
		default:
			return &ValidationError{Field: "flags", Reason: fmt.Sprintf("unknown checker type %q", flag.Type)}
		}
	}
	seen := make(map[string]bool)
	for _, hint := range t.Hints {
		if !hintRe.MatchString(hint.HexId) {
			return &ValidationError{Field: "hints", Reason: fmt.Sprintf("hexid %q is not 32 lowercase hex characters", hint.HexId)}
		}
		if seen[hint.HexId] {
			return &ValidationError{Field: "hints", Reason: fmt.Sprintf("duplicate hexid %q", hint.HexId)}
		}
		seen[hint.HexId] = true
		if hint.Cost < 0 {
			return &ValidationError{Field: "hints", Reason: "cost must not be negative"}
		}
	}
	return nil
}

func validateSeed(seed string) error {
	if seed == SeedInherit || seedRe.MatchString(seed) {
		return nil
	}
	return &ValidationError{Field: "seed", Reason: "must be 16 lowercase hex characters or \"inherit\""}
}
