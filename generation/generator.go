package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ctfhost/content"
)

// Request carries everything a generator may use to build a team-specific
// task instance. OutDir is the staged instance directory: whatever the
// generator writes there is published atomically together with the
// returned task record.
type Request struct {
	Task      *content.Task
	Token     string
	Team      string
	SourceDir string
	OutDir    string
	Params    map[string]string
}

// Generator turns a raw task definition into a team-specific variant.
// Generators are trusted, operator-supplied code; there is no sandbox
// around them.
type Generator interface {
	Generate(ctx context.Context, req *Request) (*content.Task, error)
}

// GenConfig is the parsed form of a task's generation config file.
type GenConfig struct {
	Generator string            `json:"generator"`
	Params    map[string]string `json:"params,omitempty"`
}

func ParseGenConfig(text string) (*GenConfig, error) {
	var cfg GenConfig
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &cfg); err != nil {
		return nil, fmt.Errorf("malformed generation config: %w", err)
	}
	if cfg.Generator == "" {
		return nil, fmt.Errorf("generation config names no generator")
	}
	return &cfg, nil
}
