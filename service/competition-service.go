package service

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"ctfhost/config"
	"ctfhost/content"
)

// Competition is the installation-wide schedule: submission window and
// whether teams may register themselves.
type Competition struct {
	StartTime                 int64 `json:"start_time"`
	EndTime                   int64 `json:"end_time"`
	AllowTeamSelfRegistration bool  `json:"allow_team_self_registration"`
}

func (c *Competition) IsRunning(now time.Time) bool {
	unix := now.Unix()
	return unix >= c.StartTime && unix < c.EndTime
}

type CompetitionService struct {
	store *content.Store
}

func NewCompetitionService() *CompetitionService {
	cfg := config.Env()
	return &CompetitionService{
		store: content.NewStore(cfg.ContentRoot, cfg.GenPresetsPath),
	}
}

// GetCompetition reads the config, creating a closed-window default on
// first access.
func (e *CompetitionService) GetCompetition() (*Competition, error) {
	path := e.store.CompetitionConfigPath()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		now := time.Now().Unix()
		competition := &Competition{StartTime: now, EndTime: now, AllowTeamSelfRegistration: false}
		if err := e.SaveCompetition(competition); err != nil {
			return nil, err
		}
		return competition, nil
	}
	if err != nil {
		return nil, err
	}
	var competition Competition
	if err := json.Unmarshal(data, &competition); err != nil {
		return nil, err
	}
	return &competition, nil
}

func (e *CompetitionService) SaveCompetition(competition *Competition) error {
	path := e.store.CompetitionConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(competition, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
