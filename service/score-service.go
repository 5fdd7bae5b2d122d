package service

import (
	"sort"
	"time"

	"ctfhost/repository"
)

type ScoreboardEntry struct {
	TeamName  string     `json:"team_name"`
	FullName  string     `json:"full_name"`
	Points    int        `json:"points"`
	Solves    int        `json:"solves"`
	LastSolve *time.Time `json:"last_solve,omitempty"`
}

type ScoreService struct {
	teamService          *TeamService
	submissionRepository *repository.SubmissionRepository
}

func NewScoreService() *ScoreService {
	return &ScoreService{
		teamService:          NewTeamService(),
		submissionRepository: repository.NewSubmissionRepository(),
	}
}

// GetScoreboard computes the public standings. Points use the same derived
// balance as the team's own view; ties break by earliest last solve.
func (e *ScoreService) GetScoreboard() ([]*ScoreboardEntry, error) {
	teams, err := e.teamService.GetAllTeams()
	if err != nil {
		return nil, err
	}
	entries := make([]*ScoreboardEntry, 0, len(teams))
	for _, team := range teams {
		points, err := e.teamService.Points(team.Id)
		if err != nil {
			return nil, err
		}
		solves, err := e.submissionRepository.GetSolvesForTeam(team.Id)
		if err != nil {
			return nil, err
		}
		entry := &ScoreboardEntry{
			TeamName: team.Name,
			FullName: team.FullName,
			Points:   points,
			Solves:   len(solves),
		}
		if len(solves) > 0 {
			last := solves[len(solves)-1].Timestamp
			entry.LastSolve = &last
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		li, lj := entries[i].LastSolve, entries[j].LastSolve
		if li != nil && lj != nil && !li.Equal(*lj) {
			return li.Before(*lj)
		}
		if (li == nil) != (lj == nil) {
			return lj == nil
		}
		return entries[i].TeamName < entries[j].TeamName
	})
	return entries, nil
}
