package service

import (
	"errors"
	"fmt"

	"ctfhost/repository"
	"ctfhost/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrInvalidCredentials = errors.New("invalid team name or password")

type TeamService struct {
	teamRepository         *repository.TeamRepository
	submissionRepository   *repository.SubmissionRepository
	hintPurchaseRepository *repository.HintPurchaseRepository
}

func NewTeamService() *TeamService {
	return &TeamService{
		teamRepository:         repository.NewTeamRepository(),
		submissionRepository:   repository.NewSubmissionRepository(),
		hintPurchaseRepository: repository.NewHintPurchaseRepository(),
	}
}

func (e *TeamService) GetTeamById(teamId int) (*repository.Team, error) {
	return e.teamRepository.GetTeamById(teamId)
}

func (e *TeamService) GetTeamByName(name string) (*repository.Team, error) {
	return e.teamRepository.GetTeamByName(name)
}

func (e *TeamService) GetAllTeams() ([]*repository.Team, error) {
	return e.teamRepository.FindAll()
}

// Register creates a team with a fresh token seed. The seed never changes
// afterwards: generated instance paths depend on it.
func (e *TeamService) Register(name, fullName, email, password string) (*repository.Team, error) {
	if name == "" {
		return nil, fmt.Errorf("team name must not be empty")
	}
	if _, err := e.teamRepository.GetTeamByName(name); err == nil {
		return nil, fmt.Errorf("team %q already exists", name)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return e.teamRepository.SaveTeam(&repository.Team{
		Name:         name,
		FullName:     fullName,
		Email:        email,
		PasswordHash: string(hash),
		TokenSeed:    utils.RandomHex(16),
	})
}

func (e *TeamService) Login(name, password string) (*repository.Team, error) {
	team, err := e.teamRepository.GetTeamByName(name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(team.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return team, nil
}

// Points is the team's derived balance: awarded submission points minus
// hint purchase costs. The scoreboard and the team's own view both use
// this.
func (e *TeamService) Points(teamId int) (int, error) {
	earned, err := e.submissionRepository.TotalPoints(teamId)
	if err != nil {
		return 0, err
	}
	spent, err := e.hintPurchaseRepository.TotalCost(teamId)
	if err != nil {
		return 0, err
	}
	return earned - spent, nil
}

func (e *TeamService) GetPurchasedHints(teamId int) ([]*repository.HintPurchase, error) {
	return e.hintPurchaseRepository.GetPurchasesForTeam(teamId)
}
