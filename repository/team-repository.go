package repository

import (
	"ctfhost/config"

	"gorm.io/gorm"
)

type Team struct {
	Id           int    `gorm:"primaryKey"`
	Name         string `gorm:"not null;uniqueIndex"`
	FullName     string `gorm:"not null"`
	Email        string `gorm:"not null"`
	PasswordHash string `gorm:"not null"`
	// TokenSeed feeds the generation token derivation; immutable once issued.
	TokenSeed string `gorm:"not null"`
	IsAdmin   bool   `gorm:"not null;default:false"`
}

type TeamRepository struct {
	DB *gorm.DB
}

func NewTeamRepository() *TeamRepository {
	return &TeamRepository{DB: config.DatabaseConnection()}
}

func (r *TeamRepository) GetTeamById(teamId int) (*Team, error) {
	var team Team
	result := r.DB.First(&team, teamId)
	if result.Error != nil {
		return nil, result.Error
	}
	return &team, nil
}

func (r *TeamRepository) GetTeamByName(name string) (*Team, error) {
	var team Team
	result := r.DB.First(&team, "name = ?", name)
	if result.Error != nil {
		return nil, result.Error
	}
	return &team, nil
}

func (r *TeamRepository) SaveTeam(team *Team) (*Team, error) {
	result := r.DB.Save(team)
	if result.Error != nil {
		return nil, result.Error
	}
	return team, nil
}

func (r *TeamRepository) FindAll() ([]*Team, error) {
	var teams []*Team
	result := r.DB.Order("name").Find(&teams)
	if result.Error != nil {
		return nil, result.Error
	}
	return teams, nil
}

func (r *TeamRepository) Delete(teamId int) error {
	result := r.DB.Delete(&Team{}, teamId)
	return result.Error
}
