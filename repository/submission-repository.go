package repository

import (
	"errors"
	"time"

	"ctfhost/config"

	"gorm.io/gorm"
)

// ErrTaskAlreadySolved guards the submission ledger against double scoring:
// the first correct submission for a (team, task) pair is authoritative.
var ErrTaskAlreadySolved = errors.New("task already solved by this team")

// Submission is one row of the append-only flag submission ledger.
type Submission struct {
	Id        int       `gorm:"primaryKey"`
	TeamId    int       `gorm:"not null;index"`
	TaskId    int       `gorm:"not null;index"`
	Flag      string    `gorm:"not null"`
	Correct   bool      `gorm:"not null"`
	Points    int       `gorm:"not null"`
	Timestamp time.Time `gorm:"not null"`

	Team *Team `gorm:"foreignKey:TeamId;constraint:OnDelete:CASCADE;"`
}

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository() *SubmissionRepository {
	return &SubmissionRepository{DB: config.DatabaseConnection()}
}

// AddSubmission appends a submission, rejecting it when a correct one
// already exists for the same (team, task). Incorrect repeats are always
// recorded. The check and the insert run in one transaction.
func (r *SubmissionRepository) AddSubmission(submission *Submission) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		result := tx.Model(&Submission{}).
			Where("team_id = ? AND task_id = ? AND correct = true", submission.TeamId, submission.TaskId).
			Count(&count)
		if result.Error != nil {
			return result.Error
		}
		if count > 0 {
			return ErrTaskAlreadySolved
		}
		return tx.Create(submission).Error
	})
}

func (r *SubmissionRepository) HasCorrectSubmission(teamId, taskId int) (bool, error) {
	var count int64
	result := r.DB.Model(&Submission{}).
		Where("team_id = ? AND task_id = ? AND correct = true", teamId, taskId).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

func (r *SubmissionRepository) GetSubmissionsForTeam(teamId int) ([]*Submission, error) {
	var submissions []*Submission
	result := r.DB.Order("timestamp").Find(&submissions, "team_id = ?", teamId)
	if result.Error != nil {
		return nil, result.Error
	}
	return submissions, nil
}

func (r *SubmissionRepository) GetSolvesForTeam(teamId int) ([]*Submission, error) {
	var submissions []*Submission
	result := r.DB.Order("timestamp").Find(&submissions, "team_id = ? AND correct = true", teamId)
	if result.Error != nil {
		return nil, result.Error
	}
	return submissions, nil
}

// CountSolves returns how many teams have solved the task. Used to detect
// first bloods.
func (r *SubmissionRepository) CountSolves(taskId int) (int64, error) {
	var count int64
	result := r.DB.Model(&Submission{}).
		Where("task_id = ? AND correct = true", taskId).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}

// TotalPoints sums awarded points over the team's ledger.
func (r *SubmissionRepository) TotalPoints(teamId int) (int, error) {
	var total int
	result := r.DB.Model(&Submission{}).
		Where("team_id = ?", teamId).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total)
	if result.Error != nil {
		return 0, result.Error
	}
	return total, nil
}

// DeleteForTask removes the submission history of a deleted task.
func (r *SubmissionRepository) DeleteForTask(taskId int) error {
	result := r.DB.Delete(&Submission{}, "task_id = ?", taskId)
	return result.Error
}
