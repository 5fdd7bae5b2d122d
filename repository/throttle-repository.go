package repository

import (
	"time"

	"ctfhost/config"

	"gorm.io/gorm"
)

// SubmissionThrottle holds one row per team with the time of its last flag
// submission, whatever the task. Keeping it in the database rather than in
// a process-wide map makes the cooldown hold across server instances.
type SubmissionThrottle struct {
	TeamId         int       `gorm:"primaryKey"`
	LastSubmission time.Time `gorm:"not null"`
}

type ThrottleRepository struct {
	DB *gorm.DB
}

func NewThrottleRepository() *ThrottleRepository {
	return &ThrottleRepository{DB: config.DatabaseConnection()}
}

// TryAcquire records now as the team's last submission time if the
// previous one is at least interval old, as a single conditional upsert.
// Returns false when the team is still cooling down. The attempt consumes
// the cooldown even when the subsequent flag check fails.
func (r *ThrottleRepository) TryAcquire(teamId int, interval time.Duration) (bool, error) {
	now := time.Now()
	cutoff := now.Add(-interval)
	result := r.DB.Exec(`
		INSERT INTO ctfhost.submission_throttles (team_id, last_submission)
		VALUES (?, ?)
		ON CONFLICT (team_id) DO UPDATE
		SET last_submission = EXCLUDED.last_submission
		WHERE submission_throttles.last_submission <= ?`,
		teamId, now, cutoff)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Reset clears the team's cooldown. Used by admin tooling and tests.
func (r *ThrottleRepository) Reset(teamId int) error {
	result := r.DB.Delete(&SubmissionThrottle{}, "team_id = ?", teamId)
	return result.Error
}
