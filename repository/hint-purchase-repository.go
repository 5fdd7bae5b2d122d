package repository

import (
	"errors"
	"time"

	"ctfhost/config"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotEnoughPoints = errors.New("not enough points to purchase this hint")

// HintPurchase rows are capabilities: the presence of a row means the team
// has access to the hint. The unique index keeps a concurrent double
// purchase from inserting twice.
type HintPurchase struct {
	Id        int    `gorm:"primaryKey"`
	TeamId    int    `gorm:"not null;uniqueIndex:idx_hint_purchase_key"`
	TaskId    int    `gorm:"not null;uniqueIndex:idx_hint_purchase_key"`
	HintId    string `gorm:"not null;uniqueIndex:idx_hint_purchase_key"`
	Cost      int    `gorm:"not null"`
	Timestamp time.Time

	Team *Team `gorm:"foreignKey:TeamId;constraint:OnDelete:CASCADE;"`
}

type HintPurchaseRepository struct {
	DB *gorm.DB
}

func NewHintPurchaseRepository() *HintPurchaseRepository {
	return &HintPurchaseRepository{DB: config.DatabaseConnection()}
}

func (r *HintPurchaseRepository) HasPurchase(teamId, taskId int, hintId string) (bool, error) {
	var count int64
	result := r.DB.Model(&HintPurchase{}).
		Where("team_id = ? AND task_id = ? AND hint_id = ?", teamId, taskId, hintId).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// Purchase checks the team's derived balance and inserts the purchase row
// in one transaction, holding a lock on the team row so two concurrent
// purchases cannot both spend the same points.
func (r *HintPurchaseRepository) Purchase(teamId, taskId int, hintId string, cost int) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var team Team
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&team, teamId)
		if result.Error != nil {
			return result.Error
		}

		var alreadyPurchased int64
		result = tx.Model(&HintPurchase{}).
			Where("team_id = ? AND task_id = ? AND hint_id = ?", teamId, taskId, hintId).
			Count(&alreadyPurchased)
		if result.Error != nil {
			return result.Error
		}
		if alreadyPurchased > 0 {
			// Memoized access, no second charge.
			return nil
		}

		var earned int
		result = tx.Model(&Submission{}).
			Where("team_id = ?", teamId).
			Select("COALESCE(SUM(points), 0)").
			Scan(&earned)
		if result.Error != nil {
			return result.Error
		}
		var spent int
		result = tx.Model(&HintPurchase{}).
			Where("team_id = ?", teamId).
			Select("COALESCE(SUM(cost), 0)").
			Scan(&spent)
		if result.Error != nil {
			return result.Error
		}
		if earned-spent < cost {
			return ErrNotEnoughPoints
		}

		return tx.Create(&HintPurchase{
			TeamId:    teamId,
			TaskId:    taskId,
			HintId:    hintId,
			Cost:      cost,
			Timestamp: time.Now(),
		}).Error
	})
}

func (r *HintPurchaseRepository) GetPurchasesForTeam(teamId int) ([]*HintPurchase, error) {
	var purchases []*HintPurchase
	result := r.DB.Find(&purchases, "team_id = ?", teamId)
	if result.Error != nil {
		return nil, result.Error
	}
	return purchases, nil
}

// TotalCost sums everything the team has spent on hints.
func (r *HintPurchaseRepository) TotalCost(teamId int) (int, error) {
	var total int
	result := r.DB.Model(&HintPurchase{}).
		Where("team_id = ?", teamId).
		Select("COALESCE(SUM(cost), 0)").
		Scan(&total)
	if result.Error != nil {
		return 0, result.Error
	}
	return total, nil
}

func (r *HintPurchaseRepository) DeleteForTask(taskId int) error {
	result := r.DB.Delete(&HintPurchase{}, "task_id = ?", taskId)
	return result.Error
}
