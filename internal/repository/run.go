package repository

import (
	"coldcopy/internal/db"
	"coldcopy/internal/model"
)

type RunRepository struct{}

func NewRunRepository() *RunRepository {
	return &RunRepository{}
}

func (r *RunRepository) Save(record *model.RunRecord) error {
	return db.DB.Create(record).Error
}

func (r *RunRepository) GetRecent(limit int) ([]model.RunRecord, error) {
	var records []model.RunRecord
	result := db.DB.
		Order("started_at desc").
		Limit(limit).
		Find(&records)

	return records, result.Error
}

type Stats struct {
	Total  int64
	Failed int64
}

func (r *RunRepository) GetStats() (Stats, error) {
	var stats Stats
	if err := db.DB.Model(&model.RunRecord{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}

	if err := db.DB.Model(&model.RunRecord{}).
		Where("err_msg <> ''").
		Count(&stats.Failed).Error; err != nil {
		return stats, err
	}

	return stats, nil
}
