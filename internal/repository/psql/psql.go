package psql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YashKapri/whisper-flow/internal/domain/entity"
	"gorm.io/gorm"
)

var terminalStatuses = []entity.JobStatus{entity.StatusCompleted, entity.StatusFailed}

type GormJobRepo struct {
	db *gorm.DB
}

func NewGormJobRepo(db *gorm.DB) *GormJobRepo {
	return &GormJobRepo{db: db}
}

func (r *GormJobRepo) Create(ctx context.Context, job *entity.Job) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (r *GormJobRepo) Get(ctx context.Context, jobID uint) (*entity.Job, error) {
	var job entity.Job
	if err := r.db.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrJobNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &job, nil
}

// UpdateStatus moves a job forward in its lifecycle. Terminal jobs are never
// rewritten and an unknown id is a no-op, so redelivered or stale updates
// cannot regress the state machine.
func (r *GormJobRepo) UpdateStatus(ctx context.Context, jobID uint, status entity.JobStatus) error {
	err := r.db.WithContext(ctx).Model(&entity.Job{}).
		Where("id = ? AND status NOT IN ?", jobID, terminalStatuses).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

// SetResult stores the transcript and the Completed status in a single
// UPDATE, so a concurrent reader sees either neither or both.
func (r *GormJobRepo) SetResult(ctx context.Context, jobID uint, transcript string) error {
	err := r.db.WithContext(ctx).Model(&entity.Job{}).
		Where("id = ? AND status NOT IN ?", jobID, terminalStatuses).
		Updates(map[string]interface{}{
			"status":     entity.StatusCompleted,
			"transcript": transcript,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("set result: %w", err)
	}
	return nil
}

func (r *GormJobRepo) ListRecent(ctx context.Context, limit int) ([]entity.Job, error) {
	var jobs []entity.Job
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}
