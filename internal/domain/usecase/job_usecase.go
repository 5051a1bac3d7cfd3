package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/YashKapri/whisper-flow/internal/domain/entity"
	"github.com/YashKapri/whisper-flow/pkg/utils"
	"github.com/google/uuid"
)

const previewLength = 100

type JobRepo interface {
	Create(ctx context.Context, job *entity.Job) error
	Get(ctx context.Context, jobID uint) (*entity.Job, error)
	ListRecent(ctx context.Context, limit int) ([]entity.Job, error)
}

type Uploader interface {
	Upload(ctx context.Context, key string, file []byte) error
}

type Publisher interface {
	Publish(ctx context.Context, body json.RawMessage) error
}

type JobUseCase struct {
	JobRepo   JobRepo
	Storage   Uploader
	Publisher Publisher
}

func NewJobUseCase(repo JobRepo, storage Uploader, pub Publisher) *JobUseCase {
	return &JobUseCase{
		JobRepo:   repo,
		Storage:   storage,
		Publisher: pub,
	}
}

// Submit persists the upload, creates the job record, and dispatches a task
// message. It returns as soon as the message is published; transcription
// happens out of band.
func (u *JobUseCase) Submit(ctx context.Context, fileBytes []byte, fileName string) (*entity.Job, error) {
	if fileName == "" || len(fileBytes) == 0 {
		return nil, entity.ErrEmptyUpload
	}

	sourceKey := "uploads/" + uuid.New().String() + "/" + filepath.Base(fileName)
	if err := u.Storage.Upload(ctx, sourceKey, fileBytes); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	job := &entity.Job{
		Filename:  fileName,
		SourceKey: sourceKey,
		Status:    entity.StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := u.JobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	msgJson, err := utils.ToRawMessage(entity.TaskMessage{
		JobID:     job.ID,
		SourceKey: sourceKey,
	})
	if err != nil {
		return nil, err
	}

	if err := u.publishWithRetry(ctx, msgJson); err != nil {
		return nil, fmt.Errorf("publish task: %w", err)
	}

	return job, nil
}

func (u *JobUseCase) GetStatus(ctx context.Context, jobID uint) (*entity.Job, error) {
	return u.JobRepo.Get(ctx, jobID)
}

// ListHistory returns the most recent jobs, newest first, transcripts
// truncated to a preview.
func (u *JobUseCase) ListHistory(ctx context.Context, limit int) ([]entity.JobSummary, error) {
	jobs, err := u.JobRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]entity.JobSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, entity.JobSummary{
			ID:         job.ID,
			Filename:   job.Filename,
			Status:     job.Status,
			Transcript: previewOf(job.Transcript),
		})
	}
	return summaries, nil
}

func previewOf(transcript string) string {
	if transcript == "" {
		return ""
	}
	runes := []rune(transcript)
	if len(runes) <= previewLength {
		return transcript
	}
	return string(runes[:previewLength]) + "..."
}

func (u *JobUseCase) publishWithRetry(ctx context.Context, msg json.RawMessage) error {
	var (
		baseDelay   = 500 * time.Millisecond
		maxDelay    = 10 * time.Second
		maxAttempts = 5
	)

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := u.Publisher.Publish(ctx, msg); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == maxAttempts {
			break
		}

		backoff := baseDelay << (attempt - 1)
		if backoff > maxDelay {
			backoff = maxDelay
		}

		select {
		case <-time.After(backoff):

		case <-ctx.Done():
			return errors.New("publish canceled by context")
		}
	}

	return lastErr
}
