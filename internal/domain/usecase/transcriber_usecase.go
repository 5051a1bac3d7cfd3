package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/YashKapri/whisper-flow/internal/domain/entity"
	"github.com/YashKapri/whisper-flow/internal/transcribe"
)

// SilencePlaceholder stands in for audio the engine produced nothing usable
// for. An empty-but-successful transcription completes the job; it does not
// fail it.
const SilencePlaceholder = "[Silence / Unclear]"

type WorkerJobRepo interface {
	Get(ctx context.Context, jobID uint) (*entity.Job, error)
	UpdateStatus(ctx context.Context, jobID uint, status entity.JobStatus) error
	SetResult(ctx context.Context, jobID uint, transcript string) error
}

type AudioStorage interface {
	Download(ctx context.Context, key, localPath string) error
	Remove(ctx context.Context, key string) error
}

type Engine interface {
	Transcribe(ctx context.Context, audioPath string) (transcribe.Result, error)
}

type TranscriberUseCase struct {
	JobRepo WorkerJobRepo
	Storage AudioStorage
	Engine  Engine
	Filter  *transcribe.Filter
	TempDir string
	Logger  *slog.Logger
}

func NewTranscriberUseCase(repo WorkerJobRepo, storage AudioStorage, engine Engine, filter *transcribe.Filter, tempDir string, logger *slog.Logger) *TranscriberUseCase {
	return &TranscriberUseCase{
		JobRepo: repo,
		Storage: storage,
		Engine:  engine,
		Filter:  filter,
		TempDir: tempDir,
		Logger:  logger,
	}
}

// Process drives one job from Processing to a terminal state. Engine and
// storage failures are recorded as Failed; the input audio is released
// whichever way the job ends. The returned error reports only a failure to
// record the outcome.
func (u *TranscriberUseCase) Process(ctx context.Context, msg entity.TaskMessage) error {
	job, err := u.JobRepo.Get(ctx, msg.JobID)
	if err != nil {
		if errors.Is(err, entity.ErrJobNotFound) {
			u.Logger.Warn("dropping task for unknown job", "job_id", msg.JobID)
			return nil
		}
		return fmt.Errorf("load job %d: %w", msg.JobID, err)
	}

	if err := u.JobRepo.UpdateStatus(ctx, job.ID, entity.StatusProcessing); err != nil {
		return u.fail(ctx, job.ID, msg, "", err)
	}

	localPath := filepath.Join(u.TempDir, fmt.Sprintf("%d-%s", job.ID, filepath.Base(job.Filename)))
	if err := u.Storage.Download(ctx, msg.SourceKey, localPath); err != nil {
		return u.fail(ctx, job.ID, msg, localPath, err)
	}

	result, err := u.Engine.Transcribe(ctx, localPath)
	if err != nil {
		return u.fail(ctx, job.ID, msg, localPath, err)
	}

	text := u.Filter.Clean(result.Text)
	if text == "" {
		text = SilencePlaceholder
	}

	if err := u.JobRepo.SetResult(ctx, job.ID, text); err != nil {
		return u.fail(ctx, job.ID, msg, localPath, err)
	}

	u.cleanup(ctx, msg, localPath)
	u.Logger.Info("job completed", "job_id", job.ID, "language", result.Language)
	return nil
}

// fail marks the job Failed and still releases the input audio. The original
// cause is logged, never rethrown.
func (u *TranscriberUseCase) fail(ctx context.Context, jobID uint, msg entity.TaskMessage, localPath string, cause error) error {
	u.Logger.Error("job failed", "job_id", jobID, "error", cause)
	err := u.JobRepo.UpdateStatus(ctx, jobID, entity.StatusFailed)
	u.cleanup(ctx, msg, localPath)
	if err != nil {
		return fmt.Errorf("mark job %d failed: %w", jobID, err)
	}
	return nil
}

// cleanup removes the local copy and the stored upload. Failures here are
// logged and swallowed; they never change the job's outcome.
func (u *TranscriberUseCase) cleanup(ctx context.Context, msg entity.TaskMessage, localPath string) {
	if localPath != "" {
		if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			u.Logger.Warn("failed to remove local audio", "job_id", msg.JobID, "path", localPath, "error", err)
		}
	}
	if err := u.Storage.Remove(ctx, msg.SourceKey); err != nil {
		u.Logger.Warn("failed to remove stored audio", "job_id", msg.JobID, "key", msg.SourceKey, "error", err)
	}
}
