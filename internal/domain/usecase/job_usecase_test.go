package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/YashKapri/whisper-flow/internal/domain/entity"
)

type fakeJobRepo struct {
	created []*entity.Job
	recent  []entity.Job
	nextID  uint
}

func (f *fakeJobRepo) Create(ctx context.Context, job *entity.Job) error {
	f.nextID++
	job.ID = f.nextID
	f.created = append(f.created, job)
	return nil
}

func (f *fakeJobRepo) Get(ctx context.Context, jobID uint) (*entity.Job, error) {
	for _, job := range f.created {
		if job.ID == jobID {
			return job, nil
		}
	}
	return nil, entity.ErrJobNotFound
}

func (f *fakeJobRepo) ListRecent(ctx context.Context, limit int) ([]entity.Job, error) {
	if limit < len(f.recent) {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

type fakeUploader struct {
	keys []string
	err  error
}

func (f *fakeUploader) Upload(ctx context.Context, key string, file []byte) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	return nil
}

type fakePublisher struct {
	published []json.RawMessage
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, body json.RawMessage) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, body)
	return nil
}

// TestSubmitCreatesJobAndPublishesTask checks the submission flow end to
// end: upload, Pending record, typed task message.
func TestSubmitCreatesJobAndPublishesTask(t *testing.T) {
	repo := &fakeJobRepo{}
	uploader := &fakeUploader{}
	publisher := &fakePublisher{}
	uc := NewJobUseCase(repo, uploader, publisher)

	job, err := uc.Submit(context.Background(), []byte("RIFF..."), "meeting.wav")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if job.ID == 0 {
		t.Fatal("job id not assigned")
	}
	if job.Status != entity.StatusPending {
		t.Fatalf("status = %s, want Pending", job.Status)
	}
	if len(uploader.keys) != 1 || !strings.HasPrefix(uploader.keys[0], "uploads/") || !strings.HasSuffix(uploader.keys[0], "/meeting.wav") {
		t.Fatalf("upload key = %v", uploader.keys)
	}

	if len(publisher.published) != 1 {
		t.Fatalf("published = %d messages, want 1", len(publisher.published))
	}
	var msg entity.TaskMessage
	if err := json.Unmarshal(publisher.published[0], &msg); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if msg.JobID != job.ID || msg.SourceKey != uploader.keys[0] {
		t.Fatalf("task message = %+v", msg)
	}
}

// TestSubmitRejectsEmptyUpload checks validation failures create nothing.
func TestSubmitRejectsEmptyUpload(t *testing.T) {
	repo := &fakeJobRepo{}
	uc := NewJobUseCase(repo, &fakeUploader{}, &fakePublisher{})

	if _, err := uc.Submit(context.Background(), nil, "meeting.wav"); !errors.Is(err, entity.ErrEmptyUpload) {
		t.Fatalf("error = %v, want ErrEmptyUpload", err)
	}
	if _, err := uc.Submit(context.Background(), []byte("data"), ""); !errors.Is(err, entity.ErrEmptyUpload) {
		t.Fatalf("error = %v, want ErrEmptyUpload", err)
	}
	if len(repo.created) != 0 {
		t.Fatalf("jobs created = %d, want 0", len(repo.created))
	}
}

// TestSubmitStorageFailure checks an upload error surfaces before any job
// record exists.
func TestSubmitStorageFailure(t *testing.T) {
	repo := &fakeJobRepo{}
	uploader := &fakeUploader{err: errors.New("bucket unavailable")}
	uc := NewJobUseCase(repo, uploader, &fakePublisher{})

	if _, err := uc.Submit(context.Background(), []byte("data"), "a.wav"); err == nil {
		t.Fatal("expected storage error")
	}
	if len(repo.created) != 0 {
		t.Fatalf("jobs created = %d, want 0", len(repo.created))
	}
}

// TestSubmitPublishRetryStopsOnCancel checks a cancelled context ends the
// retry loop instead of sleeping through the backoff schedule.
func TestSubmitPublishRetryStopsOnCancel(t *testing.T) {
	repo := &fakeJobRepo{}
	publisher := &fakePublisher{err: errors.New("broker down")}
	uc := NewJobUseCase(repo, &fakeUploader{}, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := uc.Submit(ctx, []byte("data"), "a.wav"); err == nil {
		t.Fatal("expected publish error")
	}
}

// TestListHistoryTruncatesPreviews checks newest-first output with bounded
// transcript previews.
func TestListHistoryTruncatesPreviews(t *testing.T) {
	long := strings.Repeat("word ", 40)
	repo := &fakeJobRepo{recent: []entity.Job{
		{ID: 3, Filename: "c.wav", Status: entity.StatusCompleted, Transcript: long},
		{ID: 2, Filename: "b.wav", Status: entity.StatusFailed},
		{ID: 1, Filename: "a.wav", Status: entity.StatusCompleted, Transcript: "short"},
	}}
	uc := NewJobUseCase(repo, &fakeUploader{}, &fakePublisher{})

	summaries, err := uc.ListHistory(context.Background(), 50)
	if err != nil {
		t.Fatalf("ListHistory() error = %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("summaries = %d, want 3", len(summaries))
	}
	if summaries[0].ID != 3 || summaries[2].ID != 1 {
		t.Fatalf("ordering broken: %+v", summaries)
	}
	if !strings.HasSuffix(summaries[0].Transcript, "...") {
		t.Fatalf("long transcript not truncated: %q", summaries[0].Transcript)
	}
	if len([]rune(summaries[0].Transcript)) != previewLength+3 {
		t.Fatalf("preview length = %d", len([]rune(summaries[0].Transcript)))
	}
	if summaries[2].Transcript != "short" {
		t.Fatalf("short transcript changed: %q", summaries[2].Transcript)
	}
	if summaries[1].Transcript != "" {
		t.Fatalf("failed job preview = %q, want empty", summaries[1].Transcript)
	}
}
