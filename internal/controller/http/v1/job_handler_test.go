package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/YashKapri/whisper-flow/internal/domain/entity"
	"github.com/gin-gonic/gin"
)

type fakeUseCase struct {
	submitted *entity.Job
	submitErr error
	job       *entity.Job
	getErr    error
	history   []entity.JobSummary

	gotFilename string
	gotBytes    []byte
}

func (f *fakeUseCase) Submit(ctx context.Context, fileBytes []byte, fileName string) (*entity.Job, error) {
	f.gotFilename = fileName
	f.gotBytes = fileBytes
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.submitted, nil
}

func (f *fakeUseCase) GetStatus(ctx context.Context, jobID uint) (*entity.Job, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.job, nil
}

func (f *fakeUseCase) ListHistory(ctx context.Context, limit int) ([]entity.JobSummary, error) {
	if limit < len(f.history) {
		return f.history[:limit], nil
	}
	return f.history, nil
}

func newRouter(uc JobUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewJobHandler(uc).Register(r)
	return r
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &body, mw.FormDataContentType()
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return out
}

// TestUploadReturnsJobID checks a valid submission returns the new job id.
func TestUploadReturnsJobID(t *testing.T) {
	uc := &fakeUseCase{submitted: &entity.Job{ID: 7, Status: entity.StatusPending}}
	r := newRouter(uc)

	body, contentType := multipartBody(t, "audio", "meeting.wav", []byte("RIFF audio"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decodeJSON(t, w)
	if resp["job_id"] != float64(7) {
		t.Fatalf("job_id = %v", resp["job_id"])
	}
	if uc.gotFilename != "meeting.wav" || string(uc.gotBytes) != "RIFF audio" {
		t.Fatalf("usecase received %q / %q", uc.gotFilename, uc.gotBytes)
	}
}

// TestUploadWithoutFilePart checks the 400 contract when no file is sent.
func TestUploadWithoutFilePart(t *testing.T) {
	r := newRouter(&fakeUseCase{})

	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decodeJSON(t, w); resp["error"] != "No audio file part" {
		t.Fatalf("error = %v", resp["error"])
	}
}

// TestUploadEmptyFile checks validation errors map to a 400.
func TestUploadEmptyFile(t *testing.T) {
	uc := &fakeUseCase{submitErr: entity.ErrEmptyUpload}
	r := newRouter(uc)

	body, contentType := multipartBody(t, "audio", "empty.wav", nil)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decodeJSON(t, w); resp["error"] != "No selected file" {
		t.Fatalf("error = %v", resp["error"])
	}
}

// TestStatusUnknownJob checks unknown and malformed ids both return the 404
// contract.
func TestStatusUnknownJob(t *testing.T) {
	r := newRouter(&fakeUseCase{getErr: entity.ErrJobNotFound})

	for _, path := range []string{"/status/999", "/status/not-a-number"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("%s status = %d", path, w.Code)
		}
		if resp := decodeJSON(t, w); resp["error"] != "Not found" {
			t.Fatalf("%s error = %v", path, resp["error"])
		}
	}
}

// TestStatusExposesTranscriptOnlyWhenCompleted checks pending jobs report a
// null transcript and completed jobs carry it.
func TestStatusExposesTranscriptOnlyWhenCompleted(t *testing.T) {
	pending := &fakeUseCase{job: &entity.Job{ID: 1, Status: entity.StatusProcessing, Transcript: "should stay hidden"}}
	r := newRouter(pending)

	req := httptest.NewRequest(http.MethodGet, "/status/1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	resp := decodeJSON(t, w)
	if resp["status"] != string(entity.StatusProcessing) {
		t.Fatalf("status = %v", resp["status"])
	}
	if resp["transcript"] != nil {
		t.Fatalf("transcript = %v, want null", resp["transcript"])
	}

	done := &fakeUseCase{job: &entity.Job{ID: 1, Status: entity.StatusCompleted, Transcript: "hello"}}
	r = newRouter(done)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status/1", nil))

	resp = decodeJSON(t, w)
	if resp["transcript"] != "hello" {
		t.Fatalf("transcript = %v", resp["transcript"])
	}

	// Terminal results are stable across repeated polls.
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/status/1", nil))
	if w.Body.String() != w2.Body.String() {
		t.Fatalf("repeated poll differs: %s vs %s", w.Body.String(), w2.Body.String())
	}
}

// TestHistoryListsSummaries checks the history view passes through the
// usecase summaries.
func TestHistoryListsSummaries(t *testing.T) {
	uc := &fakeUseCase{history: []entity.JobSummary{
		{ID: 2, Filename: "b.wav", Status: entity.StatusCompleted, Transcript: "preview..."},
		{ID: 1, Filename: "a.wav", Status: entity.StatusFailed},
	}}
	r := newRouter(uc)

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 || out[0]["id"] != float64(2) || out[1]["filename"] != "a.wav" {
		t.Fatalf("history = %v", out)
	}
}
