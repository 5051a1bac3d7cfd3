package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// OpenAIBackend speaks the OpenAI-compatible audio.transcriptions API. It is
// the config-selected alternative for workers without a local model.
type OpenAIBackend struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewOpenAIBackend(baseURL, apiKey, model string) (*OpenAIBackend, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("api key is required")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "whisper-1"
	}
	return &OpenAIBackend{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}, nil
}

type transcriptionResp struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (o *OpenAIBackend) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return Result{}, &EngineError{Backend: "openai", Err: err}
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", o.model); err != nil {
		return Result{}, &EngineError{Backend: "openai", Err: err}
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return Result{}, &EngineError{Backend: "openai", Err: err}
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return Result{}, &EngineError{Backend: "openai", Err: err}
	}
	if _, err := io.Copy(fw, f); err != nil {
		return Result{}, &EngineError{Backend: "openai", Err: err}
	}
	if err := mw.Close(); err != nil {
		return Result{}, &EngineError{Backend: "openai", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return Result{}, &EngineError{Backend: "openai", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := o.client.Do(req)
	if err != nil {
		return Result{}, &EngineError{Backend: "openai", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return Result{}, &EngineError{Backend: "openai", Err: fmt.Errorf("http %d: %s", resp.StatusCode, tailOf(string(b)))}
	}

	var parsed transcriptionResp
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, &EngineError{Backend: "openai", Err: fmt.Errorf("parse response: %w", err)}
	}

	return Result{Text: strings.TrimSpace(parsed.Text), Language: parsed.Language}, nil
}
