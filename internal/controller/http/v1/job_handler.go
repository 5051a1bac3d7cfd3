package v1

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/YashKapri/whisper-flow/internal/domain/entity"
	"github.com/gin-gonic/gin"
)

const historyLimit = 50

type JobUseCase interface {
	Submit(ctx context.Context, fileBytes []byte, fileName string) (*entity.Job, error)
	GetStatus(ctx context.Context, jobID uint) (*entity.Job, error)
	ListHistory(ctx context.Context, limit int) ([]entity.JobSummary, error)
}

type JobHandler struct {
	UseCase JobUseCase
}

func NewJobHandler(u JobUseCase) *JobHandler {
	return &JobHandler{UseCase: u}
}

func (h *JobHandler) Register(r gin.IRouter) {
	r.POST("/upload", h.Upload)
	r.GET("/status/:job_id", h.Status)
	r.GET("/history", h.History)
}

func (h *JobHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No audio file part"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	fileBytes, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	job, err := h.UseCase.Submit(c.Request.Context(), fileBytes, file.Filename)
	if err != nil {
		if errors.Is(err, entity.ErrEmptyUpload) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No selected file"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Upload successful!", "job_id": job.ID})
}

func (h *JobHandler) Status(c *gin.Context) {
	jobID, err := strconv.ParseUint(c.Param("job_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	job, err := h.UseCase.GetStatus(c.Request.Context(), uint(jobID))
	if err != nil {
		if errors.Is(err, entity.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Transcript is exposed only once the job has completed.
	var transcript *string
	if job.Status == entity.StatusCompleted {
		transcript = &job.Transcript
	}
	c.JSON(http.StatusOK, gin.H{"status": job.Status, "transcript": transcript})
}

func (h *JobHandler) History(c *gin.Context) {
	summaries, err := h.UseCase.ListHistory(c.Request.Context(), historyLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summaries)
}
