package entity

import "errors"

var (
	// ErrEmptyUpload is returned when a submission carries no filename or no payload.
	ErrEmptyUpload = errors.New("empty upload")

	// ErrJobNotFound is returned when a job id is unknown to the store.
	ErrJobNotFound = errors.New("job not found")
)
