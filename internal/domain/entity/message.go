package entity

// TaskMessage is the dispatch unit published at submission time and consumed
// by the worker. Both binaries share this struct, so the gateway never needs
// to import worker code to enqueue work.
type TaskMessage struct {
	JobID     uint   `json:"job_id"`
	SourceKey string `json:"source_key"`
}
