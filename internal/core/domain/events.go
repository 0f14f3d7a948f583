package domain

import "time"

// TextFiltered is emitted once a document's filtered text has been stored.
type TextFiltered struct {
	DocumentID  string    `json:"uploadId"`
	Threshold   float64   `json:"threshold"`
	InputBytes  int       `json:"input_bytes"`
	OutputBytes int       `json:"output_bytes"`
	OccurredAt  time.Time `json:"occurred_at"`
}
