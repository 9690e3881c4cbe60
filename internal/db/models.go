package db

import (
	"time"
)

type PrintRecord struct {
	ID            string    `json:"id"`
	Cookie        int       `json:"cookie"`
	DeviceName    string    `json:"device_name"`
	SourceName    string    `json:"source_name"`
	ExpectedPages int       `json:"expected_pages"`
	RenderedPages int       `json:"rendered_pages"`
	Success       bool      `json:"success"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	CreatedAt     time.Time `json:"created_at"`
}

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type HistoryStats struct {
	Total     int64 `json:"total"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}
