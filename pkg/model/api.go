package model

import "time"

// Response is the standard API response envelope.
type Response struct {
	Status     string      `json:"status"`
	RequestID  string      `json:"request_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      *APIError   `json:"error"`
}

// Pagination holds pagination metadata for list endpoints.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// ListOptions configures instance queries with pagination and filtering.
type ListOptions struct {
	Limit       int
	Offset      int
	ExpansionID string // Optional expansion filter
	Application string // Optional application filter
	Workload    string // Optional workload filter
}

// DefaultListOptions returns sensible defaults.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: 20, Offset: 0}
}

// Clamp enforces limits (max 500, min 1).
func (o *ListOptions) Clamp() {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.Limit > 500 {
		o.Limit = 500
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}

// Expansion records one run of the pipeline over a document.
type Expansion struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"`
	ContentHash   string    `json:"content_hash"`
	InstanceCount int       `json:"instance_count"`
	Warnings      []string  `json:"warnings,omitempty"`
	Failures      []string  `json:"failures,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
