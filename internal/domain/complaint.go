package domain

import (
	"encoding/json"
	"time"
)

// UpstreamRecord is one row of the 311 dataset as returned by Socrata. Every
// field arrives as a string and any of them may be blank.
type UpstreamRecord struct {
	UniqueKey     string `json:"unique_key"`
	ComplaintType string `json:"complaint_type"`
	Descriptor    string `json:"descriptor"`
	CreatedDate   string `json:"created_date"` // floating local time, e.g. "2025-01-15T14:30:00.000"
	Latitude      string `json:"latitude"`
	Longitude     string `json:"longitude"`
	Borough       string `json:"borough"`
	IncidentZip   string `json:"incident_zip"`

	Raw json.RawMessage `json:"-"`
}

// Complaint is a classified 311 service request keyed by the upstream unique_key.
type Complaint struct {
	ID             string          `json:"id"`
	Category       Category        `json:"category"`
	ComplaintType  string          `json:"complaint_type"`
	Descriptor     *string         `json:"descriptor,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	Latitude       *float64        `json:"latitude,omitempty"`
	Longitude      *float64        `json:"longitude,omitempty"`
	IncidentZip    *string         `json:"incident_zip,omitempty"`
	Borough        *string         `json:"borough,omitempty"`
	NeighborhoodID *int64          `json:"neighborhood_id,omitempty"`
	Raw            json.RawMessage `json:"-"`
}

// HasLocation reports whether both coordinates are present.
func (c Complaint) HasLocation() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// ComplaintCategory is the slice of a stored complaint needed to re-run Classify.
type ComplaintCategory struct {
	ID            string
	ComplaintType string
	Category      Category
}

// Neighborhood is a reference NTA polygon. Boundaries live only in the store.
type Neighborhood struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Borough string `json:"borough"`
	NTACode string `json:"nta_code"`
}

// CategoryCount is a complaint count for one neighborhood and category.
type CategoryCount struct {
	NeighborhoodID int64
	Category       Category
	Count          int
}

// DailyCount is a complaint count for one calendar day and category.
type DailyCount struct {
	Date     time.Time `json:"date"`
	Category Category  `json:"category"`
	Count    int       `json:"count"`
}

// AggregateSummary is the per-timeframe rollup for one neighborhood.
type AggregateSummary struct {
	NeighborhoodID int64          `json:"neighborhood_id"`
	Timeframe      Timeframe      `json:"timeframe"`
	Total          int            `json:"total"`
	Counts         CategoryCounts `json:"counts"`
	ChaosScore     int            `json:"chaos_score"`
	RankInCity     int            `json:"rank_in_city"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// RunStatus is the lifecycle state of an ETL run: running, then exactly one of
// completed or failed.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// EtlRun is the audit record of one incremental ingestion. The
// LastComplaintDate of the latest completed run is the ingestion watermark.
type EtlRun struct {
	ID                string     `json:"id"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	Status            RunStatus  `json:"status"`
	RecordsFetched    int        `json:"records_fetched"`
	RecordsInserted   int        `json:"records_inserted"`
	LastComplaintDate *time.Time `json:"last_complaint_date,omitempty"`
	ErrorMessage      *string    `json:"error_message,omitempty"`
}

// RangeQuery bounds a historical fetch from the upstream dataset. Nil bounds
// are open.
type RangeQuery struct {
	Since  *time.Time
	Until  *time.Time
	Limit  int
	Offset int
}
