package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
)

// Complaint is the complaints table row. Timestamps are stored in UTC.
type Complaint struct {
	ID             string    `gorm:"primaryKey;size:32"`
	Category       string    `gorm:"size:20;not null;index"`
	ComplaintType  string    `gorm:"not null"`
	Descriptor     *string
	CreatedAt      time.Time `gorm:"not null;index;autoCreateTime:false"`
	Latitude       *float64
	Longitude      *float64
	IncidentZip    *string `gorm:"size:10"`
	Borough        *string `gorm:"size:20"`
	NeighborhoodID *int64  `gorm:"index"`
	Raw            string  `gorm:"type:text"`
}

func (Complaint) TableName() string { return "complaints" }

// Neighborhood is reference data. The PostGIS boundary column is managed
// outside the GORM model; see Migrate.
type Neighborhood struct {
	ID      int64  `gorm:"primaryKey"`
	Name    string `gorm:"not null"`
	Borough string `gorm:"size:20;not null;index"`
	NTACode string `gorm:"column:nta_code;size:10;not null;uniqueIndex"`
}

func (Neighborhood) TableName() string { return "neighborhoods" }

// AggregateDaily holds one count per neighborhood, calendar day and category.
type AggregateDaily struct {
	NeighborhoodID int64     `gorm:"primaryKey;autoIncrement:false"`
	Date           time.Time `gorm:"primaryKey;type:date"`
	Category       string    `gorm:"primaryKey;size:20"`
	Count          int       `gorm:"not null;default:0"`
}

func (AggregateDaily) TableName() string { return "aggregates_daily" }

// AggregateSummary is the per-timeframe rollup row.
type AggregateSummary struct {
	NeighborhoodID int64  `gorm:"primaryKey;autoIncrement:false"`
	Timeframe      string `gorm:"primaryKey;size:10"`
	Total          int    `gorm:"not null;default:0"`
	Rats           int    `gorm:"not null;default:0"`
	Noise          int    `gorm:"not null;default:0"`
	Parking        int    `gorm:"not null;default:0"`
	Trash          int    `gorm:"not null;default:0"`
	HeatWater      int    `gorm:"not null;default:0"`
	Construction   int    `gorm:"not null;default:0"`
	Building       int    `gorm:"not null;default:0"`
	Bikes          int    `gorm:"not null;default:0"`
	Other          int    `gorm:"not null;default:0"`
	ChaosScore     int    `gorm:"not null;default:0"`
	RankInCity     int    `gorm:"not null;default:0"`
	UpdatedAt      time.Time
}

func (AggregateSummary) TableName() string { return "aggregates_summary" }

// EtlRun is the etl_runs audit row.
type EtlRun struct {
	ID                string    `gorm:"primaryKey;size:36"`
	StartedAt         time.Time `gorm:"not null"`
	CompletedAt       *time.Time
	Status            string `gorm:"size:20;not null;index"`
	RecordsFetched    int    `gorm:"not null;default:0"`
	RecordsInserted   int    `gorm:"not null;default:0"`
	LastComplaintDate *time.Time
	ErrorMessage      *string
}

func (EtlRun) TableName() string { return "etl_runs" }

// BeforeCreate assigns a UUID when the caller did not.
func (r *EtlRun) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

func complaintFromDomain(c domain.Complaint) Complaint {
	return Complaint{
		ID:             c.ID,
		Category:       string(c.Category),
		ComplaintType:  c.ComplaintType,
		Descriptor:     c.Descriptor,
		CreatedAt:      c.CreatedAt.UTC(),
		Latitude:       c.Latitude,
		Longitude:      c.Longitude,
		IncidentZip:    c.IncidentZip,
		Borough:        c.Borough,
		NeighborhoodID: c.NeighborhoodID,
		Raw:            string(c.Raw),
	}
}

func (c Complaint) toDomain() domain.Complaint {
	out := domain.Complaint{
		ID:             c.ID,
		Category:       domain.Category(c.Category),
		ComplaintType:  c.ComplaintType,
		Descriptor:     c.Descriptor,
		CreatedAt:      c.CreatedAt.UTC(),
		Latitude:       c.Latitude,
		Longitude:      c.Longitude,
		IncidentZip:    c.IncidentZip,
		Borough:        c.Borough,
		NeighborhoodID: c.NeighborhoodID,
	}
	if c.Raw != "" {
		out.Raw = json.RawMessage(c.Raw)
	}
	return out
}

func (n Neighborhood) toDomain() domain.Neighborhood {
	return domain.Neighborhood{ID: n.ID, Name: n.Name, Borough: n.Borough, NTACode: n.NTACode}
}

func summaryFromDomain(s domain.AggregateSummary) AggregateSummary {
	return AggregateSummary{
		NeighborhoodID: s.NeighborhoodID,
		Timeframe:      string(s.Timeframe),
		Total:          s.Total,
		Rats:           s.Counts.Rats,
		Noise:          s.Counts.Noise,
		Parking:        s.Counts.Parking,
		Trash:          s.Counts.Trash,
		HeatWater:      s.Counts.HeatWater,
		Construction:   s.Counts.Construction,
		Building:       s.Counts.Building,
		Bikes:          s.Counts.Bikes,
		Other:          s.Counts.Other,
		ChaosScore:     s.ChaosScore,
		RankInCity:     s.RankInCity,
	}
}

func (s AggregateSummary) toDomain() domain.AggregateSummary {
	return domain.AggregateSummary{
		NeighborhoodID: s.NeighborhoodID,
		Timeframe:      domain.Timeframe(s.Timeframe),
		Total:          s.Total,
		Counts: domain.CategoryCounts{
			Rats:         s.Rats,
			Noise:        s.Noise,
			Parking:      s.Parking,
			Trash:        s.Trash,
			HeatWater:    s.HeatWater,
			Construction: s.Construction,
			Building:     s.Building,
			Bikes:        s.Bikes,
			Other:        s.Other,
		},
		ChaosScore: s.ChaosScore,
		RankInCity: s.RankInCity,
		UpdatedAt:  s.UpdatedAt.UTC(),
	}
}

func (r EtlRun) toDomain() domain.EtlRun {
	return domain.EtlRun{
		ID:                r.ID,
		StartedAt:         r.StartedAt.UTC(),
		CompletedAt:       utcPtr(r.CompletedAt),
		Status:            domain.RunStatus(r.Status),
		RecordsFetched:    r.RecordsFetched,
		RecordsInserted:   r.RecordsInserted,
		LastComplaintDate: utcPtr(r.LastComplaintDate),
		ErrorMessage:      r.ErrorMessage,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
