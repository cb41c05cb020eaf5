package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
)

// createdDateLayouts are tried in order. Socrata emits floating timestamps
// with milliseconds; the others cover hand-fed fixtures and exports.
var createdDateLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ToComplaint classifies and normalizes one upstream record. Floating
// timestamps are interpreted in loc. Blank optional fields become nil; an
// unparseable coordinate is dropped rather than failing the record.
func ToComplaint(rec domain.UpstreamRecord, loc *time.Location) (domain.Complaint, error) {
	id := strings.TrimSpace(rec.UniqueKey)
	if id == "" {
		return domain.Complaint{}, errors.New("missing unique_key")
	}

	createdAt, err := parseCreatedDate(rec.CreatedDate, loc)
	if err != nil {
		return domain.Complaint{}, fmt.Errorf("complaint %s: %w", id, err)
	}

	c := domain.Complaint{
		ID:            id,
		Category:      domain.Classify(rec.ComplaintType),
		ComplaintType: strings.TrimSpace(rec.ComplaintType),
		Descriptor:    optionalString(rec.Descriptor),
		CreatedAt:     createdAt.UTC(),
		IncidentZip:   optionalString(rec.IncidentZip),
		Borough:       optionalString(rec.Borough),
		Raw:           rec.Raw,
	}

	lat, latOK := optionalFloat(rec.Latitude)
	lon, lonOK := optionalFloat(rec.Longitude)
	if latOK && lonOK {
		c.Latitude, c.Longitude = &lat, &lon
	}
	return c, nil
}

func parseCreatedDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("missing created_date")
	}
	for _, layout := range createdDateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unparseable created_date %q", s)
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := cast.ToFloat64E(s)
	if err != nil {
		return 0, false
	}
	return v, true
}
