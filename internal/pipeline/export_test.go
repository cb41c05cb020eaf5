package pipeline

import (
	"context"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
)

// loadRecordsForTest loads the fixture source's full record set directly,
// bypassing run bookkeeping.
func (p *Pipeline) loadRecordsForTest(ctx context.Context) (domain.Outcome, error) {
	records, err := p.source.FetchRange(ctx, domain.RangeQuery{Limit: 1000})
	if err != nil {
		return domain.Outcome{}, err
	}
	return p.loadRecords(ctx, records).outcome, nil
}
