package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
)

const defaultRecategorizeLimit = 10000

// RecategorizeRequest selects stored complaints to re-run Classify over.
// Callers default OnlyOther to true so a keyword update only revisits rows the
// classifier previously gave up on.
type RecategorizeRequest struct {
	OnlyOther bool `json:"only_other"`
	Limit     int  `json:"limit,omitempty"`
}

// CategoryChange counts complaints moved between two categories.
type CategoryChange struct {
	From  domain.Category `json:"from"`
	To    domain.Category `json:"to"`
	Count int             `json:"count"`
}

// RecategorizeResult summarizes a recategorization pass.
type RecategorizeResult struct {
	Processed int              `json:"processed"`
	Updated   int              `json:"updated"`
	Unchanged int              `json:"unchanged"`
	Failed    int              `json:"failed"`
	Changes   []CategoryChange `json:"changes"`
}

// Recategorize re-classifies stored complaints with the current keyword table
// and rewrites the ones whose category changed. Aggregates are not touched;
// run a daily refresh over the affected dates afterwards.
func (p *Pipeline) Recategorize(ctx context.Context, req RecategorizeRequest) (RecategorizeResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultRecategorizeLimit
	}

	rows, err := p.store.ListComplaintCategories(ctx, req.OnlyOther, limit)
	if err != nil {
		return RecategorizeResult{}, fmt.Errorf("recategorize: %w", err)
	}

	result := RecategorizeResult{Processed: len(rows)}
	changes := make(map[[2]domain.Category]int)

	for _, row := range rows {
		if strings.TrimSpace(row.ComplaintType) == "" {
			result.Unchanged++
			continue
		}
		next := domain.Classify(row.ComplaintType)
		if next == row.Category {
			result.Unchanged++
			continue
		}
		if err := p.store.UpdateCategory(ctx, row.ID, next); err != nil {
			result.Failed++
			p.logger.Warn("recategorize update failed", "complaint_id", row.ID, "error", err)
			continue
		}
		result.Updated++
		changes[[2]domain.Category{row.Category, next}]++
	}

	result.Changes = make([]CategoryChange, 0, len(changes))
	for k, n := range changes {
		result.Changes = append(result.Changes, CategoryChange{From: k[0], To: k[1], Count: n})
	}
	sort.Slice(result.Changes, func(i, j int) bool {
		a, b := result.Changes[i], result.Changes[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.From != b.From {
			return a.From < b.From
		}
		return a.To < b.To
	})

	p.logger.Info("recategorize completed",
		"processed", result.Processed,
		"updated", result.Updated,
		"unchanged", result.Unchanged,
		"failed", result.Failed,
	)
	return result, nil
}
