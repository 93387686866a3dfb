package types

import "fmt"

// BulkItemStatus is the outcome of one item of a bulk operation.
type BulkItemStatus string

const (
	BulkItemSuccess BulkItemStatus = "success"
	BulkItemError   BulkItemStatus = "error"
)

// BulkUpdateRequest applies the same update to every listed task.
type BulkUpdateRequest struct {
	TaskIDs []int64    `json:"task_ids" binding:"required"`
	Update  TaskUpdate `json:"update"`
}

// BulkItemResult reports what happened to a single task of a bulk operation.
type BulkItemResult struct {
	ID     int64          `json:"id"`
	Status BulkItemStatus `json:"status"`
	Error  string         `json:"error,omitempty"`
}

// BulkOperationResult aggregates the per-item outcomes of a bulk operation.
// Results are in the same order as the ids of the request.
type BulkOperationResult struct {
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Results   []BulkItemResult `json:"results"`
}

// Add appends the outcome of the next item and keeps the counters in sync.
func (r *BulkOperationResult) Add(item BulkItemResult) {
	r.Results = append(r.Results, item)
	r.Total++
	if item.Status == BulkItemSuccess {
		r.Succeeded++
	} else {
		r.Failed++
	}
}

// Validate checks the arithmetic invariants of the aggregate.
func (r *BulkOperationResult) Validate() error {
	if r.Succeeded+r.Failed != r.Total {
		return fmt.Errorf(
			"inconsistent bulk result: succeeded (%d) + failed (%d) != total (%d)", r.Succeeded, r.Failed, r.Total,
		)
	}
	if len(r.Results) != r.Total {
		return fmt.Errorf("inconsistent bulk result: %d item results for a total of %d", len(r.Results), r.Total)
	}
	return nil
}
