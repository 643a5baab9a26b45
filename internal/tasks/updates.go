package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	PhaseFetchFavorites Phase = iota
	PhaseFetchDetails
	PhaseWriteExport
)

func (p Phase) String() string {
	switch p {
	case PhaseFetchFavorites:
		return "fetch_favorites"
	case PhaseFetchDetails:
		return "fetch_details"
	case PhaseWriteExport:
		return "write_export"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchingDetailsUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseFetchDetails,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Fetching details for %d snacks...", total),
	}
}

func detailFetchedUpdate(step, total int, res DetailResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseFetchDetails,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, res.Detail.Name),
		Data:    res.Detail,
	}
}

func detailFailedUpdate(step, total int, res DetailResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseFetchDetails,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ #%d: %v", step, total, res.ID, res.Err),
	}
}
