// Package event defines the messages flowing from the upload worker to the
// presentation layer. Events are immutable values; the mailbox delivers them
// in the order the worker produced them.
package event

import (
	"github.com/google/uuid"

	"vrc-uploader/domain"
)

// UIEvent is the marker interface for worker-to-presentation messages.
type UIEvent interface {
	uiEvent()
}

// Severity classifies a free-text status line for rendering.
type Severity int

const (
	SeverityDefault Severity = iota
	SeverityInfo
	SeveritySuccess
	SeverityWarning
	SeverityError
)

// StatusText updates the aggregate status line.
type StatusText struct {
	Message string
	Level   Severity
}

// ItemAdded tells the presentation layer to render a new queue row.
type ItemAdded struct {
	Item domain.UploadItem
}

// ItemUpdated reports a per-item status or progress change.
type ItemUpdated struct {
	ItemID   uuid.UUID
	Status   domain.ItemStatus
	Progress int
	Detail   string
}

// CurrentFile names the file the worker is handling right now.
type CurrentFile struct {
	Name string
}

// Progress carries the aggregate "done out of total" counters for the run.
type Progress struct {
	Done  int
	Total int
}

// Percent returns the 0-100 aggregate progress value.
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Done) / float64(p.Total) * 100
}

// ConfirmRequest asks the presentation layer a yes/no duplicate question.
// The answer comes back through the response slot, not through the mailbox.
type ConfirmRequest struct {
	ItemID   uuid.UUID
	Question string
}

// Spinner toggles the indeterminate progress indicator.
type Spinner struct {
	Active bool
}

// RunFinished signals that the queue drained without cancellation.
type RunFinished struct {
	Succeeded int
	Processed int
}

// ViewReset clears the live view after a cancellation. Durable stores are
// not touched.
type ViewReset struct {
	Reason string
}

func (StatusText) uiEvent()     {}
func (ItemAdded) uiEvent()      {}
func (ItemUpdated) uiEvent()    {}
func (CurrentFile) uiEvent()    {}
func (Progress) uiEvent()       {}
func (ConfirmRequest) uiEvent() {}
func (Spinner) uiEvent()        {}
func (RunFinished) uiEvent()    {}
func (ViewReset) uiEvent()      {}
