// Package sink holds the consumers of the worker's event mailbox. The
// console sink is the terminal presentation collaborator: it polls the
// mailbox on a fixed interval, renders per-item state, and answers duplicate
// prompts through the response slot.
package sink

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"vrc-uploader/domain"
	"vrc-uploader/domain/event"
	"vrc-uploader/runtime"
)

// Prompter surfaces a yes/no question to the user. ok=false means the user
// never answered; the sink then stays silent and the worker's own timeout
// resolves the item.
type Prompter interface {
	Confirm(question string) (answer, ok bool)
}

// Responder receives the user's duplicate-confirmation answer.
type Responder interface {
	Respond(answer bool)
}

type row struct {
	item   domain.UploadItem
	detail string
}

// ConsoleSink drains the mailbox every poll interval and renders events as
// colored terminal lines, with a summary table when a run finishes. It is a
// contract.Worker so it runs under the supervisor next to the upload worker.
type ConsoleSink struct {
	log       *slog.Logger
	mailbox   *runtime.Mailbox
	responder Responder
	prompter  Prompter
	interval  time.Duration
	out       io.Writer

	rows  map[uuid.UUID]*row
	order []uuid.UUID
	total int
}

func NewConsoleSink(
	log *slog.Logger,
	mailbox *runtime.Mailbox,
	responder Responder,
	prompter Prompter,
	interval time.Duration,
	out io.Writer,
) *ConsoleSink {
	return &ConsoleSink{
		log:       log,
		mailbox:   mailbox,
		responder: responder,
		prompter:  prompter,
		interval:  interval,
		out:       out,
		rows:      make(map[uuid.UUID]*row),
	}
}

// Run polls the mailbox until the context ends. Events are consumed in the
// order the worker published them.
func (s *ConsoleSink) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, e := range s.mailbox.Drain() {
				if err := s.Consume(ctx, e); err != nil {
					s.log.Error("rendering event", "error", err)
				}
			}
		}
	}
}

func (s *ConsoleSink) Consume(_ context.Context, e event.UIEvent) error {
	switch evt := e.(type) {
	case event.ItemAdded:
		s.rows[evt.Item.ID] = &row{item: evt.Item}
		s.order = append(s.order, evt.Item.ID)

	case event.ItemUpdated:
		r, ok := s.rows[evt.ItemID]
		if !ok {
			return fmt.Errorf("update for unknown item %s", evt.ItemID)
		}
		r.item.Status = evt.Status
		r.item.Progress = evt.Progress
		r.detail = evt.Detail
		if evt.Status.Terminal() {
			s.printStatus(r)
		}

	case event.CurrentFile:
		fmt.Fprintf(s.out, "Uploading: %s\n", evt.Name)

	case event.Progress:
		s.total = evt.Total
		fmt.Fprintf(s.out, "%d/%d uploaded (%.0f%%)\n", evt.Done, evt.Total, evt.Percent())

	case event.StatusText:
		fmt.Fprintln(s.out, severityStyle(evt.Level).Render(evt.Message))

	case event.ConfirmRequest:
		if answer, ok := s.prompter.Confirm(evt.Question); ok {
			s.responder.Respond(answer)
		}

	case event.Spinner:
		// No indeterminate spinner on a line console; state changes are
		// already printed per item.

	case event.RunFinished:
		s.printSummary(evt)

	case event.ViewReset:
		s.rows = make(map[uuid.UUID]*row)
		s.order = nil
		s.total = 0
		fmt.Fprintln(s.out, severityStyle(event.SeverityInfo).Render(evt.Reason))

	default:
		s.log.Warn("unknown event type", "event", fmt.Sprintf("%T", e))
	}
	return nil
}

func (s *ConsoleSink) printStatus(r *row) {
	line := fmt.Sprintf("%-40s %s %s", r.item.Name, r.item.Status, r.detail)
	fmt.Fprintln(s.out, statusStyle(r.item.Status).Render(line))
}

// printSummary renders the per-item outcome table at the end of a run.
func (s *ConsoleSink) printSummary(evt event.RunFinished) {
	table := tablewriter.NewWriter(s.out)
	table.SetHeader([]string{"File", "Status", "Progress"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, id := range s.order {
		r := s.rows[id]
		table.Append([]string{r.item.Name, r.item.Status.String(), fmt.Sprintf("%d%%", r.item.Progress)})
	}
	table.Render()

	fmt.Fprintln(s.out, severityStyle(event.SeveritySuccess).
		Render(fmt.Sprintf("Run finished: %d/%d succeeded.", evt.Succeeded, evt.Processed)))
}

// severityStyle maps the status severity levels to the palette the original
// utility used for its status label.
func severityStyle(level event.Severity) color.Style {
	switch level {
	case event.SeveritySuccess:
		return color.New(color.FgGreen)
	case event.SeverityError:
		return color.New(color.FgRed)
	case event.SeverityWarning:
		return color.New(color.FgYellow)
	case event.SeverityInfo:
		return color.New(color.FgBlue)
	default:
		return color.New(color.FgDefault)
	}
}

func statusStyle(status domain.ItemStatus) color.Style {
	switch status {
	case domain.StatusSuccess:
		return color.New(color.FgGreen)
	case domain.StatusSkippedDuplicate, domain.StatusSkippedDeclined, domain.StatusSkippedTimeout:
		return color.New(color.FgYellow)
	case domain.StatusFailedNoID, domain.StatusFailedTooLarge, domain.StatusFailedNetwork, domain.StatusFailedError:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgDefault)
	}
}
