package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/creatorhub-backend/pkg/db/models"
	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
)

const dlqUsage = `usage:
  outbox-publisher dlq list [-reason max_attempts|non_retryable] [-limit n]
  outbox-publisher dlq requeue <event-id>`

type dlqStore interface {
	List(ctx context.Context, reason enums.OutboxDLQErrorReason, limit int) ([]models.OutboxDLQ, error)
	Requeue(ctx context.Context, eventID uuid.UUID) error
}

// runDLQ handles the operator subcommands. args excludes the leading "dlq".
func runDLQ(ctx context.Context, store dlqStore, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(dlqUsage)
	}
	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("dlq list", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		reason := fs.String("reason", "", "only entries parked for this reason")
		limit := fs.Int("limit", 50, "maximum entries to print")
		if err := fs.Parse(args[1:]); err != nil {
			return fmt.Errorf("%w\n%s", err, dlqUsage)
		}
		filter, err := enums.ParseOutboxDLQErrorReason(*reason)
		if err != nil {
			return err
		}
		entries, err := store.List(ctx, filter, *limit)
		if err != nil {
			return err
		}
		return printDLQ(out, entries)

	case "requeue":
		if len(args) != 2 {
			return errors.New(dlqUsage)
		}
		id, err := uuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid event id %q: %w", args[1], err)
		}
		if err := store.Requeue(ctx, id); err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "requeued %s\n", id)
		return err
	}
	return fmt.Errorf("unknown dlq command %q\n%s", args[0], dlqUsage)
}

func printDLQ(out io.Writer, entries []models.OutboxDLQ) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EVENT ID\tTYPE\tAGGREGATE\tREASON\tATTEMPTS\tFAILED AT\tERROR")
	for _, e := range entries {
		msg := ""
		if e.ErrorMessage != nil {
			msg = *e.ErrorMessage
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			e.EventID, e.EventType, e.AggregateID.Hex(), e.ErrorReason,
			e.AttemptCount, e.FailedAt.UTC().Format(time.RFC3339), msg)
	}
	return w.Flush()
}
