package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/schoolsync/internal/models"
)

func (c *Cli) runHistory(ctx context.Context, limit int) error {
	entries, err := c.history.History(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to read import history: %w", err)
	}

	if len(entries) == 0 {
		c.io.Println("No bundles imported yet.")
		return nil
	}

	tw := newTable(c.io)
	fmt.Fprintln(tw, "APPLIED\tBUNDLE\tSOURCE\tSCOPE\tACTOR\tADDED\tUPDATED\tDELETED\tERRORS")
	for _, e := range entries {
		var total models.TypeStats
		for _, s := range e.Stats {
			total.Added += s.Added
			total.Updated += s.Updated
			total.Deleted += s.Deleted
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			e.AppliedAt.Local().Format(time.DateTime),
			e.BundleID, e.SourceReplica, e.Scope, e.Actor,
			total.Added, total.Updated, total.Deleted, len(e.Errors))
	}
	return tw.Flush()
}
