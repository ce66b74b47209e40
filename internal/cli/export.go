package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/schoolsync/internal/models"
)

func (c *Cli) runExport(ctx context.Context, scope models.SyncScope, path string) error {
	m, err := c.syncService.ExportFile(ctx, scope, path)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if err := manifestTmpl.Execute(c.io, m); err != nil {
		return fmt.Errorf("failed to render manifest: %w", err)
	}

	tw := newTable(c.io)
	fmt.Fprintln(tw, "MEMBER\tROWS")
	for _, member := range m.Members() {
		fmt.Fprintf(tw, "%s\t%d\n", member, m.Counts[member])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	c.io.Println()
	c.io.Printf("✓ Bundle written to %s\n", path)

	c.writeMetrics()
	return nil
}
