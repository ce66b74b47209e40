package cli

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotConfirmed возвращается, когда подтверждение нельзя запросить
var ErrNotConfirmed = errors.New("confirmation required: run on a terminal or pass --yes")

type ImportOptions struct {
	Actor  string
	DryRun bool
	// Yes применяет бандл без предпросмотра и подтверждения
	Yes bool
}

func (c *Cli) runImport(ctx context.Context, path string, opts ImportOptions) error {
	if opts.DryRun {
		res, err := c.syncService.DryRun(ctx, path, opts.Actor)
		if err != nil {
			return fmt.Errorf("dry run failed: %w", err)
		}
		return c.printResult(res)
	}

	if !opts.Yes {
		report, err := c.syncService.Preview(ctx, path)
		if err != nil {
			return fmt.Errorf("preview failed: %w", err)
		}
		if err := c.printReport(report); err != nil {
			return err
		}

		if !c.io.IsTerminal() {
			return ErrNotConfirmed
		}
		c.io.Println()
		answer, err := c.io.ReadInput("Apply this bundle? [y/N]: ")
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if !confirmed(answer) {
			c.io.Println("Import cancelled.")
			return nil
		}
	}

	res, err := c.syncService.Reconcile(ctx, path, opts.Actor)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	if err := c.printResult(res); err != nil {
		return err
	}

	c.io.Println()
	if n := len(res.Errors); n > 0 {
		c.io.Printf("✓ Bundle applied, %s skipped\n", plural(n, "row"))
	} else {
		c.io.Println("✓ Bundle applied")
	}

	c.writeMetrics()
	return nil
}

func (c *Cli) runConflicts(ctx context.Context, path string) error {
	report, err := c.syncService.Preview(ctx, path)
	if err != nil {
		return fmt.Errorf("preview failed: %w", err)
	}
	return c.printReport(report)
}
