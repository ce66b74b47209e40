package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"text/template"

	"github.com/iudanet/schoolsync/internal/models"
	"github.com/iudanet/schoolsync/internal/sync"
)

var (
	resultTmpl   = template.Must(template.New("result").Parse(resultTemplate))
	reportTmpl   = template.Must(template.New("report").Parse(reportTemplate))
	manifestTmpl = template.Must(template.New("manifest").Parse(manifestTemplate))
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func (c *Cli) printResult(res *models.ReconciliationResult) error {
	if err := resultTmpl.Execute(c.io, res); err != nil {
		return fmt.Errorf("failed to render result: %w", err)
	}

	tw := newTable(c.io)
	fmt.Fprintln(tw, "TYPE\tADDED\tUPDATED\tDELETED")
	for _, t := range res.Types() {
		s := res.PerType[t]
		if !s.Changed() {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", t, s.Added, s.Updated, s.Deleted)
	}
	total := res.Totals()
	fmt.Fprintf(tw, "TOTAL\t%d\t%d\t%d\n", total.Added, total.Updated, total.Deleted)
	if err := tw.Flush(); err != nil {
		return err
	}

	c.printErrors("Skipped rows", res.Errors)

	if res.DryRun {
		c.io.Println()
		c.io.Println("Dry run: no changes were applied.")
	}
	return nil
}

func (c *Cli) printErrors(title string, errs []string) {
	if len(errs) == 0 {
		return
	}
	c.io.Println()
	c.io.Printf("%s (%d):\n", title, len(errs))
	for _, e := range errs {
		c.io.Printf("  - %s\n", e)
	}
}

func (c *Cli) printReport(report *sync.ConflictReport) error {
	if err := reportTmpl.Execute(c.io, report); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if report.Empty() {
		c.io.Println("No differences with the local store.")
		c.printErrors("Rows that will be skipped", report.Errors)
		return nil
	}

	tw := newTable(c.io)
	fmt.Fprintln(tw, "TYPE\tNEW\tDELETED\tCONFLICTING")
	conflicting := make(map[models.EntityType]int)
	for _, rc := range report.Records {
		conflicting[rc.Type]++
	}
	for _, sch := range models.Schemas() {
		n, d, k := report.New[sch.Type], report.Deletions[sch.Type], conflicting[sch.Type]
		if n+d+k == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", sch.Type, n, d, k)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, rc := range report.Records {
		c.io.Println()
		c.io.Printf("%s %s\n", rc.Type, rc.Key)
		tw := newTable(c.io)
		fmt.Fprintln(tw, "  FIELD\tKIND\tLOCAL\tREMOTE")
		for _, cf := range rc.Conflicts {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", cf.Key, cf.Kind, cf.Local, cf.Remote)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(report.Deletions) > 0 {
		c.io.Println()
		c.io.Println("Deletions do not include owned records removed in cascade.")
	}
	c.printErrors("Rows that will be skipped", report.Errors)
	return nil
}
