package system

import (
	"fmt"
	"os"

	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/importer"
)

type ImportCmd struct {
	File         string `arg:"" help:"YAML habit file to import, - for stdin."`
	SkipExisting bool   `name:"skip-existing" help:"Skip habits whose name is already taken."`
	DryRun       bool   `name:"dry-run" help:"Validate the file without writing anything."`
}

func (c *ImportCmd) Run(ctx *cli.Context) error {
	in := ctx.In
	if c.File != "-" {
		f, err := os.Open(c.File)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", c.File, err)
		}
		defer f.Close()
		in = f
	}

	file, err := importer.Decode(in)
	if err != nil {
		return err
	}
	if !c.DryRun {
		ctx.PerformAutomaticBackup()
	}

	result, err := importer.Import(ctx.Store, file, importer.ImportOptions{
		SkipExisting: c.SkipExisting,
		DryRun:       c.DryRun,
	})
	if err != nil {
		return err
	}
	ctx.Stats.InvalidateAll()

	verb := "Imported"
	if c.DryRun {
		verb = "Would import"
	}
	ctx.Printf("✓ %s %d habit(s) with %d pattern(s) and %d completion(s)\n", verb, result.Created, result.Patterns, result.Completions)
	for _, name := range result.Skipped {
		ctx.Printf("  skipped existing habit %q\n", name)
	}
	return nil
}

type ExportCmd struct {
	File        string `arg:"" optional:"" help:"Output file, stdout when omitted."`
	Completions bool   `help:"Include completion history."`
	Archived    bool   `help:"Include archived habits."`
}

func (c *ExportCmd) Run(ctx *cli.Context) error {
	file, err := importer.Export(ctx.Store, importer.ExportOptions{
		IncludeArchived:    c.Archived,
		IncludeCompletions: c.Completions,
	})
	if err != nil {
		return err
	}

	if c.File == "" || c.File == "-" {
		return importer.Encode(ctx.Out, file)
	}

	f, err := os.OpenFile(c.File, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", c.File, err)
	}
	if err := importer.Encode(f, file); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	ctx.Printf("✓ Exported %d habit(s) to %s\n", len(file.Habits), c.File)
	return nil
}
