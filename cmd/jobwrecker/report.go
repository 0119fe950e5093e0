package main

import (
	"fmt"

	"github.com/sourceplane/jobwrecker/internal/convert"
	"github.com/sourceplane/jobwrecker/internal/render"
)

// report prints the outcomes and returns the aggregated failures
func report(outcomes []render.Outcome) error {
	viewer := render.NewReportViewer(outcomes)
	switch reportView {
	case "tree":
		fmt.Println()
		fmt.Println(viewer.ViewTree())
	case "components":
		fmt.Println()
		fmt.Println(viewer.ViewByComponent())
	case "none":
	default:
		return fmt.Errorf("unknown report %q (use tree, components or none)", reportView)
	}

	if err := convert.Failures(outcomes); err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}
	fmt.Printf("✓ Converted %d configurations into %s\n", len(outcomes), cfg.OutputDir)
	return nil
}
