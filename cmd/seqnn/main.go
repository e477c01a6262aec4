// Package main provides the seqnn CLI.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/born-ml/seqnn/internal/dataset"
)

const version = "v0.0.1-dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("seqnn %s\n", version)
			return
		case "scan":
			if err := runScan(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "seqnn: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	fmt.Println("seqnn - Sequence Modules and Pixel Corpora for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version              Show version")
	fmt.Println("  scan <dir> [patch]   Scan a segmentation corpus and print its stats")
}

// runScan opens a corpus directory and prints its sample statistics.
func runScan(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: seqnn scan <dir> [patch-size]")
	}
	cfg := dataset.Config{Dir: args[0], PatchSize: 9}
	if len(args) > 1 {
		ps, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad patch size %q: %w", args[1], err)
		}
		cfg.PatchSize = ps
	}

	ds, err := dataset.Open(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Corpus: %s\n", cfg.Dir)
	fmt.Printf("  images:  %d\n", ds.NumImages())
	fmt.Printf("  samples: %d (patch %dx%d)\n", ds.Len(), cfg.PatchSize, cfg.PatchSize)
	fmt.Printf("  classes: %v\n", ds.Classes())
	return nil
}
