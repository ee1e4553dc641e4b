package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/wbrown/janus-queryspec/queryspec/storage"
)

func main() {
	output := flag.String("db", "companies.db", "output database path")
	seed := flag.String("seed", "", "YAML seed file (default: built-in companies)")
	count := flag.Int("count", 0, "synthesized companies appended after the seed")
	flag.Parse()

	if *count < 0 {
		fmt.Fprintf(os.Stderr, "Count must not be negative: %d\n", *count)
		os.Exit(1)
	}

	config := storage.SampleConfig{
		SeedPath:   *seed,
		OutputPath: *output,
		Count:      *count,
	}

	fmt.Printf("Building sample database: %s\n", config.OutputPath)
	if config.SeedPath != "" {
		fmt.Printf("  Seed: %s\n", config.SeedPath)
	} else {
		fmt.Printf("  Seed: built-in companies\n")
	}
	fmt.Printf("  Synthesized: %d\n", config.Count)
	fmt.Println()

	store, err := storage.BuildSampleDatabase(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := storage.SampleDatabaseStats(store); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get stats: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nDone! Query this database with:")
	fmt.Printf("   queryspec -db %s -order Name\n", config.OutputPath)
}
