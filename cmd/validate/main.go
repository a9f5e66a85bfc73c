// SPDX-License-Identifier: MIT

// validate checks a harmond configuration file and its variable
// dictionaries without running the pipeline.
//
// Usage:
//
//	validate -f config.yaml
//
// Exit codes:
//   - 0: configuration and dictionaries are valid
//   - 1: configuration or a dictionary is invalid
//   - 2: usage error
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/panelkit/harmon/internal/config"
	"github.com/panelkit/harmon/internal/meta"
)

var Version = "dev"

func main() {
	var file string
	var showVersion bool

	flag.StringVar(&file, "file", "", "path to YAML configuration file")
	flag.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(Version)
		os.Exit(0)
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "Error: --file is required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  validate -f config.yaml")
		os.Exit(2)
	}

	// Load applies strict YAML parsing, env overrides and validation.
	cfg, err := config.Load(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error in %s:\n", file)
		fmt.Fprintf(os.Stderr, "  %v\n", err)
		os.Exit(1)
	}

	dict, err := meta.LoadDictionary(cfg.Meta.NLSY)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Dictionary error in %s:\n", cfg.Meta.NLSY)
		fmt.Fprintf(os.Stderr, "  %v\n", err)
		os.Exit(1)
	}

	mapping, err := meta.LoadMapping(cfg.Meta.CHS)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Mapping error in %s:\n", cfg.Meta.CHS)
		fmt.Fprintf(os.Stderr, "  %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ %s is valid\n", file)
	fmt.Printf("  nlsy dictionary: %d entries, %d waves, subscales %v\n",
		dict.Len(), len(dict.Waves()), dict.Subscales())
	fmt.Printf("  chs mapping: %d columns\n", len(mapping.Pairs()))
}
