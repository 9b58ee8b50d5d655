// Command formctl is the CLI front-end over the cognitive model execution
// engine (spec §6 "CLI surface").
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"cogflow/internal/customnode"
	"cogflow/internal/domain"
	"cogflow/internal/expreval"
	"cogflow/internal/nodeeval"
	"cogflow/internal/platform"
	"cogflow/pkg/document"
)

const redCross = "\033[31m✗\033[0m"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		os.Exit(runValidate(os.Args[2:]))
	case "compile":
		os.Exit(runCompile(os.Args[2:]))
	case "info":
		os.Exit(runInfo(os.Args[2:]))
	case "examples":
		os.Exit(runExamples(os.Args[2:]))
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: formctl <validate|compile|info|examples> [flags] [files...]")
}

func newPlatform() *platform.Platform {
	eval := nodeeval.New(expreval.New(), customnode.NewRegistry().Evaluators())
	return platform.New(eval)
}

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	verbose := fs.Bool("v", false, "verbose output")
	warnings := fs.Bool("w", false, "treat warnings as failures")
	asJSON := fs.Bool("json", false, "emit JSON output")
	fs.Parse(args)

	p := newPlatform()
	failed := false

	for _, path := range fs.Args() {
		loaded, err := p.Load(path)
		if err != nil {
			fmt.Printf("%s %s: %s\n", redCross, path, err)
			failed = true
			continue
		}

		if *asJSON {
			data, _ := json.MarshalIndent(loaded.Validation, "", "  ")
			fmt.Println(string(data))
		} else {
			printValidation(path, loaded.Validation, *verbose)
		}

		if !loaded.Validation.Valid {
			failed = true
		}
		if *warnings && loaded.Validation.Summary.Warnings > 0 {
			failed = true
		}
	}

	if failed {
		return 1
	}
	return 0
}

func printValidation(path string, result domain.ValidationResult, verbose bool) {
	if result.Valid {
		fmt.Printf("✓ %s: valid (%d warnings)\n", path, result.Summary.Warnings)
	} else {
		fmt.Printf("%s %s: invalid (%d errors, %d warnings)\n", redCross, path, result.Summary.Errors, result.Summary.Warnings)
	}
	if verbose || !result.Valid {
		for _, issue := range result.Issues {
			fmt.Printf("  [%s/%s] %s\n", issue.Severity, issue.Kind, issue.Message)
		}
	}
}

func runCompile(args []string) int {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	output := fs.String("o", "", "output path for the compiled graph JSON")
	optimize := fs.String("optimize", "", "optimization mode: speed|memory|balanced")
	stats := fs.Bool("stats", false, "print complexity stats")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "compile requires exactly one file")
		return 1
	}
	path := fs.Arg(0)

	doc, err := readDocument(path)
	if err != nil {
		fmt.Printf("%s %s: %s\n", redCross, path, err)
		return 1
	}

	p := newPlatform()
	validation, graph, err := p.Compile(&doc, domain.OptimizationMode(*optimize))
	if err != nil {
		fmt.Printf("%s %s: %s\n", redCross, path, err)
		return 1
	}
	if !validation.Valid {
		printValidation(path, validation, true)
		return 1
	}

	if *stats {
		fmt.Printf("nodes: %d, relations: %d\n", graph.Compilation.NodeCount, graph.Compilation.RelationCount)
		fmt.Printf("max depth: %d, avg branching: %.2f, cycles: %d\n",
			graph.Compilation.Complexity.MaxDepth, graph.Compilation.Complexity.AverageBranching, graph.Compilation.Complexity.CycleCount)
	}

	if *output != "" {
		if err := p.SaveGraphJSON(graph.Metadata.ID, *output); err != nil {
			fmt.Printf("%s %s\n", redCross, err)
			return 1
		}
		fmt.Printf("✓ compiled graph written to %s\n", *output)
	}

	return 0
}

// readDocument loads path as YAML if it parses that way, falling back to
// plain JSON (spec §6 "Document file format" is JSON; YAML is an authoring
// convenience for the validate, compile and info subcommands, SPEC_FULL §9.2).
func readDocument(path string) (domain.Document, error) {
	if doc, err := document.LoadYAMLFile(path); err == nil {
		return doc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, err
	}
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Document{}, err
	}
	return doc, nil
}

func runInfo(args []string) int {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	showGraph := fs.Bool("graph", false, "include compiled graph")
	showDeps := fs.Bool("dependencies", false, "include cross-document dependencies")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "info requires exactly one file")
		return 1
	}
	path := fs.Arg(0)

	p := newPlatform()
	loaded, err := p.Load(path)
	if err != nil {
		fmt.Printf("%s %s: %s\n", redCross, path, err)
		return 1
	}
	if !loaded.Validation.Valid {
		printValidation(path, loaded.Validation, true)
		return 1
	}

	g := loaded.Graph
	fmt.Printf("id: %s\nname: %s\nversion: %s\n", g.Metadata.ID, g.Metadata.Name, g.Metadata.Version)
	fmt.Printf("nodes: %d, relations: %d\n", len(g.Nodes()), len(g.Relations()))
	fmt.Printf("entry points: %v\n", g.EntryPoints)
	fmt.Printf("exit points: %v\n", g.ExitPoints)

	if *showDeps {
		for _, dep := range g.Metadata.Dependencies {
			fmt.Printf("depends on: %s@%s\n", dep.ID, dep.Version)
		}
	}
	if *showGraph {
		data, _ := json.MarshalIndent(g, "", "  ")
		fmt.Println(string(data))
	}

	return 0
}

func runExamples(args []string) int {
	fs := flag.NewFlagSet("examples", flag.ExitOnError)
	dir := fs.String("path", "examples", "directory to write sample documents to")
	fs.Parse(args)

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		fmt.Printf("%s %s\n", redCross, err)
		return 1
	}

	for _, ex := range builtinExamples() {
		path := fmt.Sprintf("%s/%s.form", *dir, ex.Name)
		data, err := json.MarshalIndent(ex.Document, "", "  ")
		if err != nil {
			fmt.Printf("%s %s: %s\n", redCross, ex.Name, err)
			return 1
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			fmt.Printf("%s %s: %s\n", redCross, path, err)
			return 1
		}
		fmt.Printf("✓ wrote %s\n", path)
	}

	return 0
}
