package main

import (
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/validation"
)

type violation struct {
	file     string
	location string
	message  string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("formflow-lint", flag.ContinueOnError)
	flags.SetOutput(stderr)
	quiet := flags.Bool("quiet", false, "only print violations")
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "Usage: %s [flags] paths...\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(flags.Output(), "\nLint form schema files. Directories are searched for .yaml, .yml and .json files.\n\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return 2
	}

	files, err := expand(flags.Args())
	if err != nil {
		fmt.Fprintf(stderr, "lint: %v\n", err)
		return 1
	}

	registry := form.NewRegistry()
	var violations []violation
	for _, file := range files {
		result := validation.ValidateFile(file, registry)
		for _, issue := range result.Issues {
			location := issue.Field
			if location == "" {
				location = issue.Path
			}
			if location == "" {
				location = "document"
			}
			violations = append(violations, violation{file: file, location: location, message: issue.Message})
		}
	}

	if len(violations) > 0 {
		sort.Slice(violations, func(i, j int) bool {
			if violations[i].file == violations[j].file {
				if violations[i].location == violations[j].location {
					return violations[i].message < violations[j].message
				}
				return violations[i].location < violations[j].location
			}
			return violations[i].file < violations[j].file
		})
		for _, v := range violations {
			fmt.Fprintf(stderr, "%s: %s -> %s\n", v.file, v.location, v.message)
		}
		return 1
	}
	if !*quiet {
		fmt.Fprintf(stdout, "%d file(s) ok\n", len(files))
	}
	return 0
}

// expand replaces directories with the schema files they contain.
func expand(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, entry fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if !entry.IsDir() && schema.IsSchemaFile(p) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
