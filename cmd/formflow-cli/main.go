package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow"
	"github.com/goliatone/go-formflow/internal/config"
	"github.com/goliatone/go-formflow/internal/logging"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/messages"
	"github.com/goliatone/go-formflow/pkg/orchestrator"
	"github.com/goliatone/go-formflow/pkg/prompt"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], prompt.NewSurveyDriver(os.Stderr), os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, driver prompt.Driver, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("formflow-cli", flag.ContinueOnError)
	flags.SetOutput(stderr)
	schemaPath := flags.String("schema", "", "form schema (YAML/JSON) or OpenAPI document path")
	operationID := flags.String("operation", "", "OpenAPI operation whose request body becomes the form")
	configPath := flags.String("config", "", "config file (defaults to "+config.DefaultFile+" when present)")
	valuesPath := flags.String("values", "", "YAML/JSON file with initial values")
	presetPath := flags.String("preset", "", "YAML/JSON preset applied to the definition")
	noInput := flags.Bool("no-input", false, "validate the initial values without prompting")
	settleTimeout := flags.Duration("settle-timeout", 10*time.Second, "how long to wait for async validators before reporting")
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "Usage: %s --schema path [flags]\n\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(flags.Output(), "Fill a form interactively and print its value as JSON.\n\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if *schemaPath == "" {
		flags.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(stderr, "logging: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()
	ctx = logging.WithLogger(ctx, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	options, err := buildOptions(cfg, *presetPath)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	req := formflow.Request{Path: *schemaPath, OperationID: *operationID}
	if *valuesPath != "" {
		if req.Values, err = loadValues(*valuesPath); err != nil {
			fmt.Fprintf(stderr, "values: %v\n", err)
			return 1
		}
	}

	result, err := formflow.Build(ctx, req, options...)
	if err != nil {
		var lintErr *formflow.LintError
		if errors.As(err, &lintErr) {
			for _, issue := range lintErr.Issues {
				fmt.Fprintf(stderr, "%s: %s -> %s\n", *schemaPath, issue.Field, issue.Message)
			}
			return 1
		}
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	if !*noInput {
		err := prompt.Fill(ctx, driver, result.Form,
			prompt.WithCatalog(result.Catalog),
			prompt.WithMaxAttempts(cfg.Prompt.MaxAttempts),
		)
		if errors.Is(err, prompt.ErrAborted) {
			fmt.Fprintln(stderr, "aborted")
			return 1
		}
		if err != nil {
			fmt.Fprintf(stderr, "prompt: %v\n", err)
			return 1
		}
	}

	if pending := await(ctx, result.Form, *settleTimeout); len(pending) > 0 {
		for _, path := range pending {
			fmt.Fprintf(stderr, "%s: still validating\n", path)
		}
		return 1
	}

	payload, err := json.MarshalIndent(result.Form.Value(), "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "encode: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(payload))

	if !result.Form.Valid() {
		logger.Debug("form invalid", zap.String("status", string(result.Form.Status())))
		printMessages(stderr, result.Messages())
		return 1
	}
	return 0
}

// await blocks until c has no async validation in flight or wait elapses. It
// returns the paths of the fields that are still pending.
func await(ctx context.Context, c form.Control, wait time.Duration) []string {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := prompt.Settle(ctx, c); err == nil {
		return nil
	}

	var pending []string
	form.Walk(c, func(path string, control form.Control) bool {
		if !control.Pending() {
			return false
		}
		if _, leaf := control.(*form.Field); leaf {
			pending = append(pending, path)
		}
		return true
	})
	if len(pending) == 0 && c.Pending() {
		pending = []string{"form"}
	}
	for i, path := range pending {
		if path == "" {
			pending[i] = "form"
		}
	}
	return pending
}

func buildOptions(cfg *config.Config, presetPath string) ([]orchestrator.Option, error) {
	var options []orchestrator.Option
	if cfg.Messages != "" {
		templates, err := messages.LoadFile(cfg.Messages)
		if err != nil {
			return nil, err
		}
		catalog, err := messages.New(messages.WithTemplates(templates))
		if err != nil {
			return nil, err
		}
		options = append(options, formflow.WithCatalog(catalog))
	}
	if presetPath != "" {
		preset, err := orchestrator.NewPresetTransformerFromFS(os.DirFS(filepath.Dir(presetPath)), filepath.Base(presetPath))
		if err != nil {
			return nil, err
		}
		options = append(options, formflow.WithTransformer(preset))
	}
	return options, nil
}

func loadValues(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return values, nil
}

func printMessages(w io.Writer, byPath map[string][]messages.Message) {
	paths := make([]string, 0, len(byPath))
	for path := range byPath {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		location := path
		if location == "" {
			location = "form"
		}
		for _, msg := range byPath[path] {
			fmt.Fprintf(w, "%s: %s\n", location, msg.Text)
		}
	}
}
