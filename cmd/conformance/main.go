package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/specparity/specparity/internal/files"
	"github.com/specparity/specparity/pkg/conformance"
	"github.com/specparity/specparity/pkg/config"
	"github.com/specparity/specparity/pkg/loader"
	"github.com/specparity/specparity/pkg/openapi"
	"github.com/specparity/specparity/pkg/report"
)

const (
	exitOK         = 0
	exitViolations = 1
	exitError      = 2
)

type runOptions struct {
	refPath    string
	implPath   string
	policyPath string
	format     string
	endpoint   string
	outPath    string
	verbose    bool
	noFail     bool
	watch      bool
}

func main() {
	// The report goes to stdout, logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
	}

	ctx := context.Background()

	if opts.watch {
		os.Exit(runWatch(ctx, opts))
	}

	hasViolations, err := runOnce(ctx, opts)
	if err != nil {
		slog.Error("Conformance run failed", "error", err)
		os.Exit(exitError)
	}
	if hasViolations && !opts.noFail {
		os.Exit(exitViolations)
	}
	os.Exit(exitOK)
}

func parseArgs(args []string) (runOptions, error) {
	var opts runOptions

	fs := flag.NewFlagSet("conformance", flag.ContinueOnError)
	fs.StringVar(&opts.refPath, "ref", "", "path or URL of the reference OpenAPI spec")
	fs.StringVar(&opts.implPath, "impl", "", "path or URL of the implementation OpenAPI spec")
	fs.StringVar(&opts.policyPath, "policy", "", "path to a governance policy file, compiled-in defaults otherwise")
	fs.StringVar(&opts.format, "format", "text", "output format: text or json")
	fs.StringVar(&opts.endpoint, "endpoint", "", "only check reference paths containing this value")
	fs.StringVar(&opts.outPath, "out", "", "write the report to this file instead of stdout")
	fs.BoolVar(&opts.verbose, "verbose", false, "list out-of-scope endpoints and log preflight details")
	fs.BoolVar(&opts.noFail, "no-fail", false, "exit 0 even when violations are found")
	fs.BoolVar(&opts.watch, "watch", false, "re-run whenever a watched spec or the policy file changes")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if rest := fs.Args(); len(rest) == 2 && opts.refPath == "" && opts.implPath == "" {
		opts.refPath = rest[0]
		opts.implPath = rest[1]
	}

	if opts.refPath == "" || opts.implPath == "" {
		return opts, errors.New("both specs are required: -ref and -impl, or two positional arguments")
	}
	if opts.format != "text" && opts.format != "json" {
		return opts, fmt.Errorf("unknown format %q, want text or json", opts.format)
	}

	return opts, nil
}

func runOnce(ctx context.Context, opts runOptions) (bool, error) {
	cfg := config.MustPolicyConfig(opts.policyPath)

	ref, err := loadSpec(ctx, "reference", opts.refPath, opts.verbose)
	if err != nil {
		return false, err
	}
	impl, err := loadSpec(ctx, "implementation", opts.implPath, opts.verbose)
	if err != nil {
		return false, err
	}

	checker := conformance.NewChecker(ref, impl, cfg.Scope(), cfg.Policy())
	result := checker.CheckEndpoints(opts.endpoint)

	rendered, err := renderReport(result, opts)
	if err != nil {
		return false, fmt.Errorf("rendering report: %w", err)
	}
	if err := writeOutput(opts.outPath, rendered); err != nil {
		return false, fmt.Errorf("writing report: %w", err)
	}

	return result.HasViolations(), nil
}

func loadSpec(ctx context.Context, label, pathOrURL string, verbose bool) (*openapi.Document, error) {
	content, err := files.ReadFileOrURL(ctx, pathOrURL)
	if err != nil {
		return nil, fmt.Errorf("reading %s spec %s: %w", label, pathOrURL, err)
	}

	if verbose {
		info := loader.Preflight(ctx, content)
		slog.Info("Spec preflight",
			"spec", label,
			"openapi", info.SpecVersion,
			"title", info.Title,
			"version", info.Version,
			"paths", info.PathCount)
		for _, warning := range info.Warnings {
			slog.Warn("Spec preflight warning", "spec", label, "detail", warning)
		}
	}

	doc, err := loader.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s spec %s: %w", label, pathOrURL, err)
	}
	return doc, nil
}

func renderReport(result *conformance.Report, opts runOptions) (string, error) {
	if opts.format == "json" {
		return report.JSON(result)
	}
	if opts.verbose {
		return report.TextVerbose(result), nil
	}
	return report.Text(result), nil
}

func writeOutput(path, content string) error {
	if path == "" {
		fmt.Println(content)
		return nil
	}
	return os.WriteFile(path, []byte(content+"\n"), 0o644)
}

func runWatch(ctx context.Context, opts runOptions) int {
	var mu sync.Mutex
	var lastFailed *bool

	runAndLog := func() {
		hasViolations, err := runOnce(ctx, opts)
		if err != nil {
			slog.Error("Conformance run failed", "error", err)
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if lastFailed != nil && *lastFailed != hasViolations {
			if hasViolations {
				slog.Warn("Conformance status changed", "status", "FAIL")
			} else {
				slog.Info("Conformance status changed", "status", "PASS")
			}
		}
		lastFailed = &hasViolations
	}

	watcher, err := newSpecWatcher([]string{opts.refPath, opts.implPath, opts.policyPath}, runAndLog)
	if err != nil {
		slog.Error("Failed to start watch mode", "error", err)
		return exitError
	}
	watcher.start()
	defer watcher.stop()

	runAndLog()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down watch mode")
	return exitOK
}
