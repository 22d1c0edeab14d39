package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/tmarland/kindred/internal/logging"
	"github.com/tmarland/kindred/internal/output"
	"github.com/tmarland/kindred/internal/progress"
	"github.com/tmarland/kindred/pkg/analyzer/similarity"
	"github.com/tmarland/kindred/pkg/config"
	"github.com/tmarland/kindred/pkg/scanner"
	"github.com/tmarland/kindred/pkg/source"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

func main() {
	app := &cli.App{
		Name:    "kindred",
		Usage:   "Cross-repository code similarity detector",
		Version: version,
		Description: `Kindred compares two source trees for structural similarity after
renaming-resistant normalization: identifiers become positional
placeholders, literals collapse, and comments vanish, so copied code
scores high no matter how thoroughly it was re-labeled.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"KINDRED_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "Output format: text, json, markdown",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
				Usage: "Diagnostic log level: trace, debug, info, warn, error, quiet",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug diagnostics",
			},
		},
		Before: func(c *cli.Context) error {
			logging.Init(c.String("log-level"), c.Bool("verbose"))
			return nil
		},
		Commands: []*cli.Command{
			compareCmd(),
			fingerprintCmd(),
			serveCmd(),
			initCmd(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective config for a command invocation.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
		cfg = loaded
	} else {
		cfg = config.LoadOrDefault()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// scanTree resolves a positional argument to an absolute root plus the
// relative paths of its comparable files.
func scanTree(scan *scanner.Scanner, path string) (string, []string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", nil, fmt.Errorf("invalid path %s: %w", path, err)
	}
	files, err := scan.ScanDir(absPath)
	if err != nil {
		return "", nil, fmt.Errorf("failed to scan directory %s: %w", path, err)
	}
	return absPath, files, nil
}

func compareCmd() *cli.Command {
	return &cli.Command{
		Name:      "compare",
		Aliases:   []string{"cmp"},
		Usage:     "Compare two repositories for code similarity",
		ArgsUsage: "<repoA> <repoB>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "top",
				Value: output.DefaultTopPairs,
				Usage: "Show top N file pairs",
			},
			&cli.IntFlag{
				Name:    "shingle-size",
				Aliases: []string{"k"},
				Usage:   "Override the k-gram window length",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Worker pool size (0 = 2x NumCPU)",
			},
			&cli.Float64Flag{
				Name:  "fail-above",
				Usage: "Exit non-zero when overall similarity meets this threshold (0 disables)",
			},
		},
		Action: runCompareCmd,
	}
}

func runCompareCmd(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("compare requires exactly two repository paths, got %d", c.Args().Len())
	}
	pathA := c.Args().Get(0)
	pathB := c.Args().Get(1)

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	scan := scanner.NewScanner(cfg)

	rootA, filesA, err := scanTree(scan, pathA)
	if err != nil {
		return err
	}
	rootB, filesB, err := scanTree(scan, pathB)
	if err != nil {
		return err
	}

	opts := []similarity.Option{
		similarity.WithConfig(cfg),
		similarity.WithLogger(log.Logger),
	}
	if k := c.Int("shingle-size"); k > 0 {
		opts = append(opts, similarity.WithShingleSize(k))
	}
	if w := c.Int("workers"); w > 0 {
		opts = append(opts, similarity.WithWorkers(w))
	}

	analyzer, err := similarity.NewAnalyzer(opts...)
	if err != nil {
		return err
	}

	colA := similarity.Collection{Name: pathA, Files: filesA, Source: source.NewDir(rootA)}
	colB := similarity.Collection{Name: pathB, Files: filesB, Source: source.NewDir(rootB)}

	tracker := progress.NewTracker("Comparing repositories...", len(filesA)+len(filesB))
	result, err := analyzer.AnalyzeReposWithProgress(colA, colB, tracker.Tick)
	tracker.Finish()
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	formatter, err := output.NewFormatter(output.ParseFormat(c.String("format")), c.String("output"), cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	report := output.NewCompareReport(result)
	report.TopN = c.Int("top")
	if err := formatter.Output(report); err != nil {
		return err
	}

	if threshold := c.Float64("fail-above"); threshold > 0 && result.Overall >= threshold {
		return cli.Exit(fmt.Sprintf("overall similarity %.4f meets threshold %.4f", result.Overall, threshold), 2)
	}
	return nil
}

func fingerprintCmd() *cli.Command {
	return &cli.Command{
		Name:      "fingerprint",
		Aliases:   []string{"fp"},
		Usage:     "Fingerprint a source tree without comparing it",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "shingle-size",
				Aliases: []string{"k"},
				Usage:   "Override the k-gram window length",
			},
		},
		Action: runFingerprintCmd,
	}
}

func runFingerprintCmd(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		paths = []string{"."}
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	scan := scanner.NewScanner(cfg)

	opts := []similarity.Option{
		similarity.WithConfig(cfg),
		similarity.WithLogger(log.Logger),
	}
	if k := c.Int("shingle-size"); k > 0 {
		opts = append(opts, similarity.WithShingleSize(k))
	}
	analyzer, err := similarity.NewAnalyzer(opts...)
	if err != nil {
		return err
	}

	formatter, err := output.NewFormatter(output.ParseFormat(c.String("format")), c.String("output"), cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	var allRecords []similarity.FileRecord
	var allWarnings []similarity.Warning

	for _, path := range paths {
		root, files, err := scanTree(scan, path)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			continue
		}

		col := similarity.Collection{Name: path, Files: files, Source: source.NewDir(root)}
		tracker := progress.NewTracker("Fingerprinting files...", len(files))
		records, warnings := analyzer.FingerprintRepoWithProgress(col, tracker.Tick)
		tracker.Finish()

		allRecords = append(allRecords, records...)
		allWarnings = append(allWarnings, warnings...)
	}

	if len(allRecords) == 0 {
		color.Yellow("No source files found")
		return nil
	}

	var rows [][]string
	for _, rec := range allRecords {
		rows = append(rows, []string{
			rec.Path,
			fmt.Sprintf("%d", rec.RawTokens),
			fmt.Sprintf("%d", rec.NormTokens),
			fmt.Sprintf("%d", rec.Fingerprints),
			fmt.Sprintf("%016x", rec.SequenceDigest),
		})
	}

	table := output.NewTable(
		"Fingerprint Summary",
		[]string{"File", "Raw Tokens", "Norm Tokens", "Fingerprints", "Digest"},
		rows,
		[]string{
			fmt.Sprintf("Files: %d", len(allRecords)),
			"", "", "",
			fmt.Sprintf("Skipped: %d", len(allWarnings)),
		},
		struct {
			Files    []similarity.FileRecord `json:"files"`
			Warnings []similarity.Warning    `json:"warnings,omitempty"`
		}{allRecords, allWarnings},
	)

	if err := formatter.Output(table); err != nil {
		return err
	}

	if len(allWarnings) > 0 && formatter.Format() == output.FormatText {
		color.Yellow("Skipped (%d):", len(allWarnings))
		for _, w := range allWarnings {
			fmt.Printf("  - %s: %s\n", w.Path, w.Reason)
		}
	}
	return nil
}
