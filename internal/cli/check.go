package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/o2r-project/erc-checker/pkg/check"
	"github.com/o2r-project/erc-checker/pkg/compare"
	"github.com/o2r-project/erc-checker/pkg/models"
	"github.com/o2r-project/erc-checker/pkg/output"
)

// CheckFlags holds check command flags
type CheckFlags struct {
	Original      string
	Reproduced    string
	DirMode       bool
	MainDir       string
	BaseDir       string
	OutputDir     string
	SaveDiff      bool
	SaveMetadata  bool
	CreateParents bool
	Extensions    []string
	OutFile       string
	IgnoreFile    string
	ERCID         string
	Workers       int
	Threshold     int
	Method        string
	Format        string
	Request       string
}

var checkFlags CheckFlags

// exit terminates the process; replaced in tests
var exit = os.Exit

// NewCheckCommand creates the check command
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare a reproduced paper with its original",
		Long: `Compare the original and the reproduced HTML rendering of a paper,
text and embedded images, and report every difference.

Exit codes: 0 renderings match, 1 differences found, 2 check rejected.`,
		Args: cobra.NoArgs,
		RunE: runCheck,
	}

	f := cmd.Flags()
	f.StringVarP(&checkFlags.Original, "original", "a", "", "original HTML file (or directory with --dir-mode)")
	f.StringVarP(&checkFlags.Reproduced, "reproduced", "b", "", "reproduced HTML file (or directory with --dir-mode)")
	f.BoolVar(&checkFlags.DirMode, "dir-mode", false, "compare two directory trees instead of two files")
	f.StringVar(&checkFlags.MainDir, "main-dir", "", "directory holding exactly two paper directories (with --dir-mode)")
	f.StringVar(&checkFlags.BaseDir, "base-dir", "", "directory relative paths are resolved against (default: .)")
	f.StringVarP(&checkFlags.OutputDir, "output-dir", "o", "", "directory the diff document and metadata are saved to")
	f.BoolVar(&checkFlags.SaveDiff, "save-diff", false, "save the diff document")
	f.BoolVar(&checkFlags.SaveMetadata, "save-metadata", false, "save metadata.json")
	f.BoolVar(&checkFlags.CreateParents, "create-parents", false, "create the output directory if it doesn't exist")
	f.StringSliceVar(&checkFlags.Extensions, "ext", nil, "accepted file suffixes in directory mode (repeatable, \"*\" accepts all)")
	f.StringVar(&checkFlags.OutFile, "out-file", "", "file name of the saved diff document (default: diffHTML.html)")
	f.StringVar(&checkFlags.IgnoreFile, "ignore-file", "", "ignore file, relative to the base directory (default: .ercignore)")
	f.StringVar(&checkFlags.ERCID, "erc-id", "", "compendium identifier attached to logs and output")
	f.IntVarP(&checkFlags.Workers, "workers", "p", 0, "number of parallel comparisons (default: 5)")
	f.IntVar(&checkFlags.Threshold, "threshold", 0, "summed RGBA delta tolerated per pixel (0-1020)")
	f.StringVar(&checkFlags.Method, "method", "pixel", "image comparison method: pixel, digest")
	f.StringVar(&checkFlags.Format, "format", "", "output format: human, json")
	f.StringVar(&checkFlags.Request, "request", "", "YAML or JSON file with request options")

	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Validate flags
	if err := validateCheckFlags(cmd); err != nil {
		return err
	}

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyGlobalFlagsToConfig(cfg)

	opts, err := buildRequestOptions(cmd, cfg)
	if err != nil {
		return err
	}
	req, err := models.NewCheckRequest(opts)
	if err != nil {
		return err
	}
	if req.Quiet() {
		// quiet may come from the request file as well as from -q
		cfg.Output.Quiet = true
		cfg.Output.Progress = false
	}

	// Create logger
	logger, err := createLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	// Create output formatter
	var writer io.Writer = cmd.OutOrStdout()
	if cfg.Output.Quiet && cfg.Output.Format != "json" {
		writer = io.Discard
	}
	formatter, err := output.New(cfg.Output.Format, cfg.Output.Progress, writer)
	if err != nil {
		return err
	}
	if err := formatter.Start(writer, req); err != nil {
		return err
	}

	engineOpts := []check.Option{
		check.WithLogger(logger),
		check.WithObserver(output.NewObserver(formatter)),
	}
	switch checkFlags.Method {
	case compare.MethodDigest:
		// Fast: byte-identical images only, no pixel statistics
		engineOpts = append(engineOpts, check.WithImageComparer(compare.NewDigestComparator()))
	case compare.MethodPixel:
		// Default: per-request pixel comparator built by the engine
	}
	engine := check.NewEngine(engineOpts...)

	result, err := engine.Run(ctx, req)
	verdict := models.VerdictOf(result, err)
	if err != nil {
		formatter.Error(err)
		if writer == io.Discard {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	} else {
		formatter.Complete(result)
	}

	// Exit with appropriate code
	logger.Close()
	exit(verdict.ExitCode())
	return nil
}
