package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/o2r-project/erc-checker/pkg/config"
	"github.com/o2r-project/erc-checker/pkg/logging"
	"github.com/o2r-project/erc-checker/pkg/models"
)

// validateCheckFlags validates the check command flags.
// Path checks are left to the engine, which reports all of them at once.
func validateCheckFlags(cmd *cobra.Command) error {
	if checkFlags.Format != "" {
		validFormats := map[string]bool{"human": true, "json": true}
		if !validFormats[checkFlags.Format] {
			return fmt.Errorf("invalid output format: %s (valid: human, json)", checkFlags.Format)
		}
	}

	validMethods := map[string]bool{"pixel": true, "digest": true}
	if !validMethods[checkFlags.Method] {
		return fmt.Errorf("invalid comparison method: %s (valid: pixel, digest)", checkFlags.Method)
	}

	if checkFlags.MainDir != "" && !checkFlags.DirMode && !cmd.Flags().Changed("request") {
		return fmt.Errorf("--main-dir requires --dir-mode")
	}

	if cmd.Flags().Changed("workers") && checkFlags.Workers < 1 {
		return fmt.Errorf("invalid number of workers: %d (must be at least 1)", checkFlags.Workers)
	}

	if cmd.Flags().Changed("threshold") && (checkFlags.Threshold < 0 || checkFlags.Threshold > 1020) {
		return fmt.Errorf("invalid threshold: %d (valid: 0-1020)", checkFlags.Threshold)
	}

	if globalFlags.Quiet && globalFlags.Verbose {
		return fmt.Errorf("--quiet and --verbose cannot be combined")
	}

	return nil
}

// loadConfig loads configuration from file or returns default,
// then applies environment overrides
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if globalFlags.ConfigFile != "" {
		cfg, err = config.LoadFromFile(globalFlags.ConfigFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	if err := config.ApplyEnv(cfg, globalFlags.EnvFile); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyGlobalFlagsToConfig overrides config values with global flags
func applyGlobalFlagsToConfig(cfg *config.Config) {
	if globalFlags.LogFile != "" {
		cfg.Logging.File = globalFlags.LogFile
	}
	if globalFlags.LogFormat != "" {
		cfg.Logging.Format = globalFlags.LogFormat
	}
	if globalFlags.LogLevel != "" {
		cfg.Logging.Level = globalFlags.LogLevel
	}
	if checkFlags.Format != "" {
		cfg.Output.Format = checkFlags.Format
	}

	// Disable progress in quiet mode
	if globalFlags.Quiet {
		cfg.Output.Progress = false
		cfg.Output.Quiet = true
	}

	// Verbose raises stderr logging to info unless a level was given
	if globalFlags.Verbose && globalFlags.LogLevel == "" && cfg.Logging.Level == "warn" {
		cfg.Logging.Level = "info"
	}
}

// buildRequestOptions layers the request file and the check flags on the
// options implied by cfg
func buildRequestOptions(cmd *cobra.Command, cfg *config.Config) (models.RequestOptions, error) {
	opts := cfg.RequestOptions()

	if checkFlags.Request != "" {
		file, err := os.Open(checkFlags.Request)
		if err != nil {
			return models.RequestOptions{}, fmt.Errorf("failed to open request file: %w", err)
		}
		defer file.Close()

		fromFile, err := models.DecodeRequestOptions(file)
		if err != nil {
			return models.RequestOptions{}, err
		}
		opts = mergeOptions(opts, fromFile)
	}

	flags := cmd.Flags()
	str := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	flag := func(name string, dst *bool, v bool) {
		if flags.Changed(name) {
			*dst = v
		}
	}

	str("original", &opts.OriginalPath, checkFlags.Original)
	str("reproduced", &opts.ReproducedPath, checkFlags.Reproduced)
	str("main-dir", &opts.MainDirectory, checkFlags.MainDir)
	str("base-dir", &opts.BaseDir, checkFlags.BaseDir)
	str("output-dir", &opts.OutputDir, checkFlags.OutputDir)
	str("out-file", &opts.OutFileName, checkFlags.OutFile)
	str("ignore-file", &opts.IgnoreFile, checkFlags.IgnoreFile)
	str("erc-id", &opts.ERCID, checkFlags.ERCID)
	flag("dir-mode", &opts.DirectoryMode, checkFlags.DirMode)
	flag("save-diff", &opts.SaveDiffHTML, checkFlags.SaveDiff)
	flag("save-metadata", &opts.SaveMetadataJSON, checkFlags.SaveMetadata)
	flag("create-parents", &opts.CreateParentDirectories, checkFlags.CreateParents)
	if flags.Changed("ext") {
		opts.Extensions = append([]string(nil), checkFlags.Extensions...)
	}
	if flags.Changed("workers") {
		opts.MaxWorkers = checkFlags.Workers
	}
	if flags.Changed("threshold") {
		opts.PixelThreshold = checkFlags.Threshold
	}
	if globalFlags.Quiet {
		opts.Quiet = true
	}

	return opts, nil
}

// mergeOptions returns base with every non-zero option of over applied
func mergeOptions(base, over models.RequestOptions) models.RequestOptions {
	str := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	str(&base.MainDirectory, over.MainDirectory)
	str(&base.OriginalPath, over.OriginalPath)
	str(&base.ReproducedPath, over.ReproducedPath)
	str(&base.BaseDir, over.BaseDir)
	str(&base.OutputDir, over.OutputDir)
	str(&base.OutFileName, over.OutFileName)
	str(&base.IgnoreFile, over.IgnoreFile)
	str(&base.ERCID, over.ERCID)

	base.DirectoryMode = base.DirectoryMode || over.DirectoryMode
	base.SaveDiffHTML = base.SaveDiffHTML || over.SaveDiffHTML
	base.SaveMetadataJSON = base.SaveMetadataJSON || over.SaveMetadataJSON
	base.CreateParentDirectories = base.CreateParentDirectories || over.CreateParentDirectories
	base.Quiet = base.Quiet || over.Quiet

	if len(over.Extensions) > 0 {
		base.Extensions = append([]string(nil), over.Extensions...)
	}
	if over.MaxWorkers != 0 {
		base.MaxWorkers = over.MaxWorkers
	}
	if over.PixelThreshold != 0 {
		base.PixelThreshold = over.PixelThreshold
	}
	return base
}

// createLogger creates a logger based on configuration
func createLogger(cfg *config.Config) (logging.Logger, error) {
	if cfg.Output.Quiet && cfg.Logging.File == "" {
		return logging.NewNullLogger(), nil
	}

	format := logging.ParseFormat(cfg.Logging.Format)
	level := logging.ParseLevel(cfg.Logging.Level)

	if cfg.Logging.File == "" {
		return logging.NewWriterLogger(os.Stderr, format, level), nil
	}

	return logging.NewFileLogger(logging.FileLoggerConfig{
		Path:       cfg.Logging.File,
		Format:     format,
		Level:      level,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
	})
}
