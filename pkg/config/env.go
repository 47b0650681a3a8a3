package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/o2r-project/erc-checker/pkg/models"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "ERC_CHECKER_"

// DefaultEnvFile is read by ApplyEnv when present in the working directory
const DefaultEnvFile = ".env"

// ApplyEnv overrides cfg with ERC_CHECKER_* variables.
// Values come from the process environment first, then from envFile.
// An empty envFile means DefaultEnvFile, which may be absent; an explicit
// envFile must exist.
func ApplyEnv(cfg *Config, envFile string) error {
	fileVars := map[string]string{}

	path := envFile
	if path == "" {
		path = DefaultEnvFile
	}
	if _, err := os.Stat(path); err == nil || envFile != "" {
		vars, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("failed to read env file: %w", err)
		}
		fileVars = vars
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return err
	}
	return cfg.Validate()
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &models.ValidationError{Field: EnvPrefix + name, Message: "must be an integer"}
		}
		*dst = n
		return nil
	}
	flag := func(name string, dst *bool) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return &models.ValidationError{Field: EnvPrefix + name, Message: "must be a boolean"}
		}
		*dst = b
		return nil
	}

	str("BASE_DIR", &cfg.Check.BaseDir)
	str("IGNORE_FILE", &cfg.Check.IgnoreFile)
	if v, ok := lookup(EnvPrefix + "EXTENSIONS"); ok {
		var exts []string
		for _, ext := range strings.Split(v, ",") {
			if ext = strings.TrimSpace(ext); ext != "" {
				exts = append(exts, ext)
			}
		}
		cfg.Check.Extensions = exts
	}
	if err := num("PIXEL_THRESHOLD", &cfg.Check.PixelThreshold); err != nil {
		return err
	}
	if err := num("MAX_WORKERS", &cfg.Performance.MaxWorkers); err != nil {
		return err
	}

	str("OUTPUT_DIR", &cfg.Output.Dir)
	str("OUTPUT_FORMAT", &cfg.Output.Format)
	str("OUT_FILE", &cfg.Output.FileName)
	if err := flag("SAVE_DIFF", &cfg.Output.SaveDiffHTML); err != nil {
		return err
	}
	if err := flag("SAVE_METADATA", &cfg.Output.SaveMetadataJSON); err != nil {
		return err
	}
	if err := flag("CREATE_PARENTS", &cfg.Output.CreateParentDirectories); err != nil {
		return err
	}
	if err := flag("QUIET", &cfg.Output.Quiet); err != nil {
		return err
	}

	str("LOG_FORMAT", &cfg.Logging.Format)
	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FILE", &cfg.Logging.File)

	return nil
}
