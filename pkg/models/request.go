package models

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default option values applied by NewCheckRequest
const (
	DefaultBaseDir        = "."
	DefaultIgnoreFile     = ".ercignore"
	DefaultMaxWorkers     = 5
	DefaultDiffFileName   = "diffHTML.html"
	MetadataFileName      = "metadata.json"
	AcceptAllExtensions   = "*"
	DefaultPixelThreshold = 0
)

// DefaultExtensions are the accepted suffixes when the caller supplies none
var DefaultExtensions = []string{".html", ".htm"}

// RequestOptions enumerates every option a check accepts.
// Zero values are replaced by defaults in NewCheckRequest.
type RequestOptions struct {
	DirectoryMode           bool     `yaml:"directoryMode" json:"directoryMode"`
	MainDirectory           string   `yaml:"pathToMainDirectory" json:"pathToMainDirectory"`
	OriginalPath            string   `yaml:"pathToOriginalHTML" json:"pathToOriginalHTML"`
	ReproducedPath          string   `yaml:"pathToReproducedHTML" json:"pathToReproducedHTML"`
	BaseDir                 string   `yaml:"comparisonSetBaseDir" json:"comparisonSetBaseDir"`
	OutputDir               string   `yaml:"saveFilesOutputPath" json:"saveFilesOutputPath"`
	SaveDiffHTML            bool     `yaml:"saveDiffHTML" json:"saveDiffHTML"`
	SaveMetadataJSON        bool     `yaml:"saveMetadataJSON" json:"saveMetadataJSON"`
	CreateParentDirectories bool     `yaml:"createParentDirectories" json:"createParentDirectories"`
	Extensions              []string `yaml:"checkFileTypes" json:"checkFileTypes"`
	OutFileName             string   `yaml:"outFileName" json:"outFileName"`
	IgnoreFile              string   `yaml:"ignoreFile" json:"ignoreFile"`
	ERCID                   string   `yaml:"ercID" json:"ercID"`
	Quiet                   bool     `yaml:"quiet" json:"quiet"`
	MaxWorkers              int      `yaml:"maxWorkers" json:"maxWorkers"`
	PixelThreshold          int      `yaml:"pixelThreshold" json:"pixelThreshold"`
}

// DecodeRequestOptions reads options from a YAML (or JSON) document.
// Unknown keys are rejected.
func DecodeRequestOptions(r io.Reader) (RequestOptions, error) {
	var opts RequestOptions
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return RequestOptions{}, Reject(NewCheckError(KindConfig, fmt.Sprintf("invalid request options: %v", err), ""))
	}
	return opts, nil
}

// CheckRequest is the validated, fully defaulted input of one check.
// It is passed by value; slice accessors return copies.
type CheckRequest struct {
	directoryMode    bool
	mainDirectory    string
	originalPath     string
	reproducedPath   string
	baseDir          string
	outputDir        string
	saveDiffHTML     bool
	saveMetadataJSON bool
	createParents    bool
	extensions       []string
	outFileName      string
	ignoreFile       string
	ercID            string
	quiet            bool
	maxWorkers       int
	pixelThreshold   int
}

// NewCheckRequest applies defaults to opts and validates the result
func NewCheckRequest(opts RequestOptions) (CheckRequest, error) {
	req := CheckRequest{
		directoryMode:    opts.DirectoryMode,
		mainDirectory:    strings.TrimSpace(opts.MainDirectory),
		originalPath:     strings.TrimSpace(opts.OriginalPath),
		reproducedPath:   strings.TrimSpace(opts.ReproducedPath),
		baseDir:          strings.TrimSpace(opts.BaseDir),
		outputDir:        strings.TrimSpace(opts.OutputDir),
		saveDiffHTML:     opts.SaveDiffHTML,
		saveMetadataJSON: opts.SaveMetadataJSON,
		createParents:    opts.CreateParentDirectories,
		outFileName:      strings.TrimSpace(opts.OutFileName),
		ignoreFile:       strings.TrimSpace(opts.IgnoreFile),
		ercID:            strings.TrimSpace(opts.ERCID),
		quiet:            opts.Quiet,
		maxWorkers:       opts.MaxWorkers,
		pixelThreshold:   opts.PixelThreshold,
	}

	if req.baseDir == "" {
		req.baseDir = DefaultBaseDir
	}
	if req.ignoreFile == "" {
		req.ignoreFile = DefaultIgnoreFile
	}
	if req.outFileName == "" {
		req.outFileName = DefaultDiffFileName
	}
	if req.maxWorkers == 0 {
		req.maxWorkers = DefaultMaxWorkers
	}
	req.extensions = normalizeExtensions(opts.Extensions)

	if err := req.Validate(); err != nil {
		return CheckRequest{}, err
	}
	return req, nil
}

// Validate checks if the request is usable
func (r CheckRequest) Validate() error {
	var errs []*CheckError

	if r.directoryMode {
		if r.mainDirectory == "" && (r.originalPath == "" || r.reproducedPath == "") {
			errs = append(errs, NewCheckError(KindInvalidPath,
				"directory mode requires both directory paths or a main directory", ""))
		}
	} else {
		if r.originalPath == "" {
			errs = append(errs, NewCheckError(KindInvalidPath, "path to original HTML is required", ""))
		}
		if r.reproducedPath == "" {
			errs = append(errs, NewCheckError(KindInvalidPath, "path to reproduced HTML is required", ""))
		}
	}

	if r.Persists() && r.outputDir == "" {
		errs = append(errs, NewCheckError(KindOutputWrite,
			"an output directory is required to save the diff document or metadata", ""))
	}
	if strings.ContainsAny(r.outFileName, `/\`) {
		errs = append(errs, NewCheckError(KindConfig,
			"output file name must not contain a path separator", r.outFileName))
	}
	if r.maxWorkers < 1 {
		errs = append(errs, NewCheckError(KindConfig,
			(&ValidationError{Field: "maxWorkers", Message: "must be at least 1"}).Error(), ""))
	}
	if r.pixelThreshold < 0 || r.pixelThreshold > 1020 {
		errs = append(errs, NewCheckError(KindConfig,
			(&ValidationError{Field: "pixelThreshold", Message: "must be between 0 and 1020"}).Error(), ""))
	}

	if len(errs) > 0 {
		return Reject(errs...)
	}
	return nil
}

func normalizeExtensions(exts []string) []string {
	if len(exts) == 0 {
		return append([]string(nil), DefaultExtensions...)
	}
	out := make([]string, 0, len(exts))
	seen := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if ext != AcceptAllExtensions && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if seen[ext] {
			continue
		}
		seen[ext] = true
		out = append(out, ext)
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultExtensions...)
	}
	return out
}

// Accessors of the normalized options. Extensions returns a copy.

func (r CheckRequest) DirectoryMode() bool      { return r.directoryMode }
func (r CheckRequest) MainDirectory() string    { return r.mainDirectory }
func (r CheckRequest) OriginalPath() string     { return r.originalPath }
func (r CheckRequest) ReproducedPath() string   { return r.reproducedPath }
func (r CheckRequest) BaseDir() string          { return r.baseDir }
func (r CheckRequest) OutputDir() string        { return r.outputDir }
func (r CheckRequest) SaveDiffHTML() bool       { return r.saveDiffHTML }
func (r CheckRequest) SaveMetadataJSON() bool   { return r.saveMetadataJSON }
func (r CheckRequest) CreateParents() bool      { return r.createParents }
func (r CheckRequest) OutFileName() string      { return r.outFileName }
func (r CheckRequest) IgnoreFile() string       { return r.ignoreFile }
func (r CheckRequest) ERCID() string            { return r.ercID }
func (r CheckRequest) Quiet() bool              { return r.quiet }
func (r CheckRequest) MaxWorkers() int          { return r.maxWorkers }
func (r CheckRequest) PixelThreshold() int      { return r.pixelThreshold }
func (r CheckRequest) Extensions() []string     { return append([]string(nil), r.extensions...) }
// Persists reports whether any artifact is to be written
func (r CheckRequest) Persists() bool           { return r.saveDiffHTML || r.saveMetadataJSON }
func (r CheckRequest) MetadataFilePath() string { return filepath.Join(r.outputDir, MetadataFileName) }
func (r CheckRequest) DiffFilePath() string     { return filepath.Join(r.outputDir, r.outFileName) }

// Mode returns "directory" or "file"
func (r CheckRequest) Mode() string {
	if r.directoryMode {
		return "directory"
	}
	return "file"
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
