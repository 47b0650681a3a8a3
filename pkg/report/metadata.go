package report

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/o2r-project/erc-checker/pkg/models"
)

// EncodeMetadata returns the canonical JSON form of m: two-space indent,
// no HTML escaping, trailing newline, empty arrays instead of null.
func EncodeMetadata(m *models.Metadata) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("encode metadata: nil metadata")
	}

	canonical := *m
	if canonical.ComparisonSet == nil {
		canonical.ComparisonSet = []string{}
	}
	if canonical.Images == nil {
		canonical.Images = []models.ImageResult{}
	}
	if canonical.Errors == nil {
		canonical.Errors = []*models.CheckError{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&canonical); err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeMetadata parses metadata produced by EncodeMetadata
func DecodeMetadata(data []byte) (*models.Metadata, error) {
	var m models.Metadata
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &m, nil
}
