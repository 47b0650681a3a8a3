package compare

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// SourceKind classifies an image src attribute
type SourceKind int

const (
	// SourceFile is a path relative to the embedding document, or absolute
	SourceFile SourceKind = iota
	// SourceData is an inline data URI
	SourceData
	// SourceRemote is a network location, which a check never fetches
	SourceRemote
)

// KindOf classifies an image src attribute
func KindOf(src string) SourceKind {
	lower := strings.ToLower(strings.TrimSpace(src))
	switch {
	case strings.HasPrefix(lower, "data:"):
		return SourceData
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"), strings.HasPrefix(lower, "//"):
		return SourceRemote
	default:
		return SourceFile
	}
}

// IdentityOf returns a stable, display-safe name for an image src.
// File and remote sources are their own identity; data URIs are named by
// media type and a shortened content digest.
func IdentityOf(src string) string {
	src = strings.TrimSpace(src)
	if KindOf(src) != SourceData {
		return src
	}
	mediaType, data, err := DecodeDataURI(src)
	if err != nil {
		return "data:invalid"
	}
	return fmt.Sprintf("data:%s;sha256,%s", mediaType, Digest(data)[:16])
}

// DecodeDataURI decodes an RFC 2397 data URI into its media type and payload
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := cutPrefixFold(strings.TrimSpace(uri), "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URI has no payload separator")
	}

	isBase64 := false
	params := strings.Split(meta, ";")
	if n := len(params); n > 0 && strings.EqualFold(strings.TrimSpace(params[n-1]), "base64") {
		isBase64 = true
		params = params[:n-1]
	}
	mediaType := strings.ToLower(strings.TrimSpace(params[0]))
	if mediaType == "" {
		mediaType = "text/plain"
	}

	if !isBase64 {
		data, err := url.PathUnescape(payload)
		if err != nil {
			return "", nil, fmt.Errorf("invalid percent-encoding in data URI: %w", err)
		}
		return mediaType, []byte(data), nil
	}

	// base64 payloads embedded in HTML are often wrapped or unpadded
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, payload)
	data, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(cleaned, "="))
		if err != nil {
			return "", nil, fmt.Errorf("invalid base64 in data URI: %w", err)
		}
	}
	return mediaType, data, nil
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}
