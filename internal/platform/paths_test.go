package platform

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveAgainst(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	abs := filepath.Join(t.TempDir(), "paper.html")

	tests := []struct {
		name string
		base string
		path string
		want string
	}{
		{"RelativeToDot", ".", "test/a.html", filepath.Join(wd, "test", "a.html")},
		{"RelativeToBase", "papers", "a.html", filepath.Join(wd, "papers", "a.html")},
		{"EmptyBase", "", "a.html", filepath.Join(wd, "a.html")},
		{"AbsoluteIgnoresBase", "papers", abs, abs},
		{"CleansDots", "papers/../other", "./x/../a.html", filepath.Join(wd, "other", "a.html")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveAgainst(tt.base, tt.path)
			if err != nil {
				t.Fatalf("ResolveAgainst() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveAgainst() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResolveAgainst_InvalidPath(t *testing.T) {
	for _, p := range []string{"", "   ", "a\x00b"} {
		_, err := ResolveAgainst(".", p)
		var pathErr *PathError
		if !errors.As(err, &pathErr) {
			t.Errorf("ResolveAgainst(%q) error = %v, want *PathError", p, err)
		}
	}
}

func TestRelSlash(t *testing.T) {
	base := filepath.Join("root", "base")
	tests := []struct {
		target string
		want   string
	}{
		{filepath.Join("root", "base", "a", "b.html"), "a/b.html"},
		{filepath.Join("root", "base"), "."},
		{filepath.Join("root", "other", "c.html"), "root/other/c.html"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := RelSlash(base, tt.target); got != tt.want {
				t.Errorf("RelSlash() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHasSuffixFold(t *testing.T) {
	if !HasSuffixFold("Paper.HTML", ".html") {
		t.Error("HasSuffixFold should ignore case")
	}
	if HasSuffixFold("a", ".html") {
		t.Error("HasSuffixFold should be false for short paths")
	}
	if HasSuffixFold("paper.htm", ".html") {
		t.Error("HasSuffixFold(.htm, .html) should be false")
	}
}
