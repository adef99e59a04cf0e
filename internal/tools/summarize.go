package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const summarizeDescription = "Summarise a local text/markdown file into a concise overview."

var (
	fencedBlock   = regexp.MustCompile("(?s)```.*?```")
	sentenceBreak = regexp.MustCompile(`[.!?]\s+`)
	utf8BOM       = []byte{0xEF, 0xBB, 0xBF}
)

// SummarizeFileInput is the argument payload of summarize_file.
type SummarizeFileInput struct {
	Path         string `json:"path"`
	MaxSentences int    `json:"max_sentences"`
}

func (in *SummarizeFileInput) Validate() []FieldError {
	if strings.TrimSpace(in.Path) == "" {
		return []FieldError{{Field: "path", Reason: "path cannot be empty"}}
	}
	return nil
}

// SummarizeFileSpec returns the summarize_file tool.
func SummarizeFileSpec() *Spec {
	return NewSpec(SummarizeFileName, summarizeDescription, Schema{
		Required: []string{"path"},
		Properties: map[string]Property{
			"path": {
				Type:        "string",
				Description: "Path to the text or markdown file to summarise.",
			},
			"max_sentences": {
				Type:        "integer",
				Description: "Maximum number of sentences to include in the summary.",
				Minimum:     Bound(1),
				Maximum:     Bound(12),
				Default:     5,
			},
		},
	}, SummarizeFile)
}

// SummarizeFile produces a deterministic bullet summary of a text file.
func SummarizeFile(_ context.Context, in SummarizeFileInput, tc *Context) (string, error) {
	path := tc.Resolve(in.Path)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: file '%s' does not exist", ErrNotFound, path)
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: expected a file but received '%s'", ErrIsADirectory, path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	text, err := decodeText(raw)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", path, err)
	}

	cleaned := fencedBlock.ReplaceAllString(text, "")
	sentences := splitSentences(cleaned)
	if len(sentences) > in.MaxSentences {
		sentences = sentences[:in.MaxSentences]
	}

	var bullets []string
	for _, s := range sentences {
		if s != "" {
			bullets = append(bullets, "- "+s)
		}
	}
	body := strings.Join(bullets, "\n")
	if body == "" {
		body = "- (file was empty)"
	}

	return fmt.Sprintf("Summary of '%s':\n%s\n\nTip: Use `max_sentences` to control summarisation length.",
		filepath.Base(path), body), nil
}

// splitSentences breaks text after sentence-ending punctuation that is
// followed by whitespace. Blank segments are dropped.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceBreak.FindAllStringIndex(text, -1) {
		// keep the punctuation, drop the whitespace
		if seg := strings.TrimSpace(text[start : loc[0]+1]); seg != "" {
			out = append(out, seg)
		}
		start = loc[1]
	}
	if seg := strings.TrimSpace(text[start:]); seg != "" {
		out = append(out, seg)
	}
	if len(out) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	return out
}

// decodeText accepts UTF-8 (with or without BOM) and falls back to Latin-1.
func decodeText(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
