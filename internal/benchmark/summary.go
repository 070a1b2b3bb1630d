package benchmark

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultExtension  = ".txt"
	DefaultOutputName = "ab_summary.json"
)

var (
	// ErrNoSummaries is returned by LoadSummaries when the artifact holds no record.
	ErrNoSummaries = errors.New("benchmark: no summaries")
	// ErrMissingFile is returned by LoadSummaries for a record without its file name.
	ErrMissingFile = errors.New("benchmark: record without file")
)

// Summary is one record of the artifact. Missing metrics are omitted
// from the json rather than written as zero.
type Summary struct {
	RequestsPerSec   *float64 `json:"requests_per_sec,omitempty"`
	TimePerRequest   *float64 `json:"time_per_request,omitempty"`
	TransferRate     *float64 `json:"transfer_rate,omitempty"`
	CompleteRequests *float64 `json:"complete_requests,omitempty"`
	FailedRequests   *float64 `json:"failed_requests,omitempty"`
	File             string   `json:"file"`
}

// Summarize parses every file of dir whose name ends with ext, in
// directory listing order. Symlinks are followed and directories skipped.
// Any unreadable report aborts the run.
func Summarize(dir, ext string, p Parser) ([]Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("benchmark: list %s: %w", dir, err)
	}
	summaries := []Summary{}
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		name := filepath.Join(dir, entry.Name())
		info, err := os.Stat(name)
		if err != nil {
			return nil, fmt.Errorf("benchmark: stat %s: %w", entry.Name(), err)
		}
		if info.IsDir() {
			continue
		}
		text, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("benchmark: read %s: %w", entry.Name(), err)
		}
		s := p.Parse(string(text))
		s.File = entry.Name()
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// WriteSummaries replaces the artifact at path with the records as an
// indented json array. The content goes to a temporary file first and
// is renamed over path, so readers never see a partial artifact.
func WriteSummaries(path string, summaries []Summary) error {
	if summaries == nil {
		summaries = []Summary{}
	}
	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return fmt.Errorf("benchmark: encode summaries: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".ab_summary-*.json")
	if err != nil {
		return fmt.Errorf("benchmark: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("benchmark: write temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("benchmark: close temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("benchmark: chmod temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("benchmark: replace %s: %w", path, err)
	}
	return nil
}

// LoadSummaries reads the artifact. An empty file or an empty array
// gives ErrNoSummaries and a record without file name ErrMissingFile.
func LoadSummaries(path string) ([]Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("benchmark: read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrNoSummaries
	}
	var summaries []Summary
	if err = json.Unmarshal(data, &summaries); err != nil {
		return nil, fmt.Errorf("benchmark: decode %s: %w", path, err)
	}
	if len(summaries) == 0 {
		return nil, ErrNoSummaries
	}
	for i, s := range summaries {
		if s.File == "" {
			return nil, fmt.Errorf("benchmark: decode %s: record %d: %w", path, i, ErrMissingFile)
		}
	}
	return summaries, nil
}

// Latest picks the record with the greatest file name. Names are
// compared as plain strings, so it only matches the most recent run
// when reports are named in sortable order. On equal names the first
// record wins.
func Latest(summaries []Summary) (Summary, bool) {
	if len(summaries) == 0 {
		return Summary{}, false
	}
	latest := summaries[0]
	for _, s := range summaries[1:] {
		if s.File > latest.File {
			latest = s
		}
	}
	return latest, true
}

// Value returns the metric or 0 when it is absent.
func Value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
