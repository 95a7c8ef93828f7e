package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/TobiSchelling/learnloop/internal/learnings"
	"github.com/TobiSchelling/learnloop/internal/normalize"
)

// CSVStore keeps the learning set in a single CSV file.
type CSVStore struct {
	path string
}

// NewCSVStore returns a store backed by the file at path.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Path returns the CSV file path.
func (s *CSVStore) Path() string {
	return s.path
}

// Ensure creates the directory and a header-only file when missing.
func (s *CSVStore) Ensure() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating learnings directory: %w", err)
	}
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking learnings file: %w", err)
	}
	return s.Save(nil)
}

// Load reads every learning. Missing columns read as empty values.
func (s *CSVStore) Load() ([]learnings.Record, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening learnings: %w", err)
	}
	defer f.Close()

	rows, err := readTable(f)
	if err != nil {
		return nil, fmt.Errorf("reading learnings %s: %w", s.path, err)
	}

	out := make([]learnings.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, recordFromRow(row))
	}
	return out, nil
}

// Save replaces the file with records. It writes a temporary file in the same
// directory and renames it into place, so a failed save leaves the previous
// file intact.
func (s *CSVStore) Save(records []learnings.Record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating learnings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(learnings.Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range records {
		if err := w.Write(rowFromRecord(r)); err != nil {
			return fmt.Errorf("writing learning %s: %w", r.LearningID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing learnings: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing learnings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replacing learnings: %w", err)
	}
	committed = true
	return nil
}

func recordFromRow(row normalize.Record) learnings.Record {
	return learnings.Record{
		LearningID:      row["learning_id"],
		Type:            row["type"],
		AudienceSegment: row["audience_segment"],
		Insight:         row["insight"],
		Salience:        parseFloat(row["salience"]),
		EvidenceCount:   int(parseFloat(row["evidence_count"])),
		CreatedDate:     row["created_date"],
		LastValidated:   row["last_validated"],
	}
}

func rowFromRecord(r learnings.Record) []string {
	return []string{
		r.LearningID,
		r.Type,
		r.AudienceSegment,
		r.Insight,
		strconv.FormatFloat(r.Salience, 'f', -1, 64),
		strconv.Itoa(r.EvidenceCount),
		r.CreatedDate,
		r.LastValidated,
	}
}

// parseFloat reads a numeric cell, treating blanks and junk as 0.
func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
