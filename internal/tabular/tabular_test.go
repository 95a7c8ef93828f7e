package tabular

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TobiSchelling/learnloop/internal/learnings"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestReadActivities(t *testing.T) {
	path := writeFile(t, t.TempDir(), "acts.csv",
		"\ufeffdate,hook_type,audience_segment,response_quality,result\n"+
			"2026-02-06,Hiring blitz,YC S23,meeting,\n"+
			"2026-02-05,\"funding, seed\",seed,,replied\n"+
			"2026-02-04,post\n")

	rows, err := ReadActivities(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0]["date"] != "2026-02-06" {
		t.Errorf("expected BOM stripped from header, got %v", rows[0])
	}
	if rows[1]["hook_type"] != "funding, seed" {
		t.Errorf("expected quoted cell, got %q", rows[1]["hook_type"])
	}
	v, ok := rows[2]["result"]
	if !ok || v != "" {
		t.Errorf("expected short row padded, got %v", rows[2])
	}
	if _, ok := rows[0]["ts_iso"]; ok {
		t.Error("unexpected column ts_iso")
	}
}

func TestReadActivitiesMissingFile(t *testing.T) {
	_, err := ReadActivities(filepath.Join(t.TempDir(), "nope.csv"))
	if !errors.Is(err, ErrNoActivities) {
		t.Errorf("expected ErrNoActivities, got %v", err)
	}
}

func TestReadActivitiesEmpty(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"empty.csv":  "",
		"header.csv": "date,hook_type\n",
	} {
		rows, err := ReadActivities(writeFile(t, dir, name, content))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if len(rows) != 0 {
			t.Errorf("%s: expected no rows, got %d", name, len(rows))
		}
	}
}

func TestReadActivitiesCorrupt(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"wide.csv":  "date,hook_type\n2026-02-06,funding,extra\n",
		"quote.csv": "date,hook_type\n2026-02-06,\"unterminated\n",
	} {
		_, err := ReadActivities(writeFile(t, dir, name, content))
		if err == nil {
			t.Errorf("%s: expected error", name)
		}
		if errors.Is(err, ErrNoActivities) {
			t.Errorf("%s: corrupt file must not look like a missing one", name)
		}
	}
}

func TestCSVStoreCreatesHeaderOnlyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learnings", "learnings.csv")
	store := NewCSVStore(path)

	records, err := store.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected file created: %v", err)
	}
	want := strings.Join(learnings.Columns, ",") + "\n"
	if string(data) != want {
		t.Errorf("expected header %q, got %q", want, string(data))
	}
}

func TestCSVStoreRoundTrip(t *testing.T) {
	store := NewCSVStore(filepath.Join(t.TempDir(), "learnings.csv"))
	in := []learnings.Record{
		{LearningID: "a", Type: "hook", AudienceSegment: "all", Insight: "funding", Salience: 0.8, EvidenceCount: 3, CreatedDate: "2026-01-01", LastValidated: "2026-02-06"},
		{LearningID: "b", Type: "hook", AudienceSegment: "yc_founder", Insight: "job_signal", Salience: 0.1235, EvidenceCount: 1, CreatedDate: "2026-01-02", LastValidated: "2026-02-06"},
	}
	if err := store.Save(in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := store.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d records, got %d", len(in), len(out))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("record %d: expected %+v, got %+v", i, in[i], out[i])
		}
	}

	data, _ := os.ReadFile(store.Path())
	if !strings.Contains(string(data), "a,hook,all,funding,0.8,3,2026-01-01,2026-02-06\n") {
		t.Errorf("unexpected file content:\n%s", data)
	}
}

func TestCSVStoreSynthesizesMissingColumns(t *testing.T) {
	path := writeFile(t, t.TempDir(), "learnings.csv",
		"learning_id,type,insight,salience\nx,hook,funding,not-a-number\n")

	out, err := NewCSVStore(path).Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out))
	}
	r := out[0]
	if r.LearningID != "x" || r.AudienceSegment != "" || r.Salience != 0 || r.CreatedDate != "" {
		t.Errorf("unexpected record: %+v", r)
	}
}

func TestCSVStoreFailedSaveKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "learnings.csv")
	if err := os.Mkdir(target, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	err := NewCSVStore(target).Save([]learnings.Record{{LearningID: "a"}})
	if err == nil {
		t.Fatal("expected rename over a directory to fail")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected temp file cleaned up, found %d entries", len(entries))
	}
}

func TestCSVStoreSaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	store := NewCSVStore(filepath.Join(dir, "learnings.csv"))
	if err := store.Save([]learnings.Record{{LearningID: "old"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Save([]learnings.Record{{LearningID: "new"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, _ := store.Load()
	if len(out) != 1 || out[0].LearningID != "new" {
		t.Errorf("expected only the new record, got %+v", out)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected no leftover temp files, found %d entries", len(entries))
	}
}
