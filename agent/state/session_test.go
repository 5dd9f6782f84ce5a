package state

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMergeProfileOverwritesAndDeletes(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	st := NewSessionState("s", now)
	st.MergeProfile(map[string]any{"full_name": "Ada", "age": 24, "nationality": "Nigerian"}, now)
	st.MergeProfile(map[string]any{"age": 25, "nationality": nil, " ": "ignored"}, now.Add(time.Minute))

	if st.Profile["age"] != 25 {
		t.Fatalf("age not overwritten: %#v", st.Profile)
	}
	if _, ok := st.Profile["nationality"]; ok {
		t.Fatal("nil value must delete the key")
	}
	if len(st.Profile) != 2 {
		t.Fatalf("unexpected profile %#v", st.Profile)
	}
	if !st.UpdatedAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("UpdatedAt not touched: %v", st.UpdatedAt)
	}
}

func TestRecordFailureKeepsLastReport(t *testing.T) {
	t.Parallel()

	now := time.Now()
	st := NewSessionState("s", now)
	st.RecordReport(ReportRecord{RunID: "r1", Markdown: "# ok", OverallScore: 80}, now)
	st.RecordFailure("  scoring failed ", now)

	if st.LastReport == nil || st.LastReport.RunID != "r1" {
		t.Fatalf("last report lost: %#v", st.LastReport)
	}
	if st.LastError != "scoring failed" {
		t.Fatalf("unexpected last error %q", st.LastError)
	}

	st.RecordReport(ReportRecord{RunID: "r2", Markdown: "# ok", OverallScore: 60}, now)
	if st.LastError != "" {
		t.Fatal("a new report must clear the last error")
	}
}

func TestValidateRejectsBadReport(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s", time.Now())
	st.LastReport = &ReportRecord{Markdown: "# r", OverallScore: 101}
	if err := st.Validate(); err == nil {
		t.Fatal("expected out of range score to fail")
	}
	st.LastReport = &ReportRecord{Markdown: "  ", OverallScore: 50}
	if err := st.Validate(); err == nil {
		t.Fatal("expected empty report to fail")
	}
}

func TestMemoryStoreIsolatesCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	st := NewSessionState("s", time.Now())
	st.MergeProfile(map[string]any{"full_name": "Ada"}, time.Now())
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	st.Profile["full_name"] = "mutated"

	loaded, err := store.Load(ctx, "s")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Profile["full_name"] != "Ada" {
		t.Fatalf("store shares memory with caller: %#v", loaded.Profile)
	}

	if err := store.Delete(ctx, "s"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, "s"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() error = %v, want ErrStateNotFound", err)
	}
}
