package retry

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDLQ_AddAndGet(t *testing.T) {
	dlq, err := NewDLQ(DLQConfig{MaxSize: 100})
	if err != nil {
		t.Fatalf("Failed to create DLQ: %v", err)
	}

	dlq.Add(DLQEntry{
		Timestamp:   time.Now(),
		Unit:        "table sales.orders",
		Attempts:    3,
		LastError:   "connection timeout",
		FailureType: FailureMaxAttempts,
	})

	entries := dlq.Get()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].LastError != "connection timeout" {
		t.Errorf("Expected LastError 'connection timeout', got '%s'", entries[0].LastError)
	}
	if entries[0].ID == "" {
		t.Error("Expected non-empty ID")
	}
}

func TestDLQ_MaxSize(t *testing.T) {
	dlq, err := NewDLQ(DLQConfig{MaxSize: 3})
	if err != nil {
		t.Fatalf("Failed to create DLQ: %v", err)
	}

	for i := 1; i <= 5; i++ {
		dlq.Add(DLQEntry{Timestamp: time.Now(), Attempts: i, FailureType: "test"})
	}

	entries := dlq.Get()
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries (max size), got %d", len(entries))
	}
	if entries[0].Attempts != 3 {
		t.Errorf("Expected oldest remaining entry Attempts=3, got %d", entries[0].Attempts)
	}
}

func TestDLQ_SaveAndLoad(t *testing.T) {
	config := DLQConfig{FilePath: filepath.Join(t.TempDir(), "dlq.json"), MaxSize: 100}

	dlq1, err := NewDLQ(config)
	if err != nil {
		t.Fatalf("Failed to create DLQ: %v", err)
	}
	dlq1.Add(DLQEntry{Timestamp: time.Now(), LastError: "error 1", FailureType: "type1"})
	dlq1.Add(DLQEntry{Timestamp: time.Now(), LastError: "error 2", FailureType: "type2"})
	if err := dlq1.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	dlq2, err := NewDLQ(config)
	if err != nil {
		t.Fatalf("Failed to create second DLQ: %v", err)
	}
	entries := dlq2.Get()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries after load, got %d", len(entries))
	}
	if entries[0].LastError != "error 1" {
		t.Errorf("Expected first entry error 'error 1', got '%s'", entries[0].LastError)
	}
}

func TestDLQ_Clear(t *testing.T) {
	dlq, _ := NewDLQ(DLQConfig{})
	dlq.Add(DLQEntry{Timestamp: time.Now()})
	dlq.Add(DLQEntry{Timestamp: time.Now()})

	if err := dlq.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if dlq.Size() != 0 {
		t.Errorf("Expected empty DLQ, got %d", dlq.Size())
	}
}

func TestDLQ_CleanupOld(t *testing.T) {
	dlq, _ := NewDLQ(DLQConfig{RetentionPeriod: time.Hour})

	dlq.Add(DLQEntry{Timestamp: time.Now().Add(-2 * time.Hour), LastError: "old"})
	dlq.Add(DLQEntry{Timestamp: time.Now(), LastError: "new"})

	if removed := dlq.CleanupOld(); removed != 1 {
		t.Errorf("Expected 1 removed, got %d", removed)
	}
	entries := dlq.Get()
	if len(entries) != 1 || entries[0].LastError != "new" {
		t.Errorf("unexpected entries after cleanup: %+v", entries)
	}
}

func TestDLQ_GetStats(t *testing.T) {
	dlq, _ := NewDLQ(DLQConfig{})

	stats := dlq.GetStats()
	if stats.TotalEntries != 0 || !stats.OldestEntry.IsZero() {
		t.Errorf("unexpected stats for empty DLQ: %+v", stats)
	}

	first := time.Now().Add(-time.Minute)
	dlq.Add(DLQEntry{Timestamp: first, FailureType: FailureMaxAttempts})
	dlq.Add(DLQEntry{Timestamp: time.Now(), FailureType: FailureMaxAttempts})
	dlq.Add(DLQEntry{Timestamp: time.Now(), FailureType: FailureNonRetryable})

	stats = dlq.GetStats()
	if stats.TotalEntries != 3 {
		t.Errorf("Expected 3 entries, got %d", stats.TotalEntries)
	}
	if !stats.OldestEntry.Equal(first) {
		t.Errorf("OldestEntry = %v, want %v", stats.OldestEntry, first)
	}
	if stats.FailureTypes[FailureMaxAttempts] != 2 || stats.FailureTypes[FailureNonRetryable] != 1 {
		t.Errorf("unexpected failure types: %v", stats.FailureTypes)
	}
}
