package usage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/lcgani/agent-nexus/model"
	"github.com/lcgani/agent-nexus/store"
)

func seedTool(t *testing.T, st store.Store, tool model.ToolRecord) {
	t.Helper()
	doc, err := store.Encode(tool)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if err := st.Upsert(context.Background(), model.CollectionTools, tool.ToolID, doc); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
}

func loadTool(t *testing.T, st store.Store, id string) model.ToolRecord {
	t.Helper()
	doc, err := st.Get(context.Background(), model.CollectionTools, id)
	if err != nil {
		t.Fatalf("Get(%s) error = %v", id, err)
	}
	var tool model.ToolRecord
	if err := store.Decode(doc, &tool); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return tool
}

func newTestRecorder(t *testing.T, st store.Store) (*Recorder, *time.Time) {
	t.Helper()
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seq := 0
	r, err := NewRecorder(Options{
		Store: st,
		Now:   func() time.Time { return clock },
		NewID: func() string {
			seq++
			return fmt.Sprintf("log-%d", seq)
		},
	})
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	return r, &clock
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRecord(t *testing.T) {
	st := store.NewMemoryStore()
	seedTool(t, st, model.ToolRecord{ToolID: "t1", ToolName: "weather"})
	r, clock := newTestRecorder(t, st)
	ctx := context.Background()

	entry, err := r.Record(ctx, Execution{ToolID: "t1", UserQuery: "forecast", Success: true, Latency: 100 * time.Millisecond, AgentID: "a1"})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if entry.LogID != "log-1" || !entry.Timestamp.Equal(*clock) || entry.ExecutionTimeMs != 100 {
		t.Fatalf("entry = %+v", entry)
	}

	*clock = clock.Add(time.Minute)
	if _, err := r.Record(ctx, Execution{ToolID: "t1", Success: false, Latency: 300 * time.Millisecond, Error: "timeout"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	tool := loadTool(t, st, "t1")
	if tool.UsageCount != 2 {
		t.Fatalf("UsageCount = %d, want 2", tool.UsageCount)
	}
	if !approx(tool.SuccessRate, 0.5) {
		t.Fatalf("SuccessRate = %v, want 0.5", tool.SuccessRate)
	}
	if !approx(tool.AvgExecutionTimeMs, 200) {
		t.Fatalf("AvgExecutionTimeMs = %v, want 200", tool.AvgExecutionTimeMs)
	}
	if tool.LastUsed == nil || !tool.LastUsed.Equal(*clock) {
		t.Fatalf("LastUsed = %v, want %v", tool.LastUsed, *clock)
	}
	if tool.ToolName != "weather" {
		t.Fatalf("partial update dropped fields: %+v", tool)
	}
	if n := st.Count(model.CollectionUsageLogs); n != 2 {
		t.Fatalf("usage logs = %d, want 2", n)
	}

	history, err := r.History(ctx, "t1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 || history[0].LogID != "log-2" || history[0].ErrorMessage != "timeout" {
		t.Fatalf("History() = %+v, want newest first", history)
	}
}

func TestRecord_UnknownTool(t *testing.T) {
	st := store.NewMemoryStore()
	r, _ := newTestRecorder(t, st)

	_, err := r.Record(context.Background(), Execution{ToolID: "missing", Success: true})
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("Record() error = %v, want ErrToolNotFound", err)
	}
	if n := st.Count(model.CollectionUsageLogs); n != 0 {
		t.Fatalf("usage logs = %d, want 0", n)
	}
	if _, err := r.Record(context.Background(), Execution{}); !errors.Is(err, ErrMissingToolID) {
		t.Fatalf("Record() error = %v, want ErrMissingToolID", err)
	}
}

func TestRate(t *testing.T) {
	st := store.NewMemoryStore()
	seedTool(t, st, model.ToolRecord{ToolID: "t1", Rating: 4, ReviewCount: 1})
	r, _ := newTestRecorder(t, st)

	mean, reviews, err := r.Rate(context.Background(), "t1", 5)
	if err != nil {
		t.Fatalf("Rate() error = %v", err)
	}
	if !approx(mean, 4.5) || reviews != 2 {
		t.Fatalf("Rate() = %v, %d, want 4.5, 2", mean, reviews)
	}
	tool := loadTool(t, st, "t1")
	if !approx(tool.Rating, 4.5) || tool.ReviewCount != 2 {
		t.Fatalf("stored rating = %v/%d", tool.Rating, tool.ReviewCount)
	}
}

func TestRate_Invalid(t *testing.T) {
	st := store.NewMemoryStore()
	seedTool(t, st, model.ToolRecord{ToolID: "t1"})
	r, _ := newTestRecorder(t, st)

	for _, rating := range []float64{-0.5, 5.5, math.NaN(), math.Inf(1)} {
		if _, _, err := r.Rate(context.Background(), "t1", rating); !errors.Is(err, ErrInvalidRating) {
			t.Fatalf("Rate(%v) error = %v, want ErrInvalidRating", rating, err)
		}
	}
	if _, _, err := r.Rate(context.Background(), "nope", 3); !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("Rate() error = %v, want ErrToolNotFound", err)
	}
}

func TestVerify(t *testing.T) {
	st := store.NewMemoryStore()
	seedTool(t, st, model.ToolRecord{ToolID: "t1"})
	r, _ := newTestRecorder(t, st)

	if err := r.Verify(context.Background(), "t1", true); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !loadTool(t, st, "t1").IsVerified {
		t.Fatalf("IsVerified = false, want true")
	}
	if err := r.Verify(context.Background(), "nope", true); !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("Verify() error = %v, want ErrToolNotFound", err)
	}
}

func TestNewRecorder_RequiresStore(t *testing.T) {
	if _, err := NewRecorder(Options{}); !errors.Is(err, ErrInvalidStore) {
		t.Fatalf("NewRecorder() error = %v, want ErrInvalidStore", err)
	}
}
