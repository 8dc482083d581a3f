package usage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lcgani/agent-nexus/model"
	"github.com/lcgani/agent-nexus/store"
)

// Error values for usage recording.
var (
	ErrInvalidStore  = errors.New("store is required")
	ErrMissingToolID = errors.New("tool id is required")
	ErrInvalidRating = errors.New("rating must be between 0 and 5")
	ErrToolNotFound  = errors.New("tool not found")
)

// MaxRating is the top of the rating scale.
const MaxRating = 5.0

// Execution describes one tool run reported by an agent.
type Execution struct {
	ToolID    string
	UserQuery string
	Success   bool
	Latency   time.Duration
	Error     string
	AgentID   string
}

// Options configures a Recorder.
type Options struct {
	Store  store.Store
	Logger *zap.Logger
	// Now stamps log entries and last_used. Default: time.Now.
	Now func() time.Time
	// NewID generates usage log ids. Default: uuid.NewString.
	NewID func() string
}

// Recorder writes usage logs and tool signals.
type Recorder struct {
	mu     sync.Mutex
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewRecorder creates a Recorder.
func NewRecorder(opts Options) (*Recorder, error) {
	if opts.Store == nil {
		return nil, ErrInvalidStore
	}
	r := &Recorder{store: opts.Store, logger: opts.Logger, now: opts.Now, newID: opts.NewID}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newID == nil {
		r.newID = uuid.NewString
	}
	return r, nil
}

// Record appends a usage log entry for exec and updates the tool's usage
// signals. The tool must exist.
func (r *Recorder) Record(ctx context.Context, exec Execution) (model.UsageLog, error) {
	if exec.ToolID == "" {
		return model.UsageLog{}, ErrMissingToolID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tool, err := r.loadTool(ctx, exec.ToolID)
	if err != nil {
		return model.UsageLog{}, err
	}

	now := r.now().UTC().Round(0)
	latencyMs := float64(exec.Latency) / float64(time.Millisecond)
	entry := model.UsageLog{
		LogID:            r.newID(),
		ToolID:           exec.ToolID,
		Timestamp:        now,
		UserQuery:        exec.UserQuery,
		ExecutionSuccess: exec.Success,
		ExecutionTimeMs:  latencyMs,
		ErrorMessage:     exec.Error,
		AgentID:          exec.AgentID,
	}
	doc, err := store.Encode(entry)
	if err != nil {
		return model.UsageLog{}, err
	}
	if err := r.store.Upsert(ctx, model.CollectionUsageLogs, entry.LogID, doc); err != nil {
		return model.UsageLog{}, fmt.Errorf("append usage log: %w", err)
	}

	n := float64(tool.UsageCount)
	success := 0.0
	if exec.Success {
		success = 1
	}
	fields := store.Document{
		"usage_count":           tool.UsageCount + 1,
		"last_used":             now,
		"success_rate":          (tool.SuccessRate*n + success) / (n + 1),
		"avg_execution_time_ms": (tool.AvgExecutionTimeMs*n + latencyMs) / (n + 1),
		"updated_at":            now,
	}
	if err := r.store.PartialUpdate(ctx, model.CollectionTools, exec.ToolID, fields); err != nil {
		return model.UsageLog{}, fmt.Errorf("update usage signals for %s: %w", exec.ToolID, err)
	}

	r.logger.Debug("recorded tool usage",
		zap.String("tool_id", exec.ToolID),
		zap.String("log_id", entry.LogID),
		zap.Bool("success", exec.Success),
		zap.Float64("latency_ms", latencyMs),
	)
	return entry, nil
}

// Rate folds rating into the tool's running mean and returns the new mean
// and review count.
func (r *Recorder) Rate(ctx context.Context, toolID string, rating float64) (mean float64, reviews int, err error) {
	if toolID == "" {
		return 0, 0, ErrMissingToolID
	}
	if math.IsNaN(rating) || rating < 0 || rating > MaxRating {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidRating, rating)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tool, err := r.loadTool(ctx, toolID)
	if err != nil {
		return 0, 0, err
	}
	reviews = tool.ReviewCount + 1
	mean = (tool.Rating*float64(tool.ReviewCount) + rating) / float64(reviews)

	fields := store.Document{
		"rating":       mean,
		"review_count": reviews,
		"updated_at":   r.now().UTC().Round(0),
	}
	if err := r.store.PartialUpdate(ctx, model.CollectionTools, toolID, fields); err != nil {
		return 0, 0, fmt.Errorf("update rating for %s: %w", toolID, err)
	}
	r.logger.Info("rated tool", zap.String("tool_id", toolID), zap.Float64("rating", mean), zap.Int("reviews", reviews))
	return mean, reviews, nil
}

// Verify sets the tool's verification flag.
func (r *Recorder) Verify(ctx context.Context, toolID string, verified bool) error {
	if toolID == "" {
		return ErrMissingToolID
	}
	fields := store.Document{
		"is_verified": verified,
		"updated_at":  r.now().UTC().Round(0),
	}
	if err := r.store.PartialUpdate(ctx, model.CollectionTools, toolID, fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrToolNotFound, toolID)
		}
		return fmt.Errorf("update verification for %s: %w", toolID, err)
	}
	return nil
}

// History returns the newest usage log entries for a tool.
func (r *Recorder) History(ctx context.Context, toolID string, limit int) ([]model.UsageLog, error) {
	if toolID == "" {
		return nil, ErrMissingToolID
	}
	hits, err := r.store.Search(ctx, model.CollectionUsageLogs, store.Query{
		Filters:  []store.Filter{store.Term("tool_id", toolID)},
		SortBy:   "timestamp",
		SortDesc: true,
		Size:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query usage logs: %w", err)
	}
	out := make([]model.UsageLog, 0, len(hits))
	for _, h := range hits {
		var entry model.UsageLog
		if err := h.Decode(&entry); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r *Recorder) loadTool(ctx context.Context, toolID string) (model.ToolRecord, error) {
	doc, err := r.store.Get(ctx, model.CollectionTools, toolID)
	if errors.Is(err, store.ErrNotFound) {
		return model.ToolRecord{}, fmt.Errorf("%w: %s", ErrToolNotFound, toolID)
	}
	if err != nil {
		return model.ToolRecord{}, fmt.Errorf("load tool %s: %w", toolID, err)
	}
	var tool model.ToolRecord
	if err := store.Decode(doc, &tool); err != nil {
		return model.ToolRecord{}, err
	}
	return tool, nil
}
