package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"PriceTracker/internal/model"
	"PriceTracker/internal/normalizer"
	"PriceTracker/internal/recorder"
)

// MockFetcher returns a fixed payload for development and testing.
type MockFetcher struct {
	Payload []byte
	Err     error

	mu      sync.Mutex
	windows []model.Window
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchRaw(_ context.Context, w model.Window) ([]byte, error) {
	m.mu.Lock()
	m.windows = append(m.windows, w)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Payload, nil
}

// Windows returns every window the mock was asked for.
func (m *MockFetcher) Windows() []model.Window {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Window, len(m.windows))
	copy(out, m.windows)
	return out
}

// Collector fetches from the upstream source and normalizes the result.
// It holds no per-request state.
type Collector struct {
	Fetcher  Fetcher
	Recorder recorder.Recorder
	Logger   *zap.Logger
	Now      func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, rec recorder.Recorder, logger *zap.Logger) *Collector {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{Fetcher: fetcher, Recorder: rec, Logger: logger, Now: time.Now}
}

// Raw returns the upstream payload for w without touching it.
func (c *Collector) Raw(ctx context.Context, w model.Window) ([]byte, error) {
	raw, err := c.Fetcher.FetchRaw(ctx, w)
	c.record("raw", w, 0, err)
	return raw, err
}

// CurrentPrices fetches today's records and builds the price board.
func (c *Collector) CurrentPrices(ctx context.Context) (*model.PriceBoard, error) {
	w := model.TodayWindow(c.Now())
	records, err := c.fetchRecords(ctx, w)
	if err != nil {
		c.record("current", w, 0, err)
		return nil, err
	}
	board, err := normalizer.Normalize(records)
	if err != nil {
		c.record("current", w, 0, err)
		return nil, err
	}
	c.record("current", w, len(records), nil)
	return board, nil
}

// PriceRange validates iv and, if it is well formed, issues exactly one
// upstream fetch for the whole interval.
func (c *Collector) PriceRange(ctx context.Context, iv model.DateInterval) (*model.RangeGroups, error) {
	if err := iv.Validate(); err != nil {
		c.record("range", model.Window{From: iv.From, To: iv.To}, 0, err)
		return nil, err
	}
	w := iv.Window()
	records, err := c.fetchRecords(ctx, w)
	if err != nil {
		c.record("range", w, 0, err)
		return nil, err
	}
	groups, err := normalizer.NormalizeRange(records)
	if err != nil {
		c.record("range", w, 0, err)
		return nil, err
	}
	c.record("range", w, groups.Len(), nil)
	return groups, nil
}

func (c *Collector) fetchRecords(ctx context.Context, w model.Window) ([]model.RawPriceRecord, error) {
	c.Logger.Debug("fetching prices",
		zap.String("source", c.Fetcher.Name()),
		zap.String("from", w.FromString()),
		zap.String("to", w.ToString()))
	raw, err := c.Fetcher.FetchRaw(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}
	return DecodeRecords(raw)
}

func (c *Collector) record(kind string, w model.Window, entries int, err error) {
	evt := &recorder.QueryEvent{
		Kind:    kind,
		From:    w.FromString(),
		To:      w.ToString(),
		Entries: entries,
		Outcome: Outcome(err),
	}
	if err != nil {
		evt.Detail = err.Error()
	}
	if recErr := c.Recorder.RecordQuery(evt); recErr != nil {
		c.Logger.Warn("record query failed", zap.Error(recErr))
	}
}

// Outcome classifies err for logs and the audit trail.
func Outcome(err error) string {
	var (
		dataErr  *model.DataError
		validErr *model.ValidationError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &validErr):
		return "validation"
	case errors.As(err, &dataErr):
		return "data"
	case errors.Is(err, model.ErrUpstreamTransport):
		return "transport"
	default:
		return "error"
	}
}
