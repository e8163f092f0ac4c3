package collector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"PriceTracker/internal/model"
	"PriceTracker/internal/recorder"
)

const samplePayload = `[
	{"metaProdTypeName":"Diamond","purity":"VVS","rate":5000,"unit":1,"todayDate":"2024-05-01"},
	{"metaProdTypeName":"Gold","purity":"22K916","rate":6600,"unit":1,"todayDate":"2024-05-01"},
	{"metaProdTypeName":"Gold","purity":"18K750","rate":"5400","unit":"1","todayDate":"2024-05-01"}
]`

func day(s string) time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestUpstreamFetcher_SendsFilters(t *testing.T) {
	var got filterPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ratesPath, r.URL.Path)
		assert.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("filters")), &got))
		w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	f := NewUpstreamFetcher(srv.URL+"/", "branch-1", "", 0)
	iv := model.DateInterval{From: day("2024-05-01"), To: day("2024-05-03")}
	raw, err := f.FetchRaw(context.Background(), iv.Window())
	require.NoError(t, err)
	assert.JSONEq(t, samplePayload, string(raw))

	assert.Equal(t, filterPayload{
		Branch:        "branch-1",
		CreatedAtFrom: "2024-05-01T00:00:00Z",
		CreatedAtTo:   "2024-05-03T23:59:59Z",
	}, got)
}

func TestUpstreamFetcher_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewUpstreamFetcher(srv.URL, "b", "", 0)
	_, err := f.FetchRaw(context.Background(), model.TodayWindow(time.Now()))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUpstreamTransport)
}

func TestUpstreamFetcher_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f := NewUpstreamFetcher(url, "b", "", time.Second)
	_, err := f.FetchRaw(context.Background(), model.TodayWindow(time.Now()))
	assert.ErrorIs(t, err, model.ErrUpstreamTransport)
}

func TestDecodeRecords(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{"list", samplePayload, 3, false},
		{"empty list", `[]`, 0, false},
		{"malformed", `[{"metaProdTypeName":`, 0, true},
		{"object", `{"error":"nope"}`, 0, true},
		{"wrong field type", `[{"metaProdTypeName":7}]`, 0, true},
		{"empty body", ``, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := DecodeRecords([]byte(tt.raw))
			if tt.wantErr {
				var dataErr *model.DataError
				assert.ErrorAs(t, err, &dataErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, records, tt.want)
		})
	}
}

func TestCollector_CurrentPrices(t *testing.T) {
	mock := &MockFetcher{Payload: []byte(samplePayload)}
	c := NewCollector(mock, nil, zap.NewNop())
	c.Now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

	board, err := c.CurrentPrices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5000", board.Get(model.KeyDiamond).String())
	assert.Equal(t, "5400", board.Get(model.KeyGold18K).String())
	assert.Equal(t, "6600", board.Get(model.KeyGold22K).String())
	assert.Equal(t, model.Placeholder, board.Get(model.KeySilver).String())

	windows := mock.Windows()
	require.Len(t, windows, 1)
	assert.Equal(t, "2024-05-01T00:00:00Z", windows[0].FromString())
	assert.Equal(t, "2024-05-01T23:59:59Z", windows[0].ToString())
}

func TestCollector_PriceRangeRejectsInvertedInterval(t *testing.T) {
	mock := &MockFetcher{Payload: []byte(samplePayload)}
	c := NewCollector(mock, nil, zap.NewNop())

	_, err := c.PriceRange(context.Background(), model.DateInterval{From: day("2024-05-10"), To: day("2024-05-01")})
	var validErr *model.ValidationError
	require.ErrorAs(t, err, &validErr)
	assert.Empty(t, mock.Windows(), "no upstream call expected")
	assert.Equal(t, "validation", Outcome(err))
}

func TestCollector_PriceRangeSingleFetch(t *testing.T) {
	mock := &MockFetcher{Payload: []byte(samplePayload)}
	c := NewCollector(mock, nil, zap.NewNop())

	groups, err := c.PriceRange(context.Background(), model.DateInterval{From: day("2024-05-01"), To: day("2024-05-31")})
	require.NoError(t, err)
	assert.Equal(t, []model.DisplayKey{model.KeyDiamond, model.KeyGold22K, model.KeyGold18K}, groups.Keys())

	windows := mock.Windows()
	require.Len(t, windows, 1)
	assert.Equal(t, "2024-05-31T23:59:59Z", windows[0].ToString())
}

func TestCollector_PriceRangeTransportFailure(t *testing.T) {
	mock := &MockFetcher{Err: errors.Join(model.ErrUpstreamTransport, errors.New("dial tcp: refused"))}
	c := NewCollector(mock, nil, zap.NewNop())

	_, err := c.PriceRange(context.Background(), model.DateInterval{From: day("2024-05-01"), To: day("2024-05-02")})
	assert.ErrorIs(t, err, model.ErrUpstreamTransport)
	assert.Equal(t, "transport", Outcome(err))
}

func TestCollector_DataFailure(t *testing.T) {
	mock := &MockFetcher{Payload: []byte(`{"message":"not a list"}`)}
	c := NewCollector(mock, nil, zap.NewNop())

	_, err := c.CurrentPrices(context.Background())
	assert.Equal(t, "data", Outcome(err))
}

type countingRecorder struct{ outcomes []string }

func (r *countingRecorder) RecordQuery(evt *recorder.QueryEvent) error {
	r.outcomes = append(r.outcomes, evt.Outcome)
	return nil
}
func (r *countingRecorder) Close() error { return nil }

func TestCollector_RecordsOutcomes(t *testing.T) {
	rec := &countingRecorder{}
	c := NewCollector(&MockFetcher{Payload: []byte(samplePayload)}, rec, zap.NewNop())

	_, _ = c.CurrentPrices(context.Background())
	_, _ = c.PriceRange(context.Background(), model.DateInterval{})
	assert.Equal(t, []string{"ok", "validation"}, rec.outcomes)
}
