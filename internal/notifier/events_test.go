package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"PriceTracker/internal/collector"
	"PriceTracker/internal/model"
)

const upstreamPayload = `[
	{"metaProdTypeName":"Diamond","rate":5000,"unit":1,"todayDate":"2024-05-01"},
	{"metaProdTypeName":"Gold","purity":"22K916","rate":6600,"unit":1,"todayDate":"2024-05-01"},
	{"metaProdTypeName":"Gold","purity":"22K916","rate":6650,"unit":1,"todayDate":"2024-05-02"}
]`

type postedMessage struct {
	Channel string
	Text    string
	Blocks  []Block
}

type fakeMessenger struct {
	// block, when set, holds every call until it is closed.
	block chan struct{}

	mu        sync.Mutex
	published map[string]View
	opened    map[string]View
	messages  []postedMessage
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{published: map[string]View{}, opened: map[string]View{}}
}

func (f *fakeMessenger) wait() {
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeMessenger) PublishHome(_ context.Context, userID string, view View) error {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[userID] = view
	return nil
}

func (f *fakeMessenger) OpenView(_ context.Context, triggerID string, view View) error {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened[triggerID] = view
	return nil
}

func (f *fakeMessenger) PostMessage(_ context.Context, channel, text string, blocks []Block) error {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, postedMessage{Channel: channel, Text: text, Blocks: blocks})
	return nil
}

func newTestHandler(fetcher *collector.MockFetcher) (*Handler, *fakeMessenger) {
	msgr := newFakeMessenger()
	h := NewHandler(collector.NewCollector(fetcher, nil, zap.NewNop()), msgr, "AMR Price Tracker", zap.NewNop())
	h.Now = func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }
	return h, msgr
}

func postJSON(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	h.Wait()
	return rec
}

func postPayload(t *testing.T, h *Handler, payload any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	form := url.Values{"payload": {string(raw)}}
	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	h.Wait()
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func submission(from, to string) map[string]any {
	return map[string]any{
		"type": "view_submission",
		"user": map[string]string{"id": "U1"},
		"view": map[string]any{
			"callback_id": CallbackDateRangeModal,
			"state": map[string]any{
				"values": map[string]any{
					BlockFromDate: map[string]any{ActionFromDate: map[string]string{"selected_date": from}},
					BlockToDate:   map[string]any{ActionToDate: map[string]string{"selected_date": to}},
				},
			},
		},
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(&collector.MockFetcher{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slack/events", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_URLVerification(t *testing.T) {
	h, _ := newTestHandler(&collector.MockFetcher{})
	rec := postJSON(t, h, `{"type":"url_verification","challenge":"3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P", decodeBody(t, rec)["challenge"])
}

func TestHandler_AppHomeOpened(t *testing.T) {
	h, msgr := newTestHandler(&collector.MockFetcher{Payload: []byte(upstreamPayload)})
	rec := postJSON(t, h, `{"type":"event_callback","event":{"type":"app_home_opened","user":"U1"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	view, ok := msgr.published["U1"]
	require.True(t, ok, "home view should be published")
	assert.Equal(t, "home", view.Type)
	assert.Equal(t, "AMR Price Tracker", view.Blocks[0].Text.Text)
	assert.Equal(t, "*Date & Time: Thu, Oct 15, 2026, 09:00:00 AM*", view.Blocks[1].Text.Text)
	assert.Contains(t, view.Blocks[3].Text.Text, "||DIAMOND||₹ 5000 /gm||")
	assert.Contains(t, view.Blocks[3].Text.Text, "||GOLD (22K)||₹ 6650 /gm||")
	assert.Empty(t, msgr.messages)
}

func TestHandler_AppHomeOpenedUpstreamFailure(t *testing.T) {
	h, msgr := newTestHandler(&collector.MockFetcher{Err: model.ErrUpstreamTransport})
	rec := postJSON(t, h, `{"type":"event_callback","event":{"type":"app_home_opened","user":"U1"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Empty(t, msgr.published)
	require.Len(t, msgr.messages, 1)
	assert.Equal(t, fetchFailedText, msgr.messages[0].Text)
}

func TestHandler_CheckCurrentPrice(t *testing.T) {
	h, msgr := newTestHandler(&collector.MockFetcher{Payload: []byte(upstreamPayload)})
	rec := postPayload(t, h, map[string]any{
		"type":    "block_actions",
		"user":    map[string]string{"id": "U1"},
		"actions": []map[string]string{{"action_id": ActionCheckCurrent}},
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, msgr.published, "U1")
	require.Len(t, msgr.messages, 1)
	assert.Equal(t, postedMessage{Channel: "U1", Text: refreshedText}, msgr.messages[0])
}

func TestHandler_CheckPriceRangeOpensModal(t *testing.T) {
	fetcher := &collector.MockFetcher{Payload: []byte(upstreamPayload)}
	h, msgr := newTestHandler(fetcher)
	postPayload(t, h, map[string]any{
		"type":       "block_actions",
		"trigger_id": "T123",
		"user":       map[string]string{"id": "U1"},
		"actions":    []map[string]string{{"action_id": ActionCheckRange}},
	})

	view, ok := msgr.opened["T123"]
	require.True(t, ok)
	assert.Equal(t, CallbackDateRangeModal, view.CallbackID)
	assert.Empty(t, fetcher.Windows(), "opening the modal does not fetch")
}

func TestHandler_RangeSubmission(t *testing.T) {
	fetcher := &collector.MockFetcher{Payload: []byte(upstreamPayload)}
	h, msgr := newTestHandler(fetcher)
	rec := postPayload(t, h, submission("2024-05-01", "2024-05-02"))

	assert.Equal(t, "clear", decodeBody(t, rec)["response_action"])
	require.Len(t, fetcher.Windows(), 1)
	require.Len(t, msgr.messages, 1)

	msg := msgr.messages[0]
	assert.Equal(t, "U1", msg.Channel)
	assert.Equal(t, "Price range for 2024-05-01 to 2024-05-02", msg.Text)
	require.Len(t, msg.Blocks, 2)
	assert.Equal(t, "*Price Range (2024-05-01 to 2024-05-02)*", msg.Blocks[0].Text.Text)
	assert.Contains(t, msg.Blocks[1].Text.Text, "₹ 6650/gm")
}

func TestHandler_RangeSubmissionInverted(t *testing.T) {
	fetcher := &collector.MockFetcher{Payload: []byte(upstreamPayload)}
	h, msgr := newTestHandler(fetcher)
	rec := postPayload(t, h, submission("2024-05-10", "2024-05-01"))

	body := decodeBody(t, rec)
	assert.Equal(t, "errors", body["response_action"])
	errs := body["errors"].(map[string]any)
	assert.Contains(t, errs, BlockFromDate)
	assert.Contains(t, errs, BlockToDate)
	assert.Empty(t, fetcher.Windows(), "no upstream call for an inverted interval")
	assert.Empty(t, msgr.messages)
}

func TestHandler_RangeSubmissionMissingDate(t *testing.T) {
	h, _ := newTestHandler(&collector.MockFetcher{Payload: []byte(upstreamPayload)})
	body := decodeBody(t, postPayload(t, h, submission("2024-05-10", "")))
	errs := body["errors"].(map[string]any)
	assert.Contains(t, errs, BlockToDate)
	assert.NotContains(t, errs, BlockFromDate)
}

func TestHandler_RangeSubmissionUpstreamFailure(t *testing.T) {
	fetcher := &collector.MockFetcher{Err: errors.Join(model.ErrUpstreamTransport, errors.New("status 502"))}
	h, msgr := newTestHandler(fetcher)
	body := decodeBody(t, postPayload(t, h, submission("2024-05-01", "2024-05-02")))

	assert.Equal(t, "errors", body["response_action"])
	assert.Equal(t, map[string]any{BlockFromDate: rangeFailedText, BlockToDate: rangeFailedText}, body["errors"])
	assert.Empty(t, msgr.messages)
}

func TestHandler_Unhandled(t *testing.T) {
	h, _ := newTestHandler(&collector.MockFetcher{})
	rec := postJSON(t, h, `{"type":"something_else"}`)
	assert.Equal(t, "Event received", decodeBody(t, rec)["text"])
}

func TestHandler_InvalidPayload(t *testing.T) {
	h, _ := newTestHandler(&collector.MockFetcher{})
	form := url.Values{"payload": {"{not json"}}
	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_AckCompletesBeforeFollowUp(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		body        func(t *testing.T) string
		wantBody    string
		published   int
		messages    int
	}{
		{
			name:        "app home opened",
			contentType: "application/json",
			body: func(t *testing.T) string {
				return `{"type":"event_callback","event":{"type":"app_home_opened","user":"U1"}}`
			},
			wantBody:  `{}`,
			published: 1,
		},
		{
			name:        "range submission",
			contentType: "application/x-www-form-urlencoded",
			body: func(t *testing.T) string {
				raw, err := json.Marshal(submission("2024-05-01", "2024-05-02"))
				require.NoError(t, err)
				return url.Values{"payload": {string(raw)}}.Encode()
			},
			wantBody: `{"response_action":"clear"}`,
			messages: 1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, msgr := newTestHandler(&collector.MockFetcher{Payload: []byte(upstreamPayload)})
			release := make(chan struct{})
			var once sync.Once
			unblock := func() { once.Do(func() { close(release) }) }
			defer unblock()
			msgr.block = release
			srv := httptest.NewServer(h)
			defer srv.Close()

			client := &http.Client{Timeout: 2 * time.Second}
			resp, err := client.Post(srv.URL, tc.contentType, strings.NewReader(tc.body(t)))
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			require.NoError(t, err, "ack body must complete while the follow-up is blocked")
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.JSONEq(t, tc.wantBody, string(body))

			msgr.mu.Lock()
			assert.Empty(t, msgr.published)
			assert.Empty(t, msgr.messages)
			msgr.mu.Unlock()

			unblock()
			h.Wait()

			msgr.mu.Lock()
			defer msgr.mu.Unlock()
			assert.Len(t, msgr.published, tc.published)
			assert.Len(t, msgr.messages, tc.messages)
		})
	}
}
