package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"PriceTracker/internal/model"
)

const (
	maxEventBody = 1 << 20

	refreshedText   = "Current prices have been refreshed!"
	fetchFailedText = "Failed to fetch prices. Please try again."
	rangeFailedText = "Failed to fetch price range. Please try again."
)

// Messenger is the outbound half of the chat platform.
type Messenger interface {
	PublishHome(ctx context.Context, userID string, view View) error
	OpenView(ctx context.Context, triggerID string, view View) error
	PostMessage(ctx context.Context, channel, text string, blocks []Block) error
}

// PriceSource supplies normalized prices.
type PriceSource interface {
	CurrentPrices(ctx context.Context) (*model.PriceBoard, error)
	PriceRange(ctx context.Context, iv model.DateInterval) (*model.RangeGroups, error)
}

// Handler serves the chat platform's event and interaction requests.
type Handler struct {
	Prices    PriceSource
	Messenger Messenger
	Title     string
	Logger    *zap.Logger
	Now       func() time.Time

	pending sync.WaitGroup
}

// NewHandler creates a Handler.
func NewHandler(prices PriceSource, messenger Messenger, title string, logger *zap.Logger) *Handler {
	return &Handler{
		Prices:    prices,
		Messenger: messenger,
		Title:     title,
		Logger:    logger,
		Now:       time.Now,
	}
}

// envelope is the outer JSON document of an Events API request.
type envelope struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Event     struct {
		Type string `json:"type"`
		User string `json:"user"`
	} `json:"event"`
	Payload string `json:"payload"`
}

type selectedDate struct {
	SelectedDate string `json:"selected_date"`
}

// interaction is a block action or view submission payload.
type interaction struct {
	Type      string `json:"type"`
	TriggerID string `json:"trigger_id"`
	User      struct {
		ID string `json:"id"`
	} `json:"user"`
	Actions []struct {
		ActionID string `json:"action_id"`
	} `json:"actions"`
	View struct {
		CallbackID string `json:"callback_id"`
		State      struct {
			Values map[string]map[string]selectedDate `json:"values"`
		} `json:"state"`
	} `json:"view"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	var env envelope
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		form, err := url.ParseQuery(string(body))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form body"})
			return
		}
		env.Payload = form.Get("payload")
	} else if err := json.Unmarshal(body, &env); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	// Work after the acknowledgement must outlive the request.
	ctx := context.WithoutCancel(r.Context())

	switch {
	case env.Type == "url_verification":
		h.Logger.Info("url verification challenge received")
		writeJSON(w, http.StatusOK, map[string]string{"challenge": env.Challenge})
	case env.Type == "event_callback":
		ack(w, map[string]any{})
		if env.Event.Type == "app_home_opened" {
			user := env.Event.User
			h.afterAck(func() { h.publishHome(ctx, user) })
		}
	case env.Payload != "":
		h.handleInteraction(ctx, w, env.Payload)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"text": "Event received"})
	}
}

func (h *Handler) handleInteraction(ctx context.Context, w http.ResponseWriter, raw string) {
	var in interaction
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		h.Logger.Warn("invalid interaction payload", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	switch in.Type {
	case "block_actions":
		ack(w, map[string]any{})
		if len(in.Actions) == 0 {
			return
		}
		h.afterAck(func() { h.handleAction(ctx, in) })
	case "view_submission":
		if in.View.CallbackID != CallbackDateRangeModal {
			writeJSON(w, http.StatusOK, map[string]any{})
			return
		}
		h.handleRangeSubmission(ctx, w, in)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"text": "Event received"})
	}
}

func (h *Handler) handleAction(ctx context.Context, in interaction) {
	userID := in.User.ID
	switch action := in.Actions[0].ActionID; action {
	case ActionCheckCurrent:
		if !h.publishHome(ctx, userID) {
			return
		}
		if err := h.Messenger.PostMessage(ctx, userID, refreshedText, nil); err != nil {
			h.Logger.Error("post refresh notice failed", zap.String("user", userID), zap.Error(err))
		}
	case ActionCheckRange:
		if err := h.Messenger.OpenView(ctx, in.TriggerID, DateRangeModal(h.Now())); err != nil {
			h.Logger.Error("open date range modal failed", zap.String("user", userID), zap.Error(err))
		}
	default:
		h.Logger.Debug("ignoring action", zap.String("action", action))
	}
}

// publishHome refreshes the home tab of userID. On an upstream failure the
// user gets a generic error message instead.
func (h *Handler) publishHome(ctx context.Context, userID string) bool {
	board, err := h.Prices.CurrentPrices(ctx)
	if err != nil {
		h.Logger.Error("fetch current prices failed", zap.String("user", userID), zap.Error(err))
		if postErr := h.Messenger.PostMessage(ctx, userID, fetchFailedText, nil); postErr != nil {
			h.Logger.Error("post error notice failed", zap.String("user", userID), zap.Error(postErr))
		}
		return false
	}
	if err := h.Messenger.PublishHome(ctx, userID, HomeView(h.Title, board, h.Now())); err != nil {
		h.Logger.Error("publish home failed", zap.String("user", userID), zap.Error(err))
		return false
	}
	return true
}

func (h *Handler) handleRangeSubmission(ctx context.Context, w http.ResponseWriter, in interaction) {
	values := in.View.State.Values
	from := values[BlockFromDate][ActionFromDate].SelectedDate
	to := values[BlockToDate][ActionToDate].SelectedDate
	h.Logger.Info("date range submitted", zap.String("from", from), zap.String("to", to))

	iv, err := model.ParseInterval(from, to)
	var groups *model.RangeGroups
	if err == nil {
		groups, err = h.Prices.PriceRange(ctx, iv)
	}

	var validErr *model.ValidationError
	switch {
	case errors.As(err, &validErr):
		writeJSON(w, http.StatusOK, modalErrors(validErr))
		return
	case err != nil:
		h.Logger.Error("fetch price range failed", zap.String("from", from), zap.String("to", to), zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]any{
			"response_action": "errors",
			"errors": map[string]string{
				BlockFromDate: rangeFailedText,
				BlockToDate:   rangeFailedText,
			},
		})
		return
	}

	table := RenderRangeTable(groups)
	if table.Truncated {
		h.Logger.Warn("range table truncated",
			zap.Error(model.ErrRenderSizeExceeded),
			zap.Int("rows", table.Rows),
			zap.Int("dropped", table.Dropped))
	}

	ack(w, map[string]string{"response_action": "clear"})
	h.afterAck(func() {
		text := "Price range for " + iv.String()
		if err := h.Messenger.PostMessage(ctx, in.User.ID, text, RangeMessageBlocks(iv, table)); err != nil {
			h.Logger.Error("post price range failed", zap.String("user", in.User.ID), zap.Error(err))
		}
	})
}

// afterAck runs fn off the request goroutine. The response body is only
// complete once ServeHTTP returns.
func (h *Handler) afterAck(fn func()) {
	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		fn()
	}()
}

// Wait blocks until all follow-up work started by earlier requests is done.
func (h *Handler) Wait() {
	h.pending.Wait()
}

// modalErrors attaches a validation message to the offending date blocks.
func modalErrors(err *model.ValidationError) map[string]any {
	fields := map[string]string{}
	switch err.Field {
	case "from":
		fields[BlockFromDate] = err.Message
	case "to":
		fields[BlockToDate] = err.Message
	default:
		fields[BlockFromDate] = err.Message
		fields[BlockToDate] = err.Message
	}
	return map[string]any{"response_action": "errors", "errors": fields}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// ack writes and flushes an immediate reply.
func ack(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, v)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
