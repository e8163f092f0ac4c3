package web

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"PriceTracker/internal/model"
)

const (
	fetchFailedText = "Failed to fetch prices. Please try again."
	rangeFailedText = "Failed to fetch price range. Please try again."
	pngDataPrefix   = "data:image/png;base64,"
	maxImageBody    = 10 << 20
)

type pageData struct {
	Title     string
	Now       string
	Today     string
	FromDate  string
	ToDate    string
	Alert     string
	Loading   string
	Rows      []Row
	RangeRows []RangeRow
}

// handlePage renders the current prices and, when fromDate/toDate are
// given, the range table below them.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	// Upstream fetches are not interrupted by a client disconnect.
	ctx := context.WithoutCancel(r.Context())
	now := s.now()
	q := r.URL.Query()

	data := pageData{
		Title:    s.opts.Title,
		Now:      model.FormatDateTime(now),
		Today:    now.UTC().Format(model.DateLayout),
		FromDate: q.Get("fromDate"),
		ToDate:   q.Get("toDate"),
		Loading:  LoadingIndicator,
	}

	board, err := s.prices.CurrentPrices(ctx)
	if err != nil {
		s.logger.Error("fetch current prices failed", zap.Error(err))
		data.Alert = fetchFailedText
		board = model.NewPriceBoard()
	}
	data.Rows = RichRows(board)

	if data.FromDate != "" || data.ToDate != "" {
		data.RangeRows, data.Alert = s.pageRange(ctx, data.FromDate, data.ToDate, data.Alert)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		s.logger.Error("render page failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes()) //nolint:errcheck
}

func (s *Server) pageRange(ctx context.Context, from, to, alert string) ([]RangeRow, string) {
	iv, err := model.ParseInterval(from, to)
	var groups *model.RangeGroups
	if err == nil {
		groups, err = s.prices.PriceRange(ctx, iv)
	}
	var validErr *model.ValidationError
	switch {
	case errors.As(err, &validErr):
		return nil, validErr.Message
	case err != nil:
		s.logger.Error("fetch price range failed", zap.String("from", from), zap.String("to", to), zap.Error(err))
		return nil, rangeFailedText
	}
	return RichRangeRows(groups), alert
}

// handleCurrentPrices returns the normalized current-price rows.
func (s *Server) handleCurrentPrices(w http.ResponseWriter, r *http.Request) {
	board, err := s.prices.CurrentPrices(context.WithoutCancel(r.Context()))
	if err != nil {
		s.logger.Error("fetch current prices failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": fetchFailedText})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"updatedAt": model.FormatDateTime(s.now()),
		"rows":      RichRows(board),
		"prices":    board,
	})
}

// handleRawPrices proxies the upstream payload unmodified. fromDate and
// toDate accept RFC 3339 date-times or YYYY-MM-DD; both default to today.
func (s *Server) handleRawPrices(w http.ResponseWriter, r *http.Request) {
	win := model.TodayWindow(s.now())
	q := r.URL.Query()
	if v := q.Get("fromDate"); v != "" {
		t, err := parseBound(v, false)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid fromDate"})
			return
		}
		win.From = t
	}
	if v := q.Get("toDate"); v != "" {
		t, err := parseBound(v, true)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid toDate"})
			return
		}
		win.To = t
	}

	raw, err := s.prices.Raw(context.WithoutCancel(r.Context()), win)
	if err != nil {
		s.logger.Error("fetch raw prices failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch prices"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw) //nolint:errcheck
}

func parseBound(v string, end bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	d, err := time.Parse(model.DateLayout, v)
	if err != nil {
		return time.Time{}, err
	}
	if end {
		return d.Add(24*time.Hour - time.Second), nil
	}
	return d, nil
}

// handleImage stores a base64 PNG data URL and returns its public URL.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}
	if s.opts.ImageDir == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "image upload disabled"})
		return
	}

	var req struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxImageBody)).Decode(&req); err != nil ||
		!strings.HasPrefix(req.Image, pngDataPrefix) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid image data"})
		return
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(req.Image, pngDataPrefix))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid image data"})
		return
	}

	filename := uuid.NewString() + ".png"
	if err := os.MkdirAll(s.opts.ImageDir, 0o755); err != nil {
		s.logger.Error("create image dir failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to save image"})
		return
	}
	if err := os.WriteFile(filepath.Join(s.opts.ImageDir, filename), data, 0o644); err != nil {
		s.logger.Error("save image failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to save image"})
		return
	}

	imageURL := strings.TrimRight(s.baseURL(r), "/") + "/images/" + filename
	s.logger.Info("saved image", zap.String("url", imageURL))
	writeJSON(w, http.StatusOK, map[string]string{"url": imageURL})
}

func (s *Server) baseURL(r *http.Request) string {
	if s.opts.PublicBaseURL != "" {
		return s.opts.PublicBaseURL
	}
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
