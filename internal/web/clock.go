package web

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"PriceTracker/internal/model"
)

type clockTick struct {
	Now string `json:"now"`
}

// handleClock pushes the formatted current time on every tick until the
// client goes away. It never touches prices.
func (s *Server) handleClock(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(clockTick{Now: model.FormatDateTime(s.now())}); err != nil {
		return
	}

	ticker := time.NewTicker(s.opts.ClockInterval)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			if err := conn.WriteJSON(clockTick{Now: model.FormatDateTime(s.now())}); err != nil {
				return
			}
		}
	}
}
