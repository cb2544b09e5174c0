package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/azoguelabs/pvpcbill/pkg/log"
	"github.com/azoguelabs/pvpcbill/pkg/pvpc"
	"github.com/azoguelabs/pvpcbill/pkg/tariff"
)

// parseDateOrTime accepts a plain date (interpreted as Madrid midnight) or
// a full RFC3339 timestamp.
func parseDateOrTime(s string) (time.Time, error) {
	if ts, err := time.ParseInLocation("2006-01-02", s, tariff.Madrid); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (s *Server) handleGetPrices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	class, err := tariff.Parse(r.URL.Query().Get("tariff"))
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSONError(w, "invalid time range: "+err.Error(), http.StatusBadRequest)
		return
	}
	if end.Sub(start) > 31*24*time.Hour {
		writeJSONError(w, "time range cannot exceed 31 days", http.StatusBadRequest)
		return
	}

	prices, err := s.provider.GetHourlyPrices(ctx, class, start, end)
	if err != nil {
		if errors.Is(err, pvpc.ErrDataGap) {
			writeJSONError(w, err.Error(), http.StatusBadGateway)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "failed to get prices", slog.String("tariff", class.Code), slog.Any("error", err))
		writeJSONError(w, "failed to get prices", http.StatusInternalServerError)
		return
	}

	// historical days never change, recent ones may be refilled
	today := time.Now().In(tariff.Madrid).Truncate(24 * time.Hour)
	if end.Before(today) {
		w.Header().Set("Cache-Control", "private, max-age=86400")
	} else {
		w.Header().Set("Cache-Control", "private, max-age=60")
	}
	writeJSON(w, prices)
}

func (s *Server) handleListTariffs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", 24*3600))
	writeJSON(w, tariff.Classes())
}

func (s *Server) handleListZones(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", 24*3600))
	writeJSON(w, tariff.Zones())
}
