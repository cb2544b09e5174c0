package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/azoguelabs/pvpcbill/pkg/billing"
	"github.com/azoguelabs/pvpcbill/pkg/log"
	"github.com/azoguelabs/pvpcbill/pkg/storage"
	"github.com/azoguelabs/pvpcbill/pkg/types"
)

func (s *Server) computeFromRequest(w http.ResponseWriter, r *http.Request) (*billing.Invoice, bool) {
	ctx := r.Context()

	var params types.BillingParams
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}

	inv, err := s.engine.Compute(ctx, params)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrInvalidInput),
			errors.Is(err, billing.ErrUnknownTariff),
			errors.Is(err, billing.ErrAmbiguousLocalTime):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, billing.ErrDataGap):
			writeJSONError(w, err.Error(), http.StatusBadGateway)
		default:
			log.Ctx(ctx).ErrorContext(ctx, "failed to compute invoice", slog.Any("error", err))
			writeJSONError(w, "failed to compute invoice", http.StatusInternalServerError)
		}
		return nil, false
	}
	return inv, true
}

func (s *Server) handleComputeInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	inv, ok := s.computeFromRequest(w, r)
	if !ok {
		return
	}

	summary := inv.Summary()
	if err := s.storage.InsertInvoice(ctx, summary); err != nil {
		// the computed invoice is still returned
		log.Ctx(ctx).WarnContext(ctx, "failed to store invoice", slog.String("id", summary.ID), slog.Any("error", err))
	}

	writeJSON(w, summary)
}

// handleExportInvoice computes an invoice and streams it in the requested
// format: text, csv, xlsx or pdf.
func (s *Server) handleExportInvoice(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "text"
	}

	inv, ok := s.computeFromRequest(w, r)
	if !ok {
		return
	}

	var err error
	switch format {
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, err = w.Write([]byte(inv.Text()))
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", inv.CSVFilename()))
		err = inv.WriteCSV(w)
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "factura_"+inv.ID()+".xlsx"))
		err = inv.WriteXLSX(w)
	case "pdf":
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "factura_"+inv.ID()+".pdf"))
		err = inv.WritePDF(w)
	default:
		writeJSONError(w, "unknown format (valid: text|csv|xlsx|pdf)", http.StatusBadRequest)
		return
	}
	if err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	inv, err := s.storage.GetInvoice(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSONError(w, "invoice not found", http.StatusNotFound)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "failed to get invoice", slog.String("id", id), slog.Any("error", err))
		writeJSONError(w, "failed to get invoice", http.StatusInternalServerError)
		return
	}
	writeJSON(w, inv)
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cups := r.URL.Query().Get("cups")
	if cups == "" {
		writeJSONError(w, "cups is required", http.StatusBadRequest)
		return
	}
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSONError(w, "invalid time range: "+err.Error(), http.StatusBadRequest)
		return
	}

	invoices, err := s.storage.GetInvoiceHistory(ctx, cups, start, end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list invoices", slog.String("cups", cups), slog.Any("error", err))
		writeJSONError(w, "failed to list invoices", http.StatusInternalServerError)
		return
	}
	if invoices == nil {
		invoices = []types.InvoiceSummary{}
	}
	writeJSON(w, invoices)
}

func parseTimeRange(r *http.Request) (time.Time, time.Time, error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" || endStr == "" {
		// Default to the last year if not specified
		end := time.Now()
		start := end.AddDate(-1, 0, 0)
		return start, end, nil
	}

	start, err := parseDateOrTime(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}

	end, err := parseDateOrTime(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("start time must be before end time")
	}

	return start, end, nil
}
