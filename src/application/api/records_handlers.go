package api

import (
	"net/http"
	"strconv"
	"strings"

	"mediagrab-be-server/src/application/records/entity"
)

// ListRecords returns the caller's download history, newest first.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	filter := entity.RecordFilter{UserID: UserID(r)}

	if rawStatus := r.URL.Query().Get("status"); rawStatus != "" {
		status, err := entity.ConvertToStatus(rawStatus)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Unknown status filter")
			return
		}
		filter.Status = status
	}

	page := entity.Pagination{
		Page:  queryInt(r, "page", 1),
		Limit: queryInt(r, "limit", 0),
	}

	records, err := h.recordStore.FindRecords(r.Context(), filter, page)
	if err != nil {
		writeInternalError(w, h.environment, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"page":    page.Page,
		"count":   len(records),
	})
}

// RecordStats aggregates the caller's records by status.
func (h *Handler) RecordStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	stats, err := h.recordStore.StatusStats(r.Context(), UserID(r))
	if err != nil {
		writeInternalError(w, h.environment, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"stats": stats})
}

// DeleteRecord removes one record, but only if the caller owns it.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	recordID := strings.TrimPrefix(r.URL.Path, "/api/records/")
	if recordID == "" || strings.Contains(recordID, "/") {
		writeError(w, http.StatusBadRequest, "A record ID is required")
		return
	}

	record, err := h.recordStore.GetRecord(r.Context(), recordID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Record not found")
		return
	}

	if record.UserID != UserID(r) {
		// don't leak existence of other users' records
		writeError(w, http.StatusNotFound, "Record not found")
		return
	}

	if err := h.recordStore.DeleteRecord(r.Context(), recordID); err != nil {
		writeInternalError(w, h.environment, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": recordID})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if value, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return value
	}
	return fallback
}
