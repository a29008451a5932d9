package handlers

import (
	"net/http"

	applog "aromastock/internal/log"
	"aromastock/models"
)

// ActivityFeed lists the caller's audit trail entries, newest first.
func ActivityFeed(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "activity request without database")
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	userID, ok := currentUserID(r)
	if !ok {
		applog.Debug(r.Context(), "activity request missing authenticated user")
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	var entries []models.ActivityLog
	err := database.WithContext(ctx).
		Where("owner_id = ?", userID).
		Order("created_at desc, id desc").
		Limit(200).
		Find(&entries).Error
	if err != nil {
		applog.Error(ctx, "failed to load activity feed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load activity")
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
