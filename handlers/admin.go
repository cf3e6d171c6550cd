package handlers

import (
	"net/http"
	"strconv"
	"time"

	"lodyland/internal/game"
	"lodyland/internal/network"
)

func (a *API) handleContentSummary(w http.ResponseWriter, r *http.Request) {
	reg := a.deps.Store.Current()
	writeOK(w, map[string]interface{}{
		"version":   a.deps.Store.Version(),
		"loaded_at": reg.LoadedAt(),
		"counts":    reg.Summary(),
		"warnings":  reg.Warnings(),
	})
}

// handleContentReload reloads content and swaps it in. A failed load keeps
// the running registry.
func (a *API) handleContentReload(w http.ResponseWriter, r *http.Request) {
	if a.deps.LoadContent == nil {
		writeFailure(w, http.StatusServiceUnavailable, "reload_unavailable", nil)
		return
	}
	version, err := a.deps.Store.Reload(a.deps.LoadContent)
	if err != nil {
		a.logger.Error("Content reload failed: %v", err)
		writeFailure(w, http.StatusUnprocessableEntity, "content_invalid", map[string]interface{}{
			"detail": err.Error(),
		})
		return
	}

	reg := a.deps.Store.Current()
	for _, warning := range reg.Warnings() {
		a.logger.Warn("Content: %s", warning)
	}
	a.logger.Info("Content reloaded, version %d", version)
	a.deps.Events.Publish(game.NewEvent(game.EventContentLoad, 0, time.Now(), map[string]any{
		"version": version,
		"counts":  reg.Summary(),
	}))

	writeOK(w, map[string]interface{}{
		"version":  version,
		"counts":   reg.Summary(),
		"warnings": reg.Warnings(),
	})
}

func (a *API) handleBackup(w http.ResponseWriter, r *http.Request) {
	if a.deps.Backups == nil {
		writeFailure(w, http.StatusServiceUnavailable, "backups_unavailable", nil)
		return
	}
	info, err := a.deps.Backups.CreateBackup(r.Context(), r.URL.Query().Get("description"), "manual")
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeOK(w, info)
}

func (a *API) handleListBackups(w http.ResponseWriter, r *http.Request) {
	if a.deps.Backups == nil {
		writeFailure(w, http.StatusServiceUnavailable, "backups_unavailable", nil)
		return
	}
	list, err := a.deps.Backups.ListBackups()
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeOK(w, list)
}

func (a *API) handleOptimize(w http.ResponseWriter, r *http.Request) {
	if a.deps.Optimizer == nil {
		writeFailure(w, http.StatusServiceUnavailable, "optimizer_unavailable", nil)
		return
	}
	if err := a.deps.Optimizer.OptimizeNow(r.Context()); err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeOK(w, a.deps.Optimizer.GetStats())
}

func (a *API) handleDBStats(w http.ResponseWriter, r *http.Request) {
	sizes, err := a.deps.DB.GetDatabaseSize(r.Context())
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	schema, err := a.deps.DB.Migrator().Status(r.Context())
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	out := map[string]interface{}{"sizes": sizes, "schema": schema}
	if a.deps.Optimizer != nil {
		out["optimizer"] = a.deps.Optimizer.GetStats()
	}
	writeOK(w, out)
}

func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	if a.deps.Hub == nil {
		writeFailure(w, http.StatusServiceUnavailable, "events_unavailable", nil)
		return
	}
	a.deps.Hub.ServeWS(w, r)
}

func (a *API) handleEventHistory(w http.ResponseWriter, r *http.Request) {
	if a.deps.Hub == nil {
		writeFailure(w, http.StatusServiceUnavailable, "events_unavailable", nil)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 100
	}
	writeOK(w, a.deps.Hub.History(network.FilterFromQuery(r), limit))
}
