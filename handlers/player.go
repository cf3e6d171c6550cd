package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"lodyland/internal/gameplay"
)

type nameRequest struct {
	Name string `json:"name"`
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if a.deps.DB != nil {
		if err := a.deps.DB.Health(r.Context()); err != nil {
			a.logger.Error("Health check failed: %v", err)
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]interface{}{
		"ok":              code == http.StatusOK,
		"status":          status,
		"content_version": a.deps.Store.Version(),
		"time":            time.Now().UTC(),
	})
}

func (a *API) setSession(w http.ResponseWriter, sess *gameplay.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   a.deps.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid_body", nil)
		return
	}
	sess, err := a.deps.Service.Register(r.Context(), req.Name)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	a.setSession(w, sess)
	writeOK(w, sess.Player)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid_body", nil)
		return
	}
	sess, err := a.deps.Service.Login(r.Context(), req.Name)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	a.setSession(w, sess)
	writeOK(w, sess.Player)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		if err := a.deps.Service.Logout(r.Context(), cookie.Value); err != nil {
			writeError(w, a.logger, err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeOK(w, nil)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	writeOK(w, playerFrom(r))
}

func (a *API) handleState(w http.ResponseWriter, r *http.Request) {
	view, err := a.deps.Service.State(r.Context(), playerFrom(r).ID)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeOK(w, view)
}

func (a *API) handleContentResources(w http.ResponseWriter, r *http.Request) {
	writeOK(w, a.deps.Store.Current().Resources())
}

func (a *API) handleContentLevels(w http.ResponseWriter, r *http.Request) {
	writeOK(w, a.deps.Store.Current().Levels())
}

func (a *API) handleUnlockTile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Resource string `json:"resource"`
	}
	if err := decodeBody(w, r, &req); err != nil || req.Resource == "" {
		writeFailure(w, http.StatusBadRequest, "resource_required", nil)
		return
	}
	tile, err := a.deps.Service.UnlockTile(r.Context(), playerFrom(r).ID, req.Resource)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeOK(w, tile)
}

func (a *API) handleCollectTile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid_tile_id", nil)
		return
	}
	out, err := a.deps.Service.CollectTile(r.Context(), playerFrom(r).ID, id)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeOK(w, out)
}

func (a *API) handleCollectLand(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Slot int    `json:"slot"`
		Tool string `json:"tool"`
	}{Tool: "hand"}
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid_body", nil)
		return
	}
	out, err := a.deps.Service.CollectLand(r.Context(), playerFrom(r).ID, mux.Vars(r)["land"], req.Slot, req.Tool)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeOK(w, out)
}

func (a *API) handleBuySlot(w http.ResponseWriter, r *http.Request) {
	out, err := a.deps.Service.BuyLandSlot(r.Context(), playerFrom(r).ID, mux.Vars(r)["land"])
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeOK(w, out)
}

func (a *API) handleSell(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Resource string  `json:"resource"`
		Quantity float64 `json:"quantity"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid_body", nil)
		return
	}
	out, err := a.deps.Service.Sell(r.Context(), playerFrom(r).ID, req.Resource, req.Quantity)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeOK(w, out)
}

func (a *API) handleShopCards(w http.ResponseWriter, r *http.Request) {
	out, err := a.deps.Service.ShopCards(r.Context(), playerFrom(r).ID)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeOK(w, out)
}

func (a *API) handleBuyCard(w http.ResponseWriter, r *http.Request) {
	out, err := a.deps.Service.BuyCard(r.Context(), playerFrom(r).ID, mux.Vars(r)["key"])
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeOK(w, out)
}

func (a *API) handleClaimDaily(w http.ResponseWriter, r *http.Request) {
	out, err := a.deps.Service.ClaimDaily(r.Context(), playerFrom(r).ID)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeOK(w, out)
}

func (a *API) handleDailyStatus(w http.ResponseWriter, r *http.Request) {
	out, err := a.deps.Service.DailyStatus(r.Context(), playerFrom(r).ID)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeOK(w, out)
}

func (a *API) handleQuests(w http.ResponseWriter, r *http.Request) {
	out, err := a.deps.Service.Quests(r.Context(), playerFrom(r).ID)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeOK(w, out)
}
