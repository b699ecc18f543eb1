package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	app "github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/matrix"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/participant"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/services/ranking"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/storage"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a mux exposing the core REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.health)
	mux.HandleFunc("/participants", h.participants)
	mux.HandleFunc("/participants/", h.participantResources)
	mux.HandleFunc("/leaderboard", h.leaderboard)
	mux.HandleFunc("/settlement/run", h.runSettlement)
	mux.HandleFunc("/plan", h.plan)
	mux.HandleFunc("/plan/reload", h.reloadPlan)
	return mux
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) participants(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Name        string `json:"name"`
			SponsorID   string `json:"sponsorId"`
			ExternalRef string `json:"externalRef"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		created, placement, err := h.app.Placement.Register(r.Context(), participant.Participant{
			Name:        payload.Name,
			SponsorID:   payload.SponsorID,
			ExternalRef: payload.ExternalRef,
		})
		if err != nil {
			writeError(w, placementStatus(err), err)
			return
		}

		resp := map[string]interface{}{"participant": created}
		if placement != nil {
			resp["edge"] = placement.Edge
			resp["cycle"] = placement.Cycle
		}
		writeJSON(w, http.StatusCreated, resp)

	case http.MethodGet:
		list, err := h.app.Stores.Participants.ListParticipants(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) participantResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/participants"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	participantID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		p, err := h.app.Stores.Participants.GetParticipant(r.Context(), participantID)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
		return
	}

	switch parts[1] {
	case "cycles":
		h.participantCycles(w, r, participantID)
	case "ledger":
		h.participantLedger(w, r, participantID)
	case "bonuses":
		h.participantBonuses(w, r, participantID)
	case "career":
		h.participantCareer(w, r, participantID)
	case "upline":
		h.participantUpline(w, r, participantID)
	case "reenter":
		h.participantReenter(w, r, participantID)
	case "status":
		h.participantStatus(w, r, participantID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) participantCycles(w http.ResponseWriter, r *http.Request, participantID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cyclesList, err := h.app.Stores.Matrix.ListCycles(r.Context(), participantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, cyclesList)
}

func (h *handler) participantLedger(w http.ResponseWriter, r *http.Request, participantID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	acct, err := h.app.Stores.Ledger.GetLedgerAccount(r.Context(), participantID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	entries, err := h.app.Stores.Ledger.ListLedgerEntries(r.Context(), participantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"account": acct, "entries": entries})
}

func (h *handler) participantBonuses(w http.ResponseWriter, r *http.Request, participantID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	records, err := h.app.Stores.Bonuses.ListBonusRecords(r.Context(), participantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *handler) participantCareer(w http.ResponseWriter, r *http.Request, participantID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	progress, err := h.app.Career.ProgressFor(r.Context(), participantID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *handler) participantUpline(w http.ResponseWriter, r *http.Request, participantID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	levels := 6
	if raw := r.URL.Query().Get("levels"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("levels must be a positive integer"))
			return
		}
		levels = parsed
	}
	ancestors, err := h.app.Upline.Resolve(r.Context(), participantID, levels)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, ancestors)
}

func (h *handler) participantReenter(w http.ResponseWriter, r *http.Request, participantID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cycle, err := h.app.Cycles.Reenter(r.Context(), participantID)
	if err != nil {
		switch {
		case errors.Is(err, matrix.ErrReentryLimit):
			writeError(w, http.StatusConflict, err)
		case errors.Is(err, matrix.ErrCycleNotCompleted):
			writeError(w, http.StatusConflict, err)
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, http.StatusNotFound, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, cycle)
}

func (h *handler) participantStatus(w http.ResponseWriter, r *http.Request, participantID string) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := h.app.Placement.SetStatus(r.Context(), participantID, participant.Status(payload.Status))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = ranking.Period(time.Now())
	}
	n := 10
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("n must be a positive integer"))
			return
		}
		n = parsed
	}
	standings, err := h.app.Board.Top(r.Context(), period, n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"period": period, "standings": standings})
}

func (h *handler) runSettlement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	settled, err := h.app.Settlement.ProcessPending(r.Context(), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"settled": settled})
}

func (h *handler) plan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.app.Plans.Current())
}

func (h *handler) reloadPlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cfg, err := h.app.Plans.Reload()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func placementStatus(err error) int {
	switch {
	case errors.Is(err, matrix.ErrSponsorNotFound):
		return http.StatusNotFound
	case errors.Is(err, matrix.ErrAlreadyPlaced),
		errors.Is(err, matrix.ErrNoVacancy),
		errors.Is(err, matrix.ErrSelfOrAncestorPlacement):
		return http.StatusConflict
	case errors.Is(err, matrix.ErrCorruptSponsorGraph):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
