// Package httpapi exposes the application services as a REST API.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	app "github.com/classbank/ledger/internal/app"
	"github.com/classbank/ledger/internal/app/domain/student"
	ledgersvc "github.com/classbank/ledger/internal/app/services/ledger"
	"github.com/classbank/ledger/internal/app/storage"
	"github.com/classbank/ledger/pkg/logger"
)

// Options configures the HTTP surface.
type Options struct {
	// TeacherPIN guards the teacher dashboard login endpoint.
	TeacherPIN string
	// AuditLimit caps the in-memory audit trail. Zero uses the default.
	AuditLimit int
	// AuditFile, when set, appends audit entries as JSONL.
	AuditFile string
}

type handler struct {
	app   *app.Application
	opts  Options
	audit *auditLog
	log   *logger.Logger
}

// NewHandler returns a router exposing the full REST API.
func NewHandler(application *app.Application, opts Options, log *logger.Logger) (http.Handler, error) {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	sink, err := newFileAuditSink(opts.AuditFile)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}

	h := &handler{
		app:   application,
		opts:  opts,
		audit: newAuditLog(opts.AuditLimit, sink),
		log:   log,
	}

	r := mux.NewRouter()
	r.Use(h.auditMiddleware)

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)

	r.HandleFunc("/students", h.createStudent).Methods(http.MethodPost)
	r.HandleFunc("/students", h.listStudents).Methods(http.MethodGet)
	r.HandleFunc("/students/{id}", h.getStudent).Methods(http.MethodGet)
	r.HandleFunc("/students/{id}/verify", h.verifyStudentPIN).Methods(http.MethodPost)
	r.HandleFunc("/students/{id}/save-goal", h.setSaveGoal).Methods(http.MethodPut)
	r.HandleFunc("/students/{id}/missions", h.studentMissions).Methods(http.MethodGet)
	r.HandleFunc("/students/{id}/history", h.balanceHistory).Methods(http.MethodGet)
	r.HandleFunc("/students/{id}/growth", h.growthReport).Methods(http.MethodGet)
	r.HandleFunc("/students/{id}/pending-rewards", h.studentPendingRewards).Methods(http.MethodGet)
	r.HandleFunc("/students/{id}/transfer", h.transferTokens).Methods(http.MethodPost)
	r.HandleFunc("/students/{id}/purchase", h.purchaseReward).Methods(http.MethodPost)

	r.HandleFunc("/missions/available", h.availableMissions).Methods(http.MethodGet)
	r.HandleFunc("/missions", h.createMission).Methods(http.MethodPost)
	r.HandleFunc("/missions", h.listMissions).Methods(http.MethodGet)
	r.HandleFunc("/missions/{id}", h.getMission).Methods(http.MethodGet)
	r.HandleFunc("/missions/{id}", h.updateMission).Methods(http.MethodPut)
	r.HandleFunc("/missions/{id}", h.deleteMission).Methods(http.MethodDelete)
	r.HandleFunc("/missions/{id}/request", h.requestMission).Methods(http.MethodPost)
	r.HandleFunc("/missions/{id}/assign", h.assignMission).Methods(http.MethodPost)
	r.HandleFunc("/missions/{id}/unassign", h.unassignMission).Methods(http.MethodPost)
	r.HandleFunc("/missions/{id}/complete", h.completeMission).Methods(http.MethodPost)

	r.HandleFunc("/rewards", h.createReward).Methods(http.MethodPost)
	r.HandleFunc("/rewards", h.listRewards).Methods(http.MethodGet)
	r.HandleFunc("/rewards/{id}", h.getReward).Methods(http.MethodGet)
	r.HandleFunc("/rewards/{id}", h.updateReward).Methods(http.MethodPut)
	r.HandleFunc("/rewards/{id}", h.deleteReward).Methods(http.MethodDelete)

	r.HandleFunc("/pending-rewards", h.allPendingRewards).Methods(http.MethodGet)
	r.HandleFunc("/pending-rewards/{id}/claim", h.claimPendingReward).Methods(http.MethodPost)

	r.HandleFunc("/board", h.missionBoard).Methods(http.MethodGet)
	r.HandleFunc("/leaderboard", h.leaderboard).Methods(http.MethodGet)
	r.HandleFunc("/pending-approvals", h.pendingApprovals).Methods(http.MethodGet)

	r.HandleFunc("/teacher/verify", h.verifyTeacherPIN).Methods(http.MethodPost)
	r.HandleFunc("/admin/advance-week", h.advanceWeek).Methods(http.MethodPost)
	r.HandleFunc("/admin/audit", h.listAudit).Methods(http.MethodGet)

	return r, nil
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Students --------------------------------------------------------------------

func (h *handler) createStudent(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		PIN      string `json:"pin"`
		SaveGoal int    `json:"saveGoal"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	st, err := h.app.Ledger.CreateStudent(r.Context(), payload.Name, payload.PIN, payload.SaveGoal)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *handler) listStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.app.Query.Students(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

func (h *handler) getStudent(w http.ResponseWriter, r *http.Request) {
	st, err := h.app.Query.Student(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) verifyStudentPIN(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PIN string `json:"pin"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ok, err := h.app.Ledger.VerifyPIN(r.Context(), mux.Vars(r)["id"], payload.PIN)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": ok})
}

func (h *handler) setSaveGoal(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Goal int `json:"goal"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	st, err := h.app.Ledger.SetSaveGoal(r.Context(), mux.Vars(r)["id"], payload.Goal)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) studentMissions(w http.ResponseWriter, r *http.Request) {
	missions, err := h.app.Query.StudentMissions(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, missions)
}

func (h *handler) balanceHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.app.Query.BalanceHistory(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *handler) growthReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.app.Query.Growth(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handler) studentPendingRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.app.Query.PendingRewards(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *handler) transferTokens(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Amount int    `json:"amount"`
		From   string `json:"from"`
		To     string `json:"to"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	from, err := student.ParseBucket(payload.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := student.ParseBucket(payload.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	st, err := h.app.Ledger.TransferTokens(r.Context(), mux.Vars(r)["id"], payload.Amount, from, to)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) purchaseReward(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RewardID string `json:"rewardId"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	st, err := h.app.Ledger.PurchaseReward(r.Context(), mux.Vars(r)["id"], payload.RewardID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Missions --------------------------------------------------------------------

func (h *handler) createMission(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		BaseReward  int    `json:"baseReward"`
		BandColor   string `json:"bandColor"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	m, err := h.app.Ledger.CreateMission(r.Context(), payload.Title, payload.Description, payload.BaseReward, payload.BandColor)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *handler) listMissions(w http.ResponseWriter, r *http.Request) {
	missions, err := h.app.Query.Missions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, missions)
}

func (h *handler) getMission(w http.ResponseWriter, r *http.Request) {
	m, err := h.app.Query.Mission(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handler) updateMission(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		BaseReward  *int    `json:"baseReward"`
		BandColor   *string `json:"bandColor"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	m, err := h.app.Ledger.UpdateMission(r.Context(), mux.Vars(r)["id"],
		payload.Title, payload.Description, payload.BaseReward, payload.BandColor)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handler) deleteMission(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Ledger.DeleteMission(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) requestMission(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		StudentID string `json:"studentId"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	m, err := h.app.Ledger.RequestMission(r.Context(), payload.StudentID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handler) assignMission(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		StudentID string `json:"studentId"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	m, err := h.app.Ledger.AssignMission(r.Context(), mux.Vars(r)["id"], payload.StudentID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handler) unassignMission(w http.ResponseWriter, r *http.Request) {
	m, err := h.app.Ledger.UnassignMission(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handler) completeMission(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Ledger.CompleteMission(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *handler) availableMissions(w http.ResponseWriter, r *http.Request) {
	missions, err := h.app.Query.AvailableMissions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, missions)
}

// Rewards ---------------------------------------------------------------------

func (h *handler) createReward(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Cost        int    `json:"cost"`
		Icon        string `json:"icon"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rw, err := h.app.Ledger.CreateReward(r.Context(), payload.Title, payload.Description, payload.Cost, payload.Icon)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, rw)
}

func (h *handler) listRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.app.Query.Rewards(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *handler) getReward(w http.ResponseWriter, r *http.Request) {
	rw, err := h.app.Query.Reward(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, rw)
}

func (h *handler) updateReward(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Cost        *int    `json:"cost"`
		Icon        *string `json:"icon"`
		SoldOut     *bool   `json:"soldOut"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rw, err := h.app.Ledger.UpdateReward(r.Context(), mux.Vars(r)["id"],
		payload.Title, payload.Description, payload.Cost, payload.Icon, payload.SoldOut)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, rw)
}

func (h *handler) deleteReward(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Ledger.DeleteReward(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Pending rewards -------------------------------------------------------------

func (h *handler) allPendingRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.app.Query.AllPendingRewards(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *handler) claimPendingReward(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Spend int `json:"spend"`
		Save  int `json:"save"`
		Grow  int `json:"grow"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	st, err := h.app.Ledger.ClaimPendingReward(r.Context(), mux.Vars(r)["id"],
		payload.Spend, payload.Save, payload.Grow)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Boards ----------------------------------------------------------------------

func (h *handler) missionBoard(w http.ResponseWriter, r *http.Request) {
	board, err := h.app.Query.Board(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.app.Query.Leaderboard(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *handler) pendingApprovals(w http.ResponseWriter, r *http.Request) {
	queue, err := h.app.Query.PendingApprovals(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, queue)
}

// Teacher and admin -----------------------------------------------------------

func (h *handler) verifyTeacherPIN(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PIN string `json:"pin"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": payload.PIN == h.opts.TeacherPIN})
}

func (h *handler) advanceWeek(w http.ResponseWriter, r *http.Request) {
	n, err := h.app.Ledger.AdvanceWeek(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"studentsAdvanced": n})
}

func (h *handler) listAudit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.audit.list())
}

func (h *handler) auditMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if r.Method != http.MethodGet {
			h.audit.add(auditEntry{
				Time:       time.Now().UTC(),
				Method:     r.Method,
				Path:       r.URL.Path,
				Status:     rec.status,
				RemoteAddr: r.RemoteAddr,
			})
		}
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Helpers ---------------------------------------------------------------------

func decodeJSON(body io.Reader, dst any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledgersvc.ErrMissionAssigned),
		errors.Is(err, ledgersvc.ErrAlreadyRequested),
		errors.Is(err, ledgersvc.ErrAlreadyCompleted),
		errors.Is(err, ledgersvc.ErrNoAssignee),
		errors.Is(err, ledgersvc.ErrInsufficientTokens),
		errors.Is(err, ledgersvc.ErrSoldOut):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
