package reminder

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/craftdesk/craftdesk/internal/httpserver"
)

// Handler exposes the sweep as a task endpoint so an external
// scheduler can drive reminders instead of the built-in worker.
type Handler struct {
	sweeper *Sweeper
	logger  *slog.Logger
}

// NewHandler creates a reminder Handler.
func NewHandler(sweeper *Sweeper, logger *slog.Logger) *Handler {
	return &Handler{sweeper: sweeper, logger: logger}
}

// Routes returns a chi.Router with the task routes mounted. Mounted
// under /tasks.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/send-reminders", h.handleSendReminders)
	return r
}

// SendRemindersResponse reports the sweep outcome.
type SendRemindersResponse struct {
	Success       bool `json:"success"`
	RemindersSent int  `json:"reminders_sent"`
}

func (h *Handler) handleSendReminders(w http.ResponseWriter, r *http.Request) {
	sent, err := h.sweeper.Run(r.Context())
	if err != nil {
		h.logger.Error("reminder sweep", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "reminder sweep failed")
		return
	}

	httpserver.Respond(w, http.StatusOK, SendRemindersResponse{Success: true, RemindersSent: sent})
}
