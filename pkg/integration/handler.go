package integration

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/craftdesk/craftdesk/internal/httpserver"
)

// Handler provides HTTP handlers for workspace integration settings.
type Handler struct {
	store  *Store
	logger *slog.Logger
}

// NewHandler creates an integration Handler.
func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Routes returns a chi.Router with all integration settings routes
// mounted. Mounted under /settings/{workspaceID}/integrations.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleStatus)
	r.Put("/email", h.handleConfigureEmail)
	r.Put("/sms", h.handleConfigureSMS)
	r.Put("/calendar", h.handleConfigureCalendar)
	r.Put("/ops", h.handleConfigureWebhook)
	r.Delete("/{type}", h.handleDeactivate)
	return r
}

func workspaceID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "workspaceID"))
	return id, err == nil
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	wsID, ok := workspaceID(r)
	if !ok {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid workspace ID")
		return
	}

	statuses, err := h.store.StatusByType(r.Context(), wsID)
	if err != nil {
		h.logger.Error("listing integration status", "error", err, "workspace_id", wsID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list integrations")
		return
	}

	httpserver.Respond(w, http.StatusOK, statuses)
}

func (h *Handler) handleConfigureEmail(w http.ResponseWriter, r *http.Request) {
	var creds EmailCredentials
	h.configure(w, r, TypeEmail, &creds, func() error { return creds.Validate() })
}

func (h *Handler) handleConfigureSMS(w http.ResponseWriter, r *http.Request) {
	var creds SMSCredentials
	h.configure(w, r, TypeSMS, &creds, func() error { return creds.Validate() })
}

func (h *Handler) handleConfigureCalendar(w http.ResponseWriter, r *http.Request) {
	var creds CalendarCredentials
	h.configure(w, r, TypeCalendar, &creds, func() error { return creds.Validate() })
}

func (h *Handler) handleConfigureWebhook(w http.ResponseWriter, r *http.Request) {
	var creds WebhookCredentials
	h.configure(w, r, TypeWebhook, &creds, func() error { return creds.Validate() })
}

func (h *Handler) configure(w http.ResponseWriter, r *http.Request, typ Type, creds any, validate func() error) {
	wsID, ok := workspaceID(r)
	if !ok {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid workspace ID")
		return
	}

	if err := httpserver.Decode(r, creds); err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := validate(); err != nil {
		httpserver.RespondError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	i, err := h.store.Configure(r.Context(), wsID, typ, creds)
	if err != nil {
		h.logger.Error("configuring integration", "error", err, "workspace_id", wsID, "type", typ)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to configure integration")
		return
	}

	h.logger.Info("integration configured", "workspace_id", wsID, "type", typ)
	httpserver.Respond(w, http.StatusOK, i)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	wsID, ok := workspaceID(r)
	if !ok {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid workspace ID")
		return
	}

	typ := Type(chi.URLParam(r, "type"))
	if !typ.Valid() {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "unknown integration type")
		return
	}

	if err := h.store.Deactivate(r.Context(), wsID, typ); err != nil {
		h.logger.Error("deactivating integration", "error", err, "workspace_id", wsID, "type", typ)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to deactivate integration")
		return
	}

	h.logger.Info("integration deactivated", "workspace_id", wsID, "type", typ)
	httpserver.Respond(w, http.StatusNoContent, nil)
}
