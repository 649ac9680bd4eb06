package booking

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/craftdesk/craftdesk/internal/httpserver"
	"github.com/craftdesk/craftdesk/pkg/contact"
	"github.com/craftdesk/craftdesk/pkg/dispatch"
	"github.com/craftdesk/craftdesk/pkg/workspace"
)

// PublicHandler serves the unauthenticated endpoints customers book
// through. Workspace existence is the only gate; everything else is
// validated per request.
type PublicHandler struct {
	store      *Store
	workspaces *workspace.Store
	contacts   *contact.Store
	notifier   Notifier
	logger     *slog.Logger
}

// NewPublicHandler creates a PublicHandler.
func NewPublicHandler(store *Store, workspaces *workspace.Store, contacts *contact.Store, notifier Notifier, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{
		store:      store,
		workspaces: workspaces,
		contacts:   contacts,
		notifier:   notifier,
		logger:     logger,
	}
}

// Routes returns a chi.Router with the public routes mounted. Mounted
// under /public.
func (h *PublicHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/services/{workspaceID}", h.handleListServices)
	r.Post("/book/{workspaceID}", h.handleBook)
	r.Post("/contact-form/{workspaceID}/submit", h.handleContactForm)
	return r
}

// BookRequest is a customer's booking submission.
type BookRequest struct {
	CustomerName string    `json:"customer_name" validate:"required,min=1,max=200"`
	Email        string    `json:"email" validate:"required,email"`
	Phone        string    `json:"phone" validate:"omitempty,e164"`
	ServiceID    uuid.UUID `json:"service_id" validate:"required"`
	StartTime    time.Time `json:"start_time" validate:"required"`
	Notes        string    `json:"notes" validate:"max=2000"`
}

// BookResponse confirms the booking and reports which confirmations
// went out.
type BookResponse struct {
	Success          bool      `json:"success"`
	BookingID        uuid.UUID `json:"booking_id"`
	ConfirmationSent bool      `json:"confirmation_sent"`
	SMSSent          bool      `json:"sms_sent"`
}

// ContactFormRequest is a public contact form submission. Email is
// optional so phone-only leads still land in the inbox; without one
// the auto-reply is skipped.
type ContactFormRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=200"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"omitempty,e164"`
	Message string `json:"message" validate:"required,min=1,max=5000"`
}

// ContactFormResponse acknowledges the submission.
type ContactFormResponse struct {
	Success          bool `json:"success"`
	NotificationSent bool `json:"notification_sent"`
}

func (h *PublicHandler) workspace(w http.ResponseWriter, r *http.Request) (workspace.Workspace, bool) {
	wsID, err := uuid.Parse(chi.URLParam(r, "workspaceID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid workspace ID")
		return workspace.Workspace{}, false
	}

	ws, err := h.workspaces.Get(r.Context(), wsID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "workspace not found")
			return workspace.Workspace{}, false
		}
		h.logger.Error("getting workspace", "error", err, "workspace_id", wsID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to get workspace")
		return workspace.Workspace{}, false
	}
	if !ws.IsActive {
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "workspace not found")
		return workspace.Workspace{}, false
	}
	return ws, true
}

func (h *PublicHandler) handleListServices(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	items, err := h.store.ListActiveServices(r.Context(), ws.ID)
	if err != nil {
		h.logger.Error("listing services", "error", err, "workspace_id", ws.ID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list services")
		return
	}

	httpserver.Respond(w, http.StatusOK, items)
}

func (h *PublicHandler) handleBook(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	var req BookRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	svc, err := h.store.GetService(r.Context(), req.ServiceID)
	if err != nil || svc.WorkspaceID != ws.ID || !svc.IsActive {
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			h.logger.Error("getting service", "error", err, "service_id", req.ServiceID)
			httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to get service")
			return
		}
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "service not found")
		return
	}

	cust, err := h.contacts.FindOrCreateByEmail(r.Context(), ws.ID, req.CustomerName, req.Email, req.Phone)
	if err != nil {
		h.logger.Error("resolving contact", "error", err, "workspace_id", ws.ID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to create booking")
		return
	}

	end := req.StartTime.Add(time.Duration(svc.DurationMin) * time.Minute)
	b, err := h.store.Create(r.Context(), CreateParams{
		WorkspaceID: ws.ID,
		ContactID:   cust.ID,
		ServiceID:   svc.ID,
		StartTime:   req.StartTime,
		EndTime:     end,
		Notes:       req.Notes,
	})
	if err != nil {
		h.logger.Error("creating booking", "error", err, "workspace_id", ws.ID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to create booking")
		return
	}

	res := h.notifier.Dispatch(r.Context(), dispatch.Event{
		Kind:          dispatch.KindBookingCreated,
		WorkspaceID:   ws.ID,
		WorkspaceName: ws.Name,
		Contact:       cust,
		Booking: &dispatch.BookingInfo{
			BookingID:   b.ID,
			ServiceName: svc.Name,
			StartTime:   b.StartTime,
			EndTime:     b.EndTime,
			Status:      string(b.Status),
			Notes:       b.Notes,
		},
	})

	httpserver.Respond(w, http.StatusCreated, BookResponse{
		Success:          true,
		BookingID:        b.ID,
		ConfirmationSent: res.Sent(dispatch.ChannelEmail),
		SMSSent:          res.Sent(dispatch.ChannelSMS),
	})
}

func (h *PublicHandler) handleContactForm(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	var req ContactFormRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	cust, err := h.contacts.FindOrCreateByEmail(r.Context(), ws.ID, req.Name, req.Email, req.Phone)
	if err != nil {
		h.logger.Error("resolving contact", "error", err, "workspace_id", ws.ID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to record submission")
		return
	}

	res := h.notifier.Dispatch(r.Context(), dispatch.Event{
		Kind:          dispatch.KindContactFormSubmitted,
		WorkspaceID:   ws.ID,
		WorkspaceName: ws.Name,
		Contact:       cust,
		Form:          &dispatch.FormSubmission{Message: req.Message},
	})

	httpserver.Respond(w, http.StatusCreated, ContactFormResponse{
		Success:          true,
		NotificationSent: res.Sent(dispatch.ChannelEmail),
	})
}
