package booking

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/craftdesk/craftdesk/internal/httpserver"
	"github.com/craftdesk/craftdesk/pkg/contact"
	"github.com/craftdesk/craftdesk/pkg/dispatch"
	"github.com/craftdesk/craftdesk/pkg/workspace"
)

// Notifier fans a domain event out to the notification channels.
type Notifier interface {
	Dispatch(ctx context.Context, ev dispatch.Event) dispatch.Result
}

// Handler provides HTTP handlers for the staff-facing bookings API.
type Handler struct {
	store      *Store
	workspaces *workspace.Store
	notifier   Notifier
	logger     *slog.Logger
}

// NewHandler creates a booking Handler.
func NewHandler(store *Store, workspaces *workspace.Store, notifier Notifier, logger *slog.Logger) *Handler {
	return &Handler{store: store, workspaces: workspaces, notifier: notifier, logger: logger}
}

// Routes returns the staff-facing booking routes. Mounted under
// /bookings.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/workspace/{workspaceID}", h.handleList)
	r.Get("/{bookingID}", h.handleGet)
	r.Patch("/{bookingID}/status", h.handleUpdateStatus)
	return r
}

// UpdateStatusRequest changes a booking's lifecycle state.
// SendNotification controls whether the customer hears about it.
type UpdateStatusRequest struct {
	Status           Status `json:"status" validate:"required,oneof=pending confirmed cancelled completed no_show"`
	SendNotification bool   `json:"send_notification"`
}

// UpdateStatusResponse reports the new state plus what, if anything,
// was sent to the customer.
type UpdateStatusResponse struct {
	Booking           Detail `json:"booking"`
	NotificationSent  bool   `json:"notification_sent"`
	NotificationError string `json:"notification_error,omitempty"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid booking ID")
		return
	}

	d, err := h.store.GetDetail(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "booking not found")
			return
		}
		h.logger.Error("getting booking", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to get booking")
		return
	}

	httpserver.Respond(w, http.StatusOK, d)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	wsID, err := uuid.Parse(chi.URLParam(r, "workspaceID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid workspace ID")
		return
	}

	params, err := httpserver.ParseOffsetParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	status := Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "unknown status filter")
		return
	}

	items, total, err := h.store.ListByWorkspace(r.Context(), wsID, status, params.PageSize, params.Offset)
	if err != nil {
		h.logger.Error("listing bookings", "error", err, "workspace_id", wsID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list bookings")
		return
	}

	httpserver.Respond(w, http.StatusOK, httpserver.NewOffsetPage(items, params, total))
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid booking ID")
		return
	}

	var req UpdateStatusRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	prev, err := h.store.GetDetail(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "booking not found")
			return
		}
		h.logger.Error("getting booking", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to get booking")
		return
	}

	d, err := h.store.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.logger.Error("updating booking status", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to update booking")
		return
	}

	ws, err := h.workspaces.Get(r.Context(), d.WorkspaceID)
	if err != nil {
		h.logger.Error("getting workspace", "error", err, "workspace_id", d.WorkspaceID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to get workspace")
		return
	}

	res := h.notifier.Dispatch(r.Context(), dispatch.Event{
		Kind:             dispatch.KindBookingStatusChanged,
		WorkspaceID:      d.WorkspaceID,
		WorkspaceName:    ws.Name,
		Contact:          contactFromDetail(d),
		SendNotification: req.SendNotification,
		Booking:          bookingInfo(d, string(prev.Status)),
	})

	httpserver.Respond(w, http.StatusOK, UpdateStatusResponse{
		Booking:           d,
		NotificationSent:  res.Sent(dispatch.ChannelEmail),
		NotificationError: res.Error(dispatch.ChannelEmail),
	})
}

func contactFromDetail(d Detail) contact.Contact {
	return contact.Contact{
		ID:          d.ContactID,
		WorkspaceID: d.WorkspaceID,
		Name:        d.ContactName,
		Email:       d.ContactEmail,
		Phone:       d.ContactPhone,
	}
}

func bookingInfo(d Detail, previousStatus string) *dispatch.BookingInfo {
	return &dispatch.BookingInfo{
		BookingID:      d.ID,
		ServiceName:    d.ServiceName,
		StartTime:      d.StartTime,
		EndTime:        d.EndTime,
		Status:         string(d.Status),
		PreviousStatus: previousStatus,
		Notes:          d.Notes,
	}
}
