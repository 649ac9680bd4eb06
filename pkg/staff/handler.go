package staff

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/craftdesk/craftdesk/internal/httpserver"
	"github.com/craftdesk/craftdesk/pkg/dispatch"
	"github.com/craftdesk/craftdesk/pkg/workspace"
)

// Notifier fans a domain event out to the notification channels.
type Notifier interface {
	Dispatch(ctx context.Context, ev dispatch.Event) dispatch.Result
}

// Handler provides HTTP handlers for the staff management API.
type Handler struct {
	store      *Store
	workspaces *workspace.Store
	notifier   Notifier
	logger     *slog.Logger
}

// NewHandler creates a staff Handler.
func NewHandler(store *Store, workspaces *workspace.Store, notifier Notifier, logger *slog.Logger) *Handler {
	return &Handler{store: store, workspaces: workspaces, notifier: notifier, logger: logger}
}

// Routes returns a chi.Router with all staff routes mounted. Mounted
// under /staff.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/{workspaceID}", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/invite", h.handleInvite)
	})
	return r
}

// InviteRequest creates a staff account and emails its credentials.
type InviteRequest struct {
	Email       string   `json:"email" validate:"required,email"`
	Name        string   `json:"name" validate:"required,min=1,max=200"`
	Permissions []string `json:"permissions" validate:"dive,oneof=bookings inbox settings staff"`
}

// InviteResponse reports the new account and whether the invite email
// went out. The temporary password is never returned; it only exists
// in the email.
type InviteResponse struct {
	User        User   `json:"user"`
	InviteSent  bool   `json:"invite_sent"`
	InviteError string `json:"invite_error,omitempty"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	wsID, err := uuid.Parse(chi.URLParam(r, "workspaceID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid workspace ID")
		return
	}

	items, err := h.store.ListByWorkspace(r.Context(), wsID)
	if err != nil {
		h.logger.Error("listing staff", "error", err, "workspace_id", wsID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list staff")
		return
	}

	httpserver.Respond(w, http.StatusOK, items)
}

func (h *Handler) handleInvite(w http.ResponseWriter, r *http.Request) {
	wsID, err := uuid.Parse(chi.URLParam(r, "workspaceID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid workspace ID")
		return
	}

	var req InviteRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	ws, err := h.workspaces.Get(r.Context(), wsID)
	if err != nil {
		h.logger.Error("getting workspace", "error", err, "workspace_id", wsID)
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "workspace not found")
		return
	}

	tempPassword := generateTempPassword()
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hashing temporary password", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to create invite")
		return
	}

	u, err := h.store.Create(r.Context(), CreateParams{
		WorkspaceID:  wsID,
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		Permissions:  req.Permissions,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			httpserver.RespondError(w, http.StatusConflict, "email_taken", "a staff account with this email already exists")
			return
		}
		h.logger.Error("creating staff account", "error", err, "workspace_id", wsID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to create invite")
		return
	}

	// The account exists either way; the response tells the caller
	// whether the credentials actually reached the invitee.
	res := h.notifier.Dispatch(r.Context(), dispatch.Event{
		Kind:          dispatch.KindStaffInvited,
		WorkspaceID:   wsID,
		WorkspaceName: ws.Name,
		Invite: &dispatch.StaffInvite{
			Email:        req.Email,
			Name:         req.Name,
			TempPassword: tempPassword,
			Permissions:  req.Permissions,
		},
	})

	httpserver.Respond(w, http.StatusCreated, InviteResponse{
		User:        u,
		InviteSent:  res.Sent(dispatch.ChannelEmail),
		InviteError: res.Error(dispatch.ChannelEmail),
	})
}
