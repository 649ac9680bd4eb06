package conversation

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
)

// Replier delivers a staff reply to a contact over the requested
// channel and returns the provider's message ID.
type Replier interface {
	Reply(ctx context.Context, workspaceID uuid.UUID, ch Channel, to contact.Contact, body string) (providerMessageID string, err error)
}

// Handler provides HTTP handlers for the inbox API.
type Handler struct {
	store    *Store
	contacts *contact.Store
	replier  Replier
	logger   *slog.Logger
}

// NewHandler creates a conversation Handler.
func NewHandler(store *Store, contacts *contact.Store, replier Replier, logger *slog.Logger) *Handler {
	return &Handler{store: store, contacts: contacts, replier: replier, logger: logger}
}

// Routes returns a chi.Router with all inbox routes mounted. Mounted
// under /inbox.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/conversations", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Route("/{conversationID}", func(r chi.Router) {
			r.Get("/messages", h.handleListMessages)
			r.Post("/reply", h.handleReply)
			r.Post("/read", h.handleMarkRead)
		})
	})
	return r
}

// ReplyRequest is a staff-authored outbound message.
type ReplyRequest struct {
	Channel Channel `json:"channel" validate:"required,oneof=email sms"`
	Content string  `json:"content" validate:"required,min=1,max=10000"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	wsID, err := uuid.Parse(r.URL.Query().Get("workspace_id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid or missing workspace_id")
		return
	}

	params, err := httpserver.ParseOffsetParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	items, total, err := h.store.ListByWorkspace(r.Context(), wsID, params.PageSize, params.Offset)
	if err != nil {
		h.logger.Error("listing conversations", "error", err, "workspace_id", wsID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list conversations")
		return
	}

	httpserver.Respond(w, http.StatusOK, httpserver.NewOffsetPage(items, params, total))
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	convID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid conversation ID")
		return
	}

	params, err := httpserver.ParseOffsetParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	items, total, err := h.store.ListMessages(r.Context(), convID, params.PageSize, params.Offset)
	if err != nil {
		h.logger.Error("listing messages", "error", err, "conversation_id", convID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list messages")
		return
	}

	httpserver.Respond(w, http.StatusOK, httpserver.NewOffsetPage(items, params, total))
}

func (h *Handler) handleReply(w http.ResponseWriter, r *http.Request) {
	convID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid conversation ID")
		return
	}

	var req ReplyRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	conv, err := h.store.Get(r.Context(), convID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "conversation not found")
			return
		}
		h.logger.Error("getting conversation", "error", err, "conversation_id", convID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to get conversation")
		return
	}

	to, err := h.contacts.Get(r.Context(), conv.ContactID)
	if err != nil {
		h.logger.Error("getting contact for reply", "error", err, "contact_id", conv.ContactID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to get contact")
		return
	}

	if req.Channel == ChannelSMS && to.Phone == "" {
		httpserver.RespondError(w, http.StatusConflict, "no_phone", "contact has no phone number")
		return
	}

	providerID, err := h.replier.Reply(r.Context(), conv.WorkspaceID, req.Channel, to, req.Content)
	if err != nil {
		h.logger.Error("sending reply", "error", err, "conversation_id", convID, "channel", req.Channel)
		httpserver.RespondError(w, http.StatusBadGateway, "send_failed", err.Error())
		return
	}

	msg, err := h.store.AppendMessage(r.Context(), AppendParams{
		ConversationID:    convID,
		Channel:           req.Channel,
		Content:           req.Content,
		IsRead:            true, // staff-authored, nothing for staff to catch up on
		ProviderMessageID: providerID,
	})
	if err != nil {
		// The reply already went out; surface the logging failure rather
		// than pretending the send failed.
		h.logger.Error("recording sent reply", "error", err, "conversation_id", convID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "reply sent but could not be recorded")
		return
	}

	httpserver.Respond(w, http.StatusCreated, msg)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	convID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid conversation ID")
		return
	}

	if err := h.store.MarkRead(r.Context(), convID); err != nil {
		h.logger.Error("marking conversation read", "error", err, "conversation_id", convID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to mark conversation read")
		return
	}

	httpserver.Respond(w, http.StatusNoContent, nil)
}
