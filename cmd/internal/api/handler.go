// Package api is the HTTP surface for invitees: accepting an invitation and
// listing the invitations the caller holds.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"packs/cmd/identity"
	"packs/cmd/internal/invitation"
	"packs/cmd/internal/membership"
	"packs/cmd/internal/trust"
	"packs/cmd/security/token"

	"github.com/google/uuid"
)

// Invitations is the subset of invitation.Service the handlers call.
type Invitations interface {
	Accept(ctx context.Context, groupName string, member identity.User) (membership.Membership, error)
	InvitationsForUser(ctx context.Context, tier trust.Tier, user identity.User) ([]invitation.DisplayInvitation, error)
}

// Users resolves the authenticated caller.
type Users interface {
	UserByUUID(ctx context.Context, id uuid.UUID) (identity.User, error)
}

// Verifier turns a bearer token into a user uuid.
type Verifier interface {
	Verify(raw string) (uuid.UUID, error)
}

// Handler wires HTTP endpoints to the invitation service.
type Handler struct {
	log         *slog.Logger
	invitations Invitations
	users       Users
	verifier    Verifier
}

// NewHandler constructs a Handler. All dependencies except log are required.
func NewHandler(log *slog.Logger, invitations Invitations, users Users, verifier Verifier) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if invitations == nil || users == nil || verifier == nil {
		return nil, errors.New("api: missing dependency")
	}
	return &Handler{log: log, invitations: invitations, users: users, verifier: verifier}, nil
}

// Register wires routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/self/join/{group_name}", h.handleJoin)
	mux.HandleFunc("/self/invitations", h.handleInvitations)
}

// ---- handlers ----

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	group := strings.TrimSpace(r.PathValue("group_name"))
	if group == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "group name is required")
		return
	}

	m, err := h.invitations.Accept(r.Context(), group, user)
	if err != nil {
		h.writeInvitationError(w, "invitation.accept.fail", err)
		return
	}

	h.log.Info("invitation.accept.ok",
		"group", group,
		"group_id", m.GroupID,
		"user_uuid", m.UserUUID.String(),
	)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleInvitations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	out, err := h.invitations.InvitationsForUser(r.Context(), user.Trust, user)
	if err != nil {
		h.writeInvitationError(w, "invitation.list.fail", err)
		return
	}
	if out == nil {
		out = []invitation.DisplayInvitation{}
	}
	writeJSON(w, http.StatusOK, invitationsResponse{Invitations: out})
}

type invitationsResponse struct {
	Invitations []invitation.DisplayInvitation `json:"invitations"`
}

// ---- helpers ----

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (identity.User, bool) {
	raw, ok := token.BearerFromHeader(r.Header.Get("Authorization"))
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return identity.User{}, false
	}
	id, err := h.verifier.Verify(raw)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
		return identity.User{}, false
	}

	u, err := h.users.UserByUUID(r.Context(), id)
	if err != nil {
		if identity.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "user not found")
			return identity.User{}, false
		}
		h.log.Error("auth.user_lookup.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return identity.User{}, false
	}
	return u, true
}

func (h *Handler) writeInvitationError(w http.ResponseWriter, event string, err error) {
	switch {
	case invitation.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", "invitation not found")
	case invitation.IsConflict(err):
		writeError(w, http.StatusConflict, "conflict", "conflicting membership state")
	case invitation.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request")
	default:
		h.log.Error(event, "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}
