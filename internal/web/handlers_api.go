package web

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/emiliopalmerini/splitr/internal/domain"
	"github.com/emiliopalmerini/splitr/internal/experiment"
	"github.com/emiliopalmerini/splitr/internal/logging"
)

type allocateRequest struct {
	Experiment string `json:"experiment"`
	UserID     string `json:"user_id,omitempty"`
}

type convertRequest struct {
	Experiment string   `json:"experiment"`
	UserID     string   `json:"user_id,omitempty"`
	Value      *float64 `json:"value,omitempty"`
}

type assignRequest struct {
	Experiment string `json:"experiment"`
	UserID     string `json:"user_id"`
	Variant    string `json:"variant"`
}

// sessionID returns the session cookie value. When create is set and the
// request carries none, a new session is started and its cookie is set on
// the response.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request, create bool) string {
	if c, err := r.Cookie(s.cfg.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if !create {
		return ""
	}

	sid := uuid.NewString()
	cookie := &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if s.cfg.SessionTTL > 0 {
		cookie.MaxAge = int(s.cfg.SessionTTL.Seconds())
	}
	http.SetCookie(w, cookie)
	return sid
}

// Allocate and convert face end users: a bad request still gets the control
// experience and is only logged.
func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if err := decodeEndUserRequest(r, &req, &req.Experiment); err != nil {
		logging.FromContext(r.Context()).WarnContext(r.Context(), "invalid allocate request", "error", err)
		writeJSON(w, http.StatusOK, experiment.Allocation{
			VariantID: domain.ControlVariantID,
			Reason:    experiment.ReasonInvalidRequest,
		})
		return
	}

	ctx := r.Context()
	sid := ""
	if req.UserID == "" {
		sid = s.sessionID(w, r, true)
	}
	subject := s.resolver.Resolve(ctx, req.UserID, sid)

	writeJSON(w, http.StatusOK, s.engine.Allocate(ctx, req.Experiment, subject))
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := decodeEndUserRequest(r, &req, &req.Experiment); err != nil {
		logging.FromContext(r.Context()).WarnContext(r.Context(), "invalid convert request", "error", err)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	ctx := r.Context()
	sid := ""
	if req.UserID == "" {
		sid = s.sessionID(w, r, false)
	}
	subject := s.resolver.Resolve(ctx, req.UserID, sid)

	// End users never see store failures.
	if err := s.engine.RecordConversion(ctx, req.Experiment, subject, req.Value); err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "conversion not recorded",
			"experiment", req.Experiment, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeEndUserRequest(r *http.Request, dst any, experimentName *string) error {
	if err := decodeJSON(r, dst); err != nil {
		return err
	}
	if *experimentName == "" {
		return errors.Wrap(domain.ErrValidation, "experiment is required")
	}
	return nil
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Experiment == "" || req.UserID == "" || req.Variant == "" {
		writeError(w, r, errors.Wrap(domain.ErrValidation, "experiment, user_id and variant are required"))
		return
	}

	variant, err := s.engine.Assign(r.Context(), req.Experiment, domain.UserSubject(req.UserID), req.Variant)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"variant": variant})
}
