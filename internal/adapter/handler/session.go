package handler

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/meetscribe/capture-agent/errors"
	dto "github.com/meetscribe/capture-agent/internal/adapter/dto/session"
	"github.com/meetscribe/capture-agent/internal/domain/entities"
	"github.com/meetscribe/capture-agent/internal/usecase/session"
)

// Session exposes the capture session lifecycle over HTTP.
type Session struct {
	manager *session.Manager
	onSaved func(meetingID uuid.UUID)
	logger  *zap.Logger
}

// NewSession creates a session handler. onSaved runs after a session reaches
// the saved state, typically to start watching the diarization job; nil
// disables the hook.
func NewSession(manager *session.Manager, onSaved func(meetingID uuid.UUID), logger *zap.Logger) *Session {
	return &Session{manager: manager, onSaved: onSaved, logger: logger}
}

// Start begins a new capture session.
func (h *Session) Start(c echo.Context) error {
	var req dto.StartSessionRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("user_id must be a uuid"))
	}

	opts := session.StartOptions{
		UserID:   userID,
		Title:    req.Title,
		Folder:   req.Folder,
		Language: req.Language,
	}
	if req.Continuation != nil {
		meetingID, err := uuid.Parse(req.Continuation.MeetingID)
		if err != nil {
			return HandleError(h.logger, c, errors.ErrInvalidArgument("continuation.meeting_id must be a uuid"))
		}
		opts.Continuation = &session.Continuation{
			MeetingID:    meetingID,
			UsageCounted: req.Continuation.UsageCounted,
			Transcript:   req.Continuation.Transcript,
		}
	}

	s, err := h.manager.Start(c.Request().Context(), opts)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, dto.FromEntity(s, ""))
}

// Status reports the session state.
func (h *Session) Status(c echo.Context) error {
	ctrl, err := h.controller(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, dto.FromEntity(ctrl.Status(), ctrl.LastError()))
}

// Pause suspends the audio track, ingestion and wake lock.
func (h *Session) Pause(c echo.Context) error {
	return h.transition(c, func(ctrl *session.Controller) error {
		return ctrl.Pause(c.Request().Context())
	})
}

// Resume reverses Pause.
func (h *Session) Resume(c echo.Context) error {
	return h.transition(c, func(ctrl *session.Controller) error {
		return ctrl.Resume(c.Request().Context())
	})
}

// Mute silences ingestion while the device keeps running.
func (h *Session) Mute(c echo.Context) error {
	return h.transition(c, func(ctrl *session.Controller) error {
		return ctrl.Mute(c.Request().Context())
	})
}

// Unmute reverses Mute.
func (h *Session) Unmute(c echo.Context) error {
	return h.transition(c, func(ctrl *session.Controller) error {
		return ctrl.Unmute(c.Request().Context())
	})
}

// Stop finalizes the session. Validation failures return 422 with the
// continue-or-force choice; retrying with force=true finalizes regardless.
func (h *Session) Stop(c echo.Context) error {
	var req dto.StopSessionRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid request body"))
	}
	return h.transition(c, func(ctrl *session.Controller) error {
		if err := ctrl.Stop(c.Request().Context(), entities.StopReasonUser, req.Force); err != nil {
			return err
		}
		if h.onSaved != nil {
			if s := ctrl.Status(); s != nil && s.Status == entities.StatusSaved {
				h.onSaved(s.MeetingID)
			}
		}
		return nil
	})
}

// Update changes the session title or folder mid-capture.
func (h *Session) Update(c echo.Context) error {
	var req dto.UpdateSessionRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}
	return h.transition(c, func(ctrl *session.Controller) error {
		return ctrl.UpdateDetails(req.Title, req.Folder)
	})
}

// Heartbeat is the foreground-transition hook: it re-verifies the wake lock
// and ingestion without altering the session status.
func (h *Session) Heartbeat(c echo.Context) error {
	return h.transition(c, func(ctrl *session.Controller) error {
		return ctrl.EnsureLive(c.Request().Context())
	})
}

func (h *Session) transition(c echo.Context, fn func(*session.Controller) error) error {
	ctrl, err := h.controller(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if err := fn(ctrl); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, dto.FromEntity(ctrl.Status(), ctrl.LastError()))
}

func (h *Session) controller(c echo.Context) (*session.Controller, error) {
	raw := c.Param("id")
	if raw == "current" || raw == "" {
		if ctrl := h.manager.Current(); ctrl != nil {
			return ctrl, nil
		}
		return nil, entities.ErrSessionNotFound
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, errors.ErrInvalidArgument("session id must be a uuid")
	}
	return h.manager.Get(id)
}
