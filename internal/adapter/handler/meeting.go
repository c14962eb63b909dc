package handler

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/meetscribe/capture-agent/errors"
	dto "github.com/meetscribe/capture-agent/internal/adapter/dto/meeting"
	"github.com/meetscribe/capture-agent/internal/usecase/meeting"
)

// Meeting exposes finished meetings: the raw record, the diarization job
// status, the reconciled speaker turns and speaker renames.
type Meeting struct {
	service *meeting.Service
	logger  *zap.Logger
}

// NewMeeting creates a meeting handler.
func NewMeeting(service *meeting.Service, logger *zap.Logger) *Meeting {
	return &Meeting{service: service, logger: logger}
}

// Get returns the raw meeting record.
func (h *Meeting) Get(c echo.Context) error {
	id, err := h.meetingID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	record, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, record)
}

// Status reports the transcription/diarization job state.
func (h *Meeting) Status(c echo.Context) error {
	id, err := h.meetingID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	status, err := h.service.Status(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, status)
}

// Turns returns the reconciled, speaker-attributed transcript.
func (h *Meeting) Turns(c echo.Context) error {
	id, err := h.meetingID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	result, err := h.service.ReconciledTurns(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, dto.FromResult(result))
}

// RenameSpeakers persists user-assigned speaker names and returns the stored
// map plus voice-profile learning events.
func (h *Meeting) RenameSpeakers(c echo.Context) error {
	id, err := h.meetingID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	var req dto.RenameSpeakersRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	stored, events, err := h.service.RenameSpeakers(c.Request().Context(), id, req.Names)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, dto.RenameSpeakersResponse{
		Names:          stored,
		LearningEvents: dto.FromLearningEvents(events),
	})
}

func (h *Meeting) meetingID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, errors.ErrInvalidArgument("meeting id must be a uuid")
	}
	return id, nil
}
