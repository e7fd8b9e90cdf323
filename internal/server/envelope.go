package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"opldock/internal/faults"
	"opldock/internal/importer"
)

// envelope is the uniform API response body.
type envelope struct {
	Status     string          `json:"status"`
	State      string          `json:"state"`
	Message    string          `json:"message"`
	Details    map[string]any  `json:"details"`
	NextAction string          `json:"next_action"`
	Steps      []importer.Step `json:"steps"`
}

func respond(c *gin.Context, code int, env envelope) {
	if env.Details == nil {
		env.Details = map[string]any{}
	}
	if env.Steps == nil {
		env.Steps = []importer.Step{}
	}
	c.JSON(code, env)
}

func success(c *gin.Context, state, message string, details map[string]any, nextAction string, steps []importer.Step) {
	respond(c, http.StatusOK, envelope{
		Status:     "success",
		State:      state,
		Message:    message,
		Details:    details,
		NextAction: nextAction,
		Steps:      steps,
	})
}

func failure(c *gin.Context, code int, message string, details map[string]any, nextAction string, steps []importer.Step) {
	respond(c, code, envelope{
		Status:     "error",
		State:      importer.StateFailed,
		Message:    message,
		Details:    details,
		NextAction: nextAction,
		Steps:      steps,
	})
}

// statusFor maps the fault taxonomy onto HTTP codes. Caller mistakes and
// recoverable target problems are 400s, collisions 409, lookups 404, and
// anything unclassified is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, faults.ErrCollision):
		return http.StatusConflict
	case errors.Is(err, faults.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, faults.ErrValidation),
		errors.Is(err, faults.ErrAccess),
		errors.Is(err, faults.ErrCapacity),
		errors.Is(err, faults.ErrDeviceGone):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// nextActionFor suggests what the user should do about a failure.
func nextActionFor(err error) string {
	switch {
	case errors.Is(err, faults.ErrCollision):
		return "enable_overwrite_or_rename_file"
	case errors.Is(err, faults.ErrCapacity):
		return "free_up_space_then_retry"
	case errors.Is(err, faults.ErrDeviceGone):
		return "reconnect_target_and_retry"
	case errors.Is(err, faults.ErrAccess):
		return "fix_target_path_or_permissions"
	case errors.Is(err, faults.ErrNotFound):
		return "check_request_and_retry"
	case errors.Is(err, faults.ErrValidation):
		return "fix_request_and_retry"
	default:
		return "retry"
	}
}
