package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/agroyield-backend/internal/domain/aggregates"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// StatusForError maps aggregate error codes to HTTP statuses.
func StatusForError(err error) int {
	switch domainagg.CodeOf(err) {
	case domainagg.CodeInvalid:
		return http.StatusBadRequest
	case domainagg.CodeNotFound:
		return http.StatusNotFound
	case domainagg.CodeConflict:
		return http.StatusConflict
	case domainagg.CodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes the error envelope. Internal failures get a generic
// message; the cause is attached to the gin context for the request log.
func RespondError(c *gin.Context, err error) {
	status := StatusForError(err)
	code := string(domainagg.CodeOf(err))
	msg := domainagg.MessageOf(err)
	switch {
	case code == "":
		code = string(domainagg.CodeInternal)
		fallthrough
	case status == http.StatusInternalServerError:
		msg = "internal error"
	case status == http.StatusServiceUnavailable:
		msg = "storage backend unavailable"
	}
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondInvalid reports a request that failed to bind.
func RespondInvalid(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    string(domainagg.CodeInvalid),
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
