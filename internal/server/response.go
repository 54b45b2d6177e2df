package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError is the body of every error response.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// Error codes returned in APIError.Code.
const (
	CodeMissingKey   = "missing_api_key"
	CodeBadRequest   = "bad_request"
	CodeNoParts      = "no_usable_files"
	CodeBadResponse  = "bad_model_response"
	CodeUpstream     = "upstream_error"
	CodeNotFound     = "not_found"
	CodeExportFailed = "export_failed"
	CodeInternal     = "internal"
)

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
