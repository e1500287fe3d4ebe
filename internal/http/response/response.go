package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/stepwise-backend/internal/pkg/apierr"
)

type APIError struct {
	Kind      string `json:"kind"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message"`
	Retriable bool   `json:"retriable"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError writes err using its apierr kind for the status and envelope.
// Errors without a kind are reported as internal without leaking their text.
func RespondError(c *gin.Context, err error) {
	kind := apierr.KindOf(err)
	if kind == "" {
		kind = apierr.KindInternal
	}
	c.AbortWithStatusJSON(apierr.HTTPStatus(err), ErrorEnvelope{
		Error: APIError{
			Kind:      string(kind),
			Code:      string(kind),
			Message:   apierr.PublicMessage(err),
			Retriable: apierr.Retriable(err),
		},
	})
}

// RespondInvalid rejects a request body or parameter that failed to bind.
func RespondInvalid(c *gin.Context, code string, err error) {
	msg := "invalid request"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorEnvelope{
		Error: APIError{
			Kind:    string(apierr.KindValidation),
			Code:    code,
			Message: msg,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
