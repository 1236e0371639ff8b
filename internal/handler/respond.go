package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// FieldError is one entry of a field-keyed validation error list, so a
// client can highlight the offending input.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// bindingErrors converts a gin binding failure into a field-keyed list.
// Non-validator errors (malformed JSON and the like) collapse to one entry.
func bindingErrors(err error) []FieldError {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		out := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, FieldError{Field: fe.Field(), Message: validationMessage(fe)})
		}
		return out
	}
	return []FieldError{{Field: "body", Message: "invalid request body"}}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

func respondValidation(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"errors": bindingErrors(err)})
}

// respondInternal logs full detail server-side and returns a generic body.
// Development mode may attach the detail for debugging; it is never the
// default.
func respondInternal(c *gin.Context, logger *zap.SugaredLogger, dev bool, msg string, err error) {
	logger.Errorw(msg, "error", err, "path", c.FullPath())
	body := gin.H{"error": msg}
	if dev && err != nil {
		body["detail"] = err.Error()
	}
	c.JSON(http.StatusInternalServerError, body)
}

func respondNotFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}
