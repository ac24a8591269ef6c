package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/erp/bomengine/internal/infrastructure/logger"
	"github.com/erp/bomengine/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator makes gin's validator report fields by their json (or
// query form) name, so a bad "batch_number" is reported as batch_number
// rather than BatchNumber.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form", "uri"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return ""
	})
}

// HandleValidationError writes a 400 listing every rejected field.
func HandleValidationError(c *gin.Context, err error) {
	requestID := logger.RequestID(c.Request.Context())
	if requestID == "" {
		requestID = c.GetHeader(logger.RequestIDHeader)
	}
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, requestID))
}

// FormatValidationErrors turns binding errors into field details. Anything
// that is not a validator error (bad JSON, an unparsable quantity) is
// reported on "body".
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail
	var fieldErrs validator.ValidationErrors
	switch {
	case errors.As(err, &fieldErrs):
		for _, fe := range fieldErrs {
			details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: getValidationMessage(fe)})
		}
	case err != nil:
		details = append(details, dto.ValidationDetail{Field: "body", Message: err.Error()})
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

var bounds = map[string]string{
	"min": "at least",
	"max": "at most",
	"gte": "greater than or equal to",
	"lte": "less than or equal to",
	"gt":  "greater than",
	"lt":  "less than",
}

func getValidationMessage(fe validator.FieldError) string {
	if word, ok := bounds[fe.Tag()]; ok {
		if (fe.Tag() == "min" || fe.Tag() == "max") && fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be %s %s characters", word, fe.Param())
		}
		if (fe.Tag() == "min" || fe.Tag() == "max") && (fe.Kind() == reflect.Slice || fe.Kind() == reflect.Array) {
			return fmt.Sprintf("Must contain %s %s items", word, fe.Param())
		}
		return fmt.Sprintf("Must be %s %s", word, fe.Param())
	}
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "len":
		return "Must be exactly " + fe.Param() + " characters"
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "uuid":
		return "Invalid UUID format"
	default:
		return "Invalid value"
	}
}
