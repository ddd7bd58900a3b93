// internal/interfaces/http/response/response.go
package response

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/your-org/storefront-api/internal/pkg/apperrors"
)

// FieldError describes one rejected request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Success writes the standard success envelope
func Success(c *gin.Context, status int, message string, data any) {
	body := gin.H{"message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

// Error maps err to its HTTP status and writes {"error", "code", "details"}.
// Messages of uncoded errors never reach the client.
func Error(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	meta := apperrors.MetadataFor(code)

	message := meta.PublicMessage
	body := gin.H{"code": code}
	if typed := apperrors.As(err); typed != nil {
		message = typed.Message()
		if meta.DetailsAllowed && typed.Details() != nil {
			body["details"] = typed.Details()
		}
	}
	body["error"] = message

	_ = c.Error(err)
	c.AbortWithStatusJSON(meta.HTTPStatus, body)
}

// BindError reports a request that failed binding or validation
func BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
		Error(c, apperrors.New(apperrors.CodeValidation, "request validation failed").WithDetails(details))
		return
	}
	Error(c, apperrors.Wrap(apperrors.CodeValidation, err, "invalid request body"))
}

// Abort writes a bare coded error, used by middleware
func Abort(c *gin.Context, code apperrors.Code) {
	meta := apperrors.MetadataFor(code)
	c.AbortWithStatusJSON(meta.HTTPStatus, gin.H{"error": meta.PublicMessage, "code": code})
}

// SetupValidator reports field errors by their JSON names and registers the
// custom tags used by request types
func SetupValidator(custom map[string]validator.Func) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		if fe.Kind() == reflect.String {
			return "Must be at least " + fe.Param() + " characters"
		}
		return "Must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "Must be at most " + fe.Param() + " characters"
		}
		return "Must be at most " + fe.Param()
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "promocode":
		return "Must be 3-50 letters, digits, dashes or underscores"
	default:
		return "Invalid value"
	}
}
