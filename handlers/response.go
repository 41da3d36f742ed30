package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/parser"
	"github.com/LovationAdmin/trackit-api/services"
	"github.com/LovationAdmin/trackit-api/utils"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var registerOnce sync.Once

// RegisterValidators teaches gin's validator to read decimals as numbers and
// to report fields by their JSON names.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.InexactFloat64()
			}
			return nil
		}, decimal.Decimal{})
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}

// ============================================================================
// ENVELOPE HELPERS
// ============================================================================

func success(c *gin.Context, status int, data any) {
	c.JSON(status, models.Envelope{Success: true, Data: data})
}

func ok(c *gin.Context, data any) {
	success(c, http.StatusOK, data)
}

func created(c *gin.Context, data any) {
	success(c, http.StatusCreated, data)
}

func message(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, models.Envelope{Success: true, Message: msg})
}

func paginated(c *gin.Context, data any, p *models.Pagination) {
	c.JSON(http.StatusOK, models.Envelope{Success: true, Data: data, Pagination: p})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, models.Envelope{Success: false, Message: msg})
}

func validationFailed(c *gin.Context, fields []models.FieldError) {
	c.AbortWithStatusJSON(http.StatusBadRequest, models.Envelope{
		Success: false,
		Message: "Validation failed",
		Errors:  fields,
	})
}

// ============================================================================
// ERRORS
// ============================================================================

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "hexcolor":
		return "must be a hex color"
	case "numeric":
		return "must contain only digits"
	case "alpha":
		return "must contain only letters"
	}
	return "is invalid"
}

// bindJSON decodes and validates the body, answering 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]models.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, models.FieldError{Field: fe.Field(), Message: describeTag(fe)})
		}
		validationFailed(c, fields)
		return false
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		validationFailed(c, []models.FieldError{{Field: typeErr.Field, Message: "has the wrong type"}})
		return false
	}
	fail(c, http.StatusBadRequest, "Invalid request body")
	return false
}

// serviceError maps domain errors to HTTP answers. Unknown errors are logged
// and reported as 500.
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, "Resource not found")
	case errors.Is(err, services.ErrCategoryNotFound):
		fail(c, http.StatusBadRequest, "Category not found")
	case errors.Is(err, services.ErrCategoryExists):
		fail(c, http.StatusBadRequest, "Category already exists")
	case errors.Is(err, services.ErrCategoryInUse):
		fail(c, http.StatusConflict, "Category still has expenses")
	case errors.Is(err, services.ErrEmailTaken):
		fail(c, http.StatusBadRequest, "User with this email already exists")
	case errors.Is(err, services.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, services.ErrTOTPRequired):
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.Envelope{
			Success: false,
			Message: "2FA code required",
			Data:    gin.H{"requires_2fa": true},
		})
	case errors.Is(err, services.ErrInvalidTOTP):
		fail(c, http.StatusUnauthorized, "Invalid 2FA code")
	case errors.Is(err, services.ErrTOTPNotSetUp):
		fail(c, http.StatusBadRequest, "2FA is not set up")
	case errors.Is(err, parser.ErrNoAmount):
		fail(c, http.StatusBadRequest, "Could not detect expense amount")
	default:
		utils.SafeError("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		fail(c, http.StatusInternalServerError, "Internal server error")
	}
}
