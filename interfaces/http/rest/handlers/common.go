package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/layout"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/persistence"
	pkgerrors "github.com/moatasim-KT/interactive-knowledge-system-sub006/pkg/errors"
)

// maxBodyBytes bounds request bodies; module sets can be large
const maxBodyBytes = 8 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("relationship", func(fl validator.FieldLevel) bool {
		return entities.RelationshipType(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("layout", func(fl validator.FieldLevel) bool {
		return layout.Type(fl.Field().String()).IsValid()
	})
	return v
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// responder holds the response helpers shared by the handlers
type responder struct {
	logger *zap.Logger
}

func (h responder) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h responder) respondError(w http.ResponseWriter, status int, errType pkgerrors.ErrorType, message string) {
	h.respondJSON(w, status, ErrorResponse{
		Error:   true,
		Type:    string(errType),
		Message: message,
		Code:    status,
	})
}

// respondAppError maps service errors onto status codes. Internal details are
// logged and replaced by fallback.
func (h responder) respondAppError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	errType := pkgerrors.TypeOf(err)
	switch errType {
	case pkgerrors.ErrorTypeValidation, pkgerrors.ErrorTypeBatchValidation:
		h.respondError(w, http.StatusBadRequest, errType, err.Error())
	case pkgerrors.ErrorTypeNotFound:
		h.respondError(w, http.StatusNotFound, errType, err.Error())
	case pkgerrors.ErrorTypeConflict:
		h.respondError(w, http.StatusConflict, errType, err.Error())
	default:
		h.logger.Error(fallback,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		if errors.Is(err, persistence.ErrCircuitOpen) {
			h.respondError(w, http.StatusServiceUnavailable, errType, "Storage temporarily unavailable")
			return
		}
		h.respondError(w, http.StatusInternalServerError, errType, fallback)
	}
}

// decodeAndValidate reads a JSON body into dst and checks its tags.
// An empty body is accepted when optional is set.
func (h responder) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		if !(optional && errors.Is(err, io.EOF)) {
			h.respondError(w, http.StatusBadRequest, pkgerrors.ErrorTypeValidation, "Invalid request body: "+err.Error())
			return false
		}
	}
	if err := validateStruct(dst); err != nil {
		h.respondError(w, http.StatusBadRequest, pkgerrors.ErrorTypeValidation, "Validation error: "+err.Error())
		return false
	}
	return true
}

// validateStruct validates a struct based on its validation tags
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}
	messages := make([]string, 0, len(fieldErrors))
	for _, e := range fieldErrors {
		messages = append(messages, formatFieldError(e))
	}
	return errors.New(strings.Join(messages, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := e.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "relationship":
		return fmt.Sprintf("%s is not a known relationship type", field)
	case "layout":
		return fmt.Sprintf("%s is not a known layout type", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
