package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// validator caches struct metadata on first use, so the json names are
// registered before any request is bound.
func init() {
	jsonFieldNames()
}

// jsonFieldNames makes validator report "applicantPhone" instead of
// "ApplicantPhone", so error fields line up with the request body.
func jsonFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return sf.Name
		}
		return name
	})
}

func BindJSON(ctx *gin.Context, out interface{}) bool {
	if err := ctx.ShouldBindJSON(out); err != nil {
		RespondBadRequest(ctx, "Invalid request body", bindErrorDetails(err))
		return false
	}
	return true
}

func bindErrorDetails(err error) gin.H {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		fields := make([]FieldError, 0, len(vErrs))
		for _, fe := range vErrs {
			fields = append(fields, FieldError{
				Field:   fieldPath(fe),
				Rule:    fe.Tag(),
				Param:   fe.Param(),
				Message: fieldMessage(fe.Field(), fe.Tag(), fe.Param(), fe.Kind()),
			})
		}
		return gin.H{"fields": fields}
	}

	if errors.Is(err, io.EOF) {
		return gin.H{"json": "empty_body"}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return gin.H{"json": "invalid_json_syntax", "offset": syntaxErr.Offset}
	}

	// encoding/json already reports the path with body keys
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := strings.TrimSpace(typeErr.Field)
		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{{
				Field:   field,
				Rule:    "type",
				Param:   typeErr.Type.String(),
				Message: "must be " + kindLabel(typeErr.Type.Kind()),
			}},
		}
	}

	return gin.H{"reason": err.Error()}
}

// fieldPath drops the request struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok && rest != "" {
		return rest
	}
	return fe.Field()
}

func kindLabel(k reflect.Kind) string {
	switch k {
	case reflect.String:
		return "text"
	case reflect.Bool:
		return "true or false"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "a whole number"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.Slice, reflect.Array:
		return "a list"
	case reflect.Struct, reflect.Map:
		return "an object"
	default:
		return "of type " + k.String()
	}
}

// fieldMessage phrases a rule for the job board's forms. Text limits are in
// characters, number limits in units.
func fieldMessage(field, rule, param string, kind reflect.Kind) string {
	switch rule {
	case "min", "max":
		if kind == reflect.String {
			if rule == "min" {
				return "must be at least " + param + " characters"
			}
			return "must be at most " + param + " characters"
		}
	case "gte":
		if strings.HasPrefix(field, "salary") {
			return "must be a salary of at least " + param
		}
		if field == "positionsAvailable" {
			return "must offer at least " + param + " position(s)"
		}
	case "uuid":
		switch field {
		case "jobId":
			return "must reference an existing job posting"
		case "jobCategoryId":
			return "must reference an existing category"
		}
	}
	return validationMessage(rule, param)
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	case "gte":
		return "must be greater than or equal to " + param
	case "uuid":
		return "must be a valid id"
	case "datetime":
		// layouts are Go reference dates; clients know them as YYYY-MM-DD
		if param == "2006-01-02" {
			return "must be a date formatted as YYYY-MM-DD"
		}
		return "must be a date formatted as " + param
	default:
		if param != "" {
			return "failed " + rule + " validation (" + param + ")"
		}
		return "failed " + rule + " validation"
	}
}
