package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"academy/internal/dbtime"
)

var registerOnce sync.Once

// registerValidators teaches gin's validator the request tags used in this package and makes
// field errors report JSON names.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic("handler: gin validator engine is not go-playground/validator")
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		must(v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			_, err := dbtime.ParseDate(fl.Field().String())
			return err == nil
		}))
		must(v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			_, err := dbtime.ParseTod(fl.Field().String())
			return err == nil
		}))
		must(v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
			d := fl.Field().Int()
			return d >= 0 && d <= 6
		}))
	})
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// bindJSON decodes and validates the body, turning failures into a 400 with a readable message.
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		msg := fieldMessage(verrs[0])
		return badRequest(strings.ToUpper(msg[:1]) + msg[1:])
	}
	return badRequest("Invalid request body")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "isodate":
		return fmt.Sprintf("Invalid %s format. Use YYYY-MM-DD", field)
	case "hhmm":
		return fmt.Sprintf("Invalid %s format. Use HH:MM", field)
	case "weekday":
		return field + " must be between 0 (Monday) and 6 (Sunday)"
	case "max":
		return field + " is too long"
	case "min":
		if fe.Kind() == reflect.Slice {
			return field + " must not be empty"
		}
		return field + " must be at least " + fe.Param()
	default:
		return field + " is invalid"
	}
}

func parseDate(s string) (dbtime.Date, error) {
	d, err := dbtime.ParseDate(s)
	if err != nil {
		return dbtime.Date{}, badRequest("Invalid date format. Use YYYY-MM-DD")
	}
	return d, nil
}

func parseOptionalDate(s *string) *dbtime.Date {
	if s == nil || *s == "" {
		return nil
	}
	d, err := dbtime.ParseDate(*s)
	if err != nil {
		return nil
	}
	return &d
}

func parseOptionalTod(s *string) *dbtime.Tod {
	if s == nil {
		return nil
	}
	t, err := dbtime.ParseTod(*s)
	if err != nil {
		return nil
	}
	return &t
}
