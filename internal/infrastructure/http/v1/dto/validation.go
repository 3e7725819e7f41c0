package dto

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"bakehouse/internal/core/types"
)

var registerOnce sync.Once

// RegisterValidators installs custom tags on gin's validator engine.
// Field names in errors follow the json (or form) tag.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		mustRegister(v, "isodate", validateISODate)
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return fld.Name
		})
	})
}

// mustRegister panics if the tag cannot be registered.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %q validator: %v", tag, err))
	}
}

// validateISODate accepts YYYY-MM-DD calendar dates.
func validateISODate(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != len(types.DateLayout) {
		return false
	}
	_, err := types.ParseDate(s)
	return err == nil
}
