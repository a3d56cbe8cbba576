// Package validation wraps a singleton go-playground validator with english
// messages and the project's custom tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/momentlog/momentlog/domain"
)

// Username bounds. Usernames are lower-case letters, digits, '_' and '.'.
const (
	UsernameMin = 3
	UsernameMax = 20
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.]+$`)

// Service holds the validator and its translator.
type Service struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

var (
	once sync.Once
	svc  *Service
)

// Get returns the singleton, building it on first use.
func Get() *Service {
	once.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		registerShort(v, trans, "max", "{0} must be at most {1}")
		registerShort(v, trans, "min", "{0} must be at least {1}")

		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return ValidUsername(fl.Field().String())
		})
		_ = v.RegisterTranslation("username", trans,
			func(t ut.Translator) error {
				return t.Add("username", "{0} must be 3-20 characters of a-z, 0-9, '_' or '.'", true)
			},
			func(t ut.Translator, fe validator.FieldError) string {
				msg, _ := t.T("username", fe.Field())
				return msg
			},
		)

		svc = &Service{Validator: v, Translator: trans}
	})
	return svc
}

func registerShort(v *validator.Validate, trans ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error {
			return t.Add(tag, text, true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tag, fe.Field(), fe.Param())
			return msg
		},
	)
}

// ValidUsername reports whether s is an acceptable, already lower-cased
// username.
func ValidUsername(s string) bool {
	if len(s) < UsernameMin || len(s) > UsernameMax {
		return false
	}
	return usernamePattern.MatchString(s)
}

// Struct validates s. Failures wrap domain.ErrValidation and carry the
// first translated message.
func Struct(s any) error {
	err := Get().Validator.Struct(s)
	if err == nil {
		return nil
	}
	var inv *validator.InvalidValidationError
	if errors.As(err, &inv) {
		return fmt.Errorf("validator: %w", inv)
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, Message(err))
}

// Var validates a single value against tag.
func Var(field any, tag string) error {
	if err := Get().Validator.Var(field, tag); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, Message(err))
	}
	return nil
}

// Message returns the first translated failure in err.
func Message(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Translate(Get().Translator)
	}
	return err.Error()
}
