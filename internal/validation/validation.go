// Package validation collects field level input errors in the shape the API
// reports them: an ordered list of messages per field plus a summary line.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Errors is an ordered set of messages keyed by wire field name.
type Errors struct {
	order    []string
	messages map[string][]string
}

func New() *Errors {
	return &Errors{messages: map[string][]string{}}
}

func (e *Errors) Add(field, msg string) {
	if _, ok := e.messages[field]; !ok {
		e.order = append(e.order, field)
	}
	e.messages[field] = append(e.messages[field], msg)
}

func (e *Errors) Has(field string) bool {
	return len(e.messages[field]) > 0
}

// Len counts messages, not fields.
func (e *Errors) Len() int {
	n := 0
	for _, msgs := range e.messages {
		n += len(msgs)
	}
	return n
}

func (e *Errors) FieldNames() []string {
	return append([]string(nil), e.order...)
}

func (e *Errors) Fields() map[string][]string {
	out := make(map[string][]string, len(e.messages))
	for k, v := range e.messages {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Message is the first message, followed by a count of the others.
func (e *Errors) Message() string {
	if len(e.order) == 0 {
		return "The given data was invalid."
	}
	first := e.messages[e.order[0]][0]
	switch rest := e.Len() - 1; rest {
	case 0:
		return first
	case 1:
		return first + " (and 1 more error)"
	default:
		return fmt.Sprintf("%s (and %d more errors)", first, rest)
	}
}

func (e *Errors) Error() string { return e.Message() }

// Err returns e, or a nil error when nothing was added.
func (e *Errors) Err() error {
	if e == nil || len(e.order) == 0 {
		return nil
	}
	return e
}

// Single builds Errors holding one message.
func Single(field, msg string) *Errors {
	e := New()
	e.Add(field, msg)
	return e
}

// Label turns a wire name into the words used in messages:
// "reservedSince" becomes "reserved since".
func Label(field string) string {
	var b strings.Builder
	for i, r := range field {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
		case unicode.IsUpper(r):
			if i > 0 {
				b.WriteRune(' ')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validator runs go-playground struct tags and translates failures into
// Errors keyed by json field name.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Struct validates s. Failing tags come back as *Errors; anything else (an
// invalid argument) is returned unchanged.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := New()
	for _, fe := range verrs {
		out.Add(fe.Field(), translate(fe))
	}
	return out
}

func translate(fe validator.FieldError) string {
	label := Label(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", label)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", label)
	case "min":
		return fmt.Sprintf("The %s must be at least %s characters.", label, fe.Param())
	case "max":
		return fmt.Sprintf("The %s must not be greater than %s characters.", label, fe.Param())
	default:
		return fmt.Sprintf("The %s is invalid.", label)
	}
}
