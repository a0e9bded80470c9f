package engram

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var idPattern = regexp.MustCompile(`^ENG-[A-Za-z0-9-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("engram_id", func(fl validator.FieldLevel) bool {
		return idPattern.MatchString(fl.Field().String())
	})
	return v
}

// UnmarshalYAML decodes a stored record. A record without derivation_count
// counts as derived once; an explicit 0 is kept.
func (e *Engram) UnmarshalYAML(value *yaml.Node) error {
	type plain Engram
	rec := plain{DerivationCount: 1}
	if err := value.Decode(&rec); err != nil {
		return err
	}
	*e = Engram(rec)
	return nil
}

// Normalize fills the defaults a stored record may omit.
func (e *Engram) Normalize() {
	if e.Visibility == "" {
		e.Visibility = VisibilityPrivate
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
}

// Validate checks an engram against the record schema.
func (e *Engram) Validate() error {
	return structError(validate.Struct(e))
}

// Validate checks a pack manifest.
func (m *Manifest) Validate() error {
	return structError(validate.Struct(m))
}

// structError flattens validator errors into a single readable error.
func structError(err error) error {
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %s (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(msgs, "; "))
}
