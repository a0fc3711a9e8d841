package domain

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func entityValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate runs struct tag validation and reports failures as ErrBadRequest.
func Validate(value any) error {
	err := entityValidator().Struct(value)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			parts = append(parts, fe.Namespace()+" failed "+fe.Tag())
		}
		return BadRequest("invalid %s", strings.Join(parts, "; "))
	}
	return BadRequest("invalid entity: %v", err)
}

// ValidIdentifier rejects identifiers that cannot double as storage keys.
func ValidIdentifier(kind, id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return BadRequest("%s identifier is required", kind)
	case strings.ContainsAny(id, "/\\"):
		return BadRequest("%s identifier %q must not contain path separators", kind, id)
	case id == "." || id == ".." || strings.HasPrefix(id, "."):
		return BadRequest("%s identifier %q must not start with '.'", kind, id)
	}
	return nil
}
