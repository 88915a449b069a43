package resources

import (
	stderrors "errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"preflight/internal/bootstrap"
	"preflight/pkg/errors"
)

// validate is shared by all variants; validator instances cache struct
// metadata, so one per process is the intended usage.
var validate = validator.New()

// validateConfig checks cfg against its validate tags and records every
// invalid field as a distinct status error, so a caller sees the complete
// picture in one pass instead of the first problem found. It returns a
// single configuration error summarizing the failures, or nil.
func validateConfig(status *bootstrap.Status, cfg any) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !stderrors.As(err, &fieldErrors) {
		// Validator could not inspect the value at all.
		invalid := errors.NewConfigurationf("configuration is not validatable: %v", err)
		status.AddError(invalid.Error())
		return invalid
	}

	for _, fe := range fieldErrors {
		msg := describeFieldError(fe)
		status.AddError(msg)
	}
	return errors.NewConfigurationf("%d invalid configuration field(s)", len(fieldErrors))
}

// describeFieldError renders one field violation in a stable, readable form.
func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("configuration field %s is required", fe.Namespace())
	case "min":
		return fmt.Sprintf("configuration field %s must be at least %s", fe.Namespace(), fe.Param())
	case "max":
		return fmt.Sprintf("configuration field %s must be at most %s", fe.Namespace(), fe.Param())
	case "url":
		return fmt.Sprintf("configuration field %s must be a valid URL", fe.Namespace())
	case "hostname_port":
		return fmt.Sprintf("configuration field %s must be a host:port pair", fe.Namespace())
	default:
		return fmt.Sprintf("configuration field %s failed %q validation", fe.Namespace(), fe.Tag())
	}
}
