package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	ccserrors "github.com/standardbeagle/ccsearch/internal/errors"
)

// Validator validates configuration and sets smart defaults
type Validator struct {
	structs *validator.Validate
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by the flag that sets them
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("flag"); name != "" {
			return name
		}
		return fld.Name
	})
	return &Validator{structs: v}
}

// ValidateAndSetDefaults validates configuration and applies smart defaults.
// Every problem is reported, as a MultiError of ConfigErrors.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	v.setSmartDefaults(cfg)

	var errs []error
	errs = append(errs, v.validateFields(cfg)...)

	if _, err := ParseDelimiter(cfg.Input.Delimiter); err != nil {
		errs = append(errs, err)
	}
	if err := v.validateInputFile(cfg.Input.Path); err != nil {
		errs = append(errs, err)
	}
	if err := v.validateGroupSpec(cfg.Problem.GroupSpec); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, v.validateConstraints(cfg)...)

	return ccserrors.NewMultiError(errs).ErrorOrNil()
}

// validateFields applies the struct tag rules
func (v *Validator) validateFields(cfg *Config) []error {
	err := v.structs.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []error{ccserrors.NewConfigError("configuration", "", err)}
	}

	out := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ccserrors.NewConfigError(fe.Field(), valueString(fe.Value()), errors.New(describeRule(fe))))
	}
	return out
}

func (v *Validator) validateInputFile(path string) error {
	if path == "" {
		// reported by the required rule
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return ccserrors.NewConfigError("input file", path, errors.New("does not exist"))
	}
	if info.IsDir() {
		return ccserrors.NewConfigError("input file", path, errors.New("is a directory"))
	}
	return nil
}

func (v *Validator) validateGroupSpec(spec []int) error {
	if len(spec) == 0 {
		return nil
	}
	total := 0
	for _, n := range spec {
		total += n
	}
	if total <= 0 {
		return ccserrors.NewConfigError("G", FormatGroupSpec(spec), errors.New("total collection size (sum of counts) must be > 0"))
	}
	return nil
}

func (v *Validator) validateConstraints(cfg *Config) []error {
	var errs []error
	for _, c := range cfg.Problem.Constraints {
		if c.Feature < 1 {
			errs = append(errs, ccserrors.NewConfigError("C", c.String(), errors.New("feature number must be >= 1")))
		}
		if c.Threshold < 0 {
			errs = append(errs, ccserrors.NewConfigError("C", c.String(), errors.New("count must be >= 0")))
		}
	}
	return errs
}

// setSmartDefaults fills values that have a sensible fallback instead of
// failing validation
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Output.Verbosity < 0 {
		cfg.Output.Verbosity = 0
	}
	if cfg.Output.PageSize == 0 {
		cfg.Output.PageSize = DefaultPageSize
	}
	if cfg.Input.Delimiter == "" {
		cfg.Input.Delimiter = DefaultDelimiter
	}
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "min":
		return "needs at least " + fe.Param() + " entries"
	case "oneof":
		return "must be one of " + strings.Join(strings.Fields(fe.Param()), ", ")
	}
	return fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
}

func valueString(v any) string {
	if v == nil {
		return ""
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Slice && rv.Len() == 0 {
		return ""
	}
	return fmt.Sprint(rv.Interface())
}
