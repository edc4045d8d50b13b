package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate *validator.Validate

	panRegex     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]{1}$`)
	aadhaarRegex = regexp.MustCompile(`^[0-9]{12}$`)
	mobileRegex  = regexp.MustCompile(`^[0-9]{10}$`)
	pincodeRegex = regexp.MustCompile(`^[1-9][0-9]{5}$`)
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

const isoDateLayout = "2006-01-02"

func init() {
	validate = validator.New()

	// Report fields by their JSON names so errors line up with request payloads.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	_ = validate.RegisterValidation("aadhaar", func(fl validator.FieldLevel) bool {
		return ValidateAadhaar(fl.Field().String())
	})
	_ = validate.RegisterValidation("pan", func(fl validator.FieldLevel) bool {
		return ValidatePAN(fl.Field().String())
	})
	_ = validate.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return ValidateMobile(fl.Field().String())
	})
	_ = validate.RegisterValidation("pincode", func(fl validator.FieldLevel) bool {
		return pincodeRegex.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(isoDateLayout, fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.IsNegative()
	})
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func ValidatePAN(pan string) bool {
	return panRegex.MatchString(pan)
}

func ValidateAadhaar(aadhaar string) bool {
	return aadhaarRegex.MatchString(aadhaar)
}

func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidateMobile accepts Indian 10-digit mobile numbers without country code.
func ValidateMobile(phone string) bool {
	return mobileRegex.MatchString(phone)
}

// IsAdult reports whether someone born on dob is at least 18 at asOf.
func IsAdult(dob, asOf time.Time) bool {
	return !dob.AddDate(18, 0, 0).After(asOf)
}

func SanitizeString(input string) string {
	return strings.TrimSpace(input)
}

// FormatValidationError maps validator errors to field path -> message. The
// path drops the root struct name, so a nested executor field is reported as
// "primaryExecutor.aadhaar".
func FormatValidationError(err error) map[string]string {
	errs := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errs
	}

	for _, fieldError := range validationErrors {
		field := fieldPath(fieldError.Namespace())
		label := fieldError.Field()
		switch fieldError.Tag() {
		case "required", "required_if":
			errs[field] = fmt.Sprintf("%s is required", label)
		case "email":
			errs[field] = "Invalid email format"
		case "min":
			errs[field] = fmt.Sprintf("%s must be at least %s characters", label, fieldError.Param())
		case "max":
			errs[field] = fmt.Sprintf("%s must be at most %s characters", label, fieldError.Param())
		case "len":
			errs[field] = fmt.Sprintf("%s must be exactly %s characters", label, fieldError.Param())
		case "oneof":
			errs[field] = fmt.Sprintf("%s must be one of: %s", label, fieldError.Param())
		case "aadhaar":
			errs[field] = "Aadhaar number must be exactly 12 digits"
		case "pan":
			errs[field] = "Invalid PAN format"
		case "mobile":
			errs[field] = "Mobile number must be exactly 10 digits"
		case "pincode":
			errs[field] = "Pincode must be 6 digits"
		case "isodate":
			errs[field] = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", label)
		case "amount":
			errs[field] = fmt.Sprintf("%s must be a non-negative number", label)
		case "gt", "gte", "lte":
			errs[field] = fmt.Sprintf("%s is out of range", label)
		default:
			errs[field] = fmt.Sprintf("%s is invalid", label)
		}
	}

	return errs
}

func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
