package transport

import (
	gpvalidator "github.com/go-playground/validator/v10"

	"repair_audit_backend/internal/diagnostic/domain"
	"repair_audit_backend/platform/validator"
)

// DimensionCodeTag validates an answer code; the parameter names the
// dimension, e.g. `validate:"dimension_code=stage"`.
const DimensionCodeTag = "dimension_code"

// RegisterValidations adds the diagnostic rules to val.
func RegisterValidations(val *validator.Validator) error {
	return val.RegisterValidation(DimensionCodeTag, validDimensionCode)
}

func validDimensionCode(fl gpvalidator.FieldLevel) bool {
	raw := fl.Field().String()
	var ok bool
	switch domain.Dimension(fl.Param()) {
	case domain.DimensionStage:
		_, ok = domain.ParseStage(raw)
	case domain.DimensionArea:
		_, ok = domain.ParseArea(raw)
	case domain.DimensionControl:
		_, ok = domain.ParseControl(raw)
	case domain.DimensionFixation:
		_, ok = domain.ParseFixation(raw)
	}
	return ok
}
