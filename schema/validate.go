package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/qiuethan/RT1M-sub001/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	mustRegister(v, "assettype", oneOf(models.AssetTypes))
	mustRegister(v, "debttype", oneOf(models.DebtTypes))
	mustRegister(v, "goaltype", oneOf(models.GoalTypes))
	mustRegister(v, "goalstatus", oneOf(models.GoalStatuses))
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("schema: register %s: %v", tag, err))
	}
}

// oneOf matches the field exactly against a fixed enumeration. Nothing is
// lower-cased or trimmed.
func oneOf[T ~string](values []T) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		for _, v := range values {
			if string(v) == s {
				return true
			}
		}
		return false
	}
}

// Struct validates any tagged value and converts failures into a
// KindEntityValidation error naming each offending field.
func Struct(op string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.NewError(models.KindEntityValidation, op, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return models.Errorf(models.KindEntityValidation, op, "%s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), strings.SplitN(fe.Namespace(), ".", 2)[0]+".")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s exceeds maximum of %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s is shorter than %s", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a YYYY-MM-DD date", field)
	case "assettype", "debttype", "goaltype", "goalstatus":
		return fmt.Sprintf("%s has unrecognized value %q", field, fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func ValidateAsset(a *models.Asset) error { return Struct("validate asset", a) }

func ValidateDebt(d *models.Debt) error { return Struct("validate debt", d) }

func ValidateGoal(g *models.Goal) error { return Struct("validate goal", g) }

func ValidateSubmilestone(s *models.Submilestone) error {
	return Struct("validate submilestone", s)
}

func ValidateAssetCandidate(a *models.AssetCandidate) error {
	return Struct("validate asset", a)
}

func ValidateDebtCandidate(d *models.DebtCandidate) error {
	return Struct("validate debt", d)
}

func ValidateGoalCandidate(g *models.GoalCandidate) error {
	return Struct("validate goal", g)
}

// ValidatePatch checks the updates of an edit operation. Patches are
// *models.AssetPatch, *models.DebtPatch or *models.GoalPatch.
func ValidatePatch(patch any) error {
	switch patch.(type) {
	case *models.AssetPatch, *models.DebtPatch, *models.GoalPatch:
		return Struct("validate updates", patch)
	default:
		return models.Errorf(models.KindEntityValidation, "validate updates", "unsupported patch %T", patch)
	}
}
