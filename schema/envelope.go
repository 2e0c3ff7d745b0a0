package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/qiuethan/RT1M-sub001/jsonx"
	"github.com/qiuethan/RT1M-sub001/models"
)

const opParse = "parse envelope"

// EnvelopeKeys is the closed set of top-level keys a chat-turn envelope may carry.
var EnvelopeKeys = []string{
	"message", "personalInfo", "financialInfo", "assets", "debts", "goals", "skills", "operations",
}

// ParseEnvelope decodes and validates a chat-turn envelope. Structural
// violations (unknown keys, wrong JSON types, an empty goals list) and invalid
// scalar sections fail the whole envelope with a KindExtractionParse error.
// Items of the assets, debts and goals lists are only decoded here; each one
// is validated on its own when it is merged, so one bad item is skipped
// instead of discarding the turn.
func ParseEnvelope(raw []byte) (*models.Envelope, error) {
	obj, err := jsonx.Object(raw)
	if err != nil {
		return nil, models.NewError(models.KindExtractionParse, opParse, err)
	}
	if err := closedKeys(obj, EnvelopeKeys); err != nil {
		return nil, err
	}

	env := &models.Envelope{}
	if m, ok := obj["message"]; ok && !jsonx.IsNull(m) {
		if err := jsonx.UnmarshalStrict(m, &env.Message); err != nil {
			return nil, parseErr("message", err)
		}
	}
	if env.PersonalInfo, err = decodeObject[models.PersonalInfoUpdate](obj, "personalInfo"); err != nil {
		return nil, err
	}
	if env.FinancialInfo, err = decodeObject[models.FinancialUpdate](obj, "financialInfo"); err != nil {
		return nil, err
	}
	if env.Skills, err = decodeObject[models.SkillsUpdate](obj, "skills"); err != nil {
		return nil, err
	}
	if env.Operations, err = decodeObject[models.Operations](obj, "operations"); err != nil {
		return nil, err
	}
	if env.Assets, err = decodeSection[models.AssetCandidate](obj, "assets", true); err != nil {
		return nil, err
	}
	if env.Debts, err = decodeSection[models.DebtCandidate](obj, "debts", true); err != nil {
		return nil, err
	}
	// goals is only present when there is something to add.
	if env.Goals, err = decodeSection[models.GoalCandidate](obj, "goals", false); err != nil {
		return nil, err
	}
	if err := validateOperations(env.Operations); err != nil {
		return nil, err
	}
	return env, nil
}

func closedKeys(obj map[string]jsonx.RawMessage, allowed []string) error {
	var unknown []string
	for k := range obj {
		if !contains(allowed, k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return models.Errorf(models.KindExtractionParse, opParse, "unknown top-level keys: %s", strings.Join(unknown, ", "))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// decodeObject strictly decodes a nullable object member. Missing or null
// yields nil.
func decodeObject[T any](obj map[string]jsonx.RawMessage, key string) (*T, error) {
	raw, ok := obj[key]
	if !ok || jsonx.IsNull(raw) {
		return nil, nil
	}
	out := new(T)
	if err := jsonx.UnmarshalStrict(raw, out); err != nil {
		return nil, parseErr(key, err)
	}
	if err := Struct(key, out); err != nil {
		return nil, asParse(err)
	}
	return out, nil
}

// decodeSection keeps null, [] and populated lists apart.
func decodeSection[T any](obj map[string]jsonx.RawMessage, key string, allowEmpty bool) (models.Section[T], error) {
	raw, ok := obj[key]
	if !ok || jsonx.IsNull(raw) {
		return models.Section[T]{State: models.Absent}, nil
	}
	if jsonx.IsEmptyArray(raw) {
		if !allowEmpty {
			return models.Section[T]{}, models.Errorf(models.KindExtractionParse, opParse, "%s must be null or non-empty", key)
		}
		return models.EmptySection[T](), nil
	}
	var items []T
	if err := jsonx.UnmarshalStrict(raw, &items); err != nil {
		return models.Section[T]{}, parseErr(key, err)
	}
	return models.SectionOf(items...), nil
}

func validateOperations(ops *models.Operations) error {
	if ops == nil {
		return nil
	}
	for i := range ops.GoalEdits {
		for j, sp := range ops.GoalEdits[i].Updates.Submilestones {
			if sp.ID == nil && sp.Order == nil {
				return models.Errorf(models.KindExtractionParse, opParse,
					"operations.goalEdits[%d].updates.submilestones[%d] needs an id or order", i, j)
			}
		}
	}
	return nil
}

func parseErr(key string, err error) error {
	return models.NewError(models.KindExtractionParse, opParse, fmt.Errorf("%s: %w", key, err))
}

func asParse(err error) error {
	if e, ok := err.(*models.Error); ok {
		return &models.Error{Kind: models.KindExtractionParse, Op: e.Op, Err: e.Err}
	}
	return models.NewError(models.KindExtractionParse, opParse, err)
}
