package models

import "github.com/qiuethan/RT1M-sub001/jsonx"

// Presence distinguishes "not yet entered" from "explicitly empty" from "populated".
type Presence string

const (
	Absent    Presence = "absent"
	Empty     Presence = "empty"
	Populated Presence = "populated"
)

// SlicePresence maps a stored slice onto the three states. A nil slice was never
// written; a non-nil zero-length slice was confirmed empty.
func SlicePresence[T any](s []T) Presence {
	switch {
	case s == nil:
		return Absent
	case len(s) == 0:
		return Empty
	default:
		return Populated
	}
}

// Section is an extracted collection together with how it was expressed in the
// model output: null/missing, [], or a list of items.
type Section[T any] struct {
	State Presence
	Items []T
}

func (s Section[T]) IsSet() bool { return s.State == Empty || s.State == Populated }

func (s Section[T]) HasItems() bool { return s.State == Populated && len(s.Items) > 0 }

func EmptySection[T any]() Section[T] { return Section[T]{State: Empty, Items: []T{}} }

func SectionOf[T any](items ...T) Section[T] {
	if len(items) == 0 {
		return EmptySection[T]()
	}
	return Section[T]{State: Populated, Items: items}
}

// MarshalJSON writes null for Absent and [] for Empty.
func (s Section[T]) MarshalJSON() ([]byte, error) {
	switch s.State {
	case Absent, "":
		return []byte("null"), nil
	case Empty:
		return []byte("[]"), nil
	}
	return jsonx.Marshal(s.Items)
}

// UnmarshalJSON is the lenient inverse of MarshalJSON. Model output goes
// through schema.ParseEnvelope instead.
func (s *Section[T]) UnmarshalJSON(data []byte) error {
	if jsonx.IsNull(data) {
		*s = Section[T]{State: Absent}
		return nil
	}
	var items []T
	if err := jsonx.Unmarshal(data, &items); err != nil {
		return err
	}
	*s = SectionOf(items...)
	return nil
}
