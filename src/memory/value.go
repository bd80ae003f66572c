package memory

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Kind discriminates the closed set of value shapes a preference or
// metadata entry may hold.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindList
)

// Value is a small closed variant (string, number, boolean, or list of
// strings) used for preferences and turn metadata. Keeping the set
// closed makes persistence and merge semantics well-defined, unlike a
// free-form any-typed mapping.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Bool bool
	List []string
}

func String(s string) Value      { return Value{Kind: KindString, Str: s} }
func Number(n float64) Value     { return Value{Kind: KindNumber, Num: n} }
func Boolean(b bool) Value       { return Value{Kind: KindBool, Bool: b} }
func List(items ...string) Value { return Value{Kind: KindList, List: items} }

// MarshalJSON renders the variant as its natural JSON shape.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	default:
		return json.Marshal(v.Str)
	}
}

// UnmarshalJSON accepts the four supported shapes. Anything else
// (nested objects, mixed arrays) degrades to its compact string
// rendering rather than failing the whole record load.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*v = Value{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Boolean(b)
		return nil
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err == nil {
			*v = Value{Kind: KindList, List: list}
			if list == nil {
				v.List = []string{}
			}
			return nil
		}
	default:
		if n, err := strconv.ParseFloat(string(data), 64); err == nil {
			*v = Number(n)
			return nil
		}
	}
	*v = String(string(data))
	return nil
}

// Equal compares two values structurally.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num == other.Num
	case KindBool:
		return v.Bool == other.Bool
	case KindList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if v.List[i] != other.List[i] {
				return false
			}
		}
		return true
	default:
		return v.Str == other.Str
	}
}
