package frame

import (
	"strconv"
	"time"

	"github.com/sells-group/movie-etl/internal/normalize"
)

// Kind tags the type held by a Cell.
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindList
	KindMap
	KindInt
	KindFloat
	KindBool
	KindDate
)

var kindNames = [...]string{"null", "text", "list", "map", "int", "float", "bool", "date"}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Cell is one table value. The zero Cell is null (missing).
type Cell struct {
	Kind  Kind
	Str   string
	List  []string
	Map   map[string]normalize.Value
	Int   int64
	Float float64
	Bool  bool
	Time  time.Time
}

// Null returns the missing cell.
func Null() Cell { return Cell{} }

// Text builds a string cell.
func Text(s string) Cell { return Cell{Kind: KindText, Str: s} }

// List builds a multi-valued string cell.
func List(items ...string) Cell { return Cell{Kind: KindList, List: items} }

// Map builds a nested mapping cell.
func Map(m map[string]normalize.Value) Cell { return Cell{Kind: KindMap, Map: m} }

// Int builds an integer cell.
func Int(v int64) Cell { return Cell{Kind: KindInt, Int: v} }

// Float builds a float cell.
func Float(v float64) Cell { return Cell{Kind: KindFloat, Float: v} }

// Bool builds a boolean cell.
func Bool(v bool) Cell { return Cell{Kind: KindBool, Bool: v} }

// Date builds a date cell.
func Date(t time.Time) Cell { return Cell{Kind: KindDate, Time: t} }

// FromValue converts a raw encyclopedic value into a cell.
func FromValue(v normalize.Value) Cell {
	switch v.Kind {
	case normalize.KindString:
		return Text(v.Str)
	case normalize.KindList:
		return List(v.List...)
	case normalize.KindMap:
		return Map(v.Map)
	default:
		return Null()
	}
}

// ToValue converts text-like cells back into a raw value. Typed scalars
// render as their literal text.
func (c Cell) ToValue() normalize.Value {
	switch c.Kind {
	case KindNull:
		return normalize.Null()
	case KindList:
		return normalize.List(c.List...)
	case KindMap:
		return normalize.Value{Kind: normalize.KindMap, Map: c.Map}
	default:
		return normalize.String(c.String())
	}
}

// IsNull reports whether c is missing.
func (c Cell) IsNull() bool { return c.Kind == KindNull }

// Number returns c as a float for int and float cells.
func (c Cell) Number() (float64, bool) {
	switch c.Kind {
	case KindInt:
		return float64(c.Int), true
	case KindFloat:
		return c.Float, true
	default:
		return 0, false
	}
}

// IsZero reports whether c is a numeric zero. Null is not zero.
func (c Cell) IsZero() bool {
	n, ok := c.Number()
	return ok && n == 0
}

// Key returns a join key for c. Null cells have no key and never match.
func (c Cell) Key() (string, bool) {
	switch c.Kind {
	case KindNull:
		return "", false
	case KindInt:
		return "i:" + strconv.FormatInt(c.Int, 10), true
	case KindText:
		return "s:" + c.Str, true
	default:
		return c.Kind.String() + ":" + c.String(), true
	}
}

// String renders c for logs and text columns.
func (c Cell) String() string {
	switch c.Kind {
	case KindText:
		return c.Str
	case KindList:
		return joinList(c.List)
	case KindMap:
		data, err := normalize.Value{Kind: normalize.KindMap, Map: c.Map}.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(data)
	case KindInt:
		return strconv.FormatInt(c.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(c.Float, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(c.Bool)
	case KindDate:
		return c.Time.Format(time.DateOnly)
	default:
		return ""
	}
}

func joinList(items []string) string {
	s, _ := normalize.Join(normalize.List(items...))
	return s
}
