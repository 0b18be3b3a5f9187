package secindex

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// KeyType tags how a field's value is encoded into a canonical, lex-order
// preserving key.
type KeyType string

const (
	KeyTypeStr  KeyType = "str"
	KeyTypeNum  KeyType = "num"
	KeyTypeDate KeyType = "date"
	KeyTypeAuto KeyType = "auto"
)

// numericBias shifts a value into the non-negative range before zero-padding
// so that lexicographic string order matches numeric order.
const numericBias = 1_000_000_000_000 // 10^12
const numericWidth = 20

// recordSeparator joins composite key components. U+241E is chosen because
// it is vanishingly unlikely to appear in ordinary field data.
const recordSeparator = "␞"

// Meta describes one secondary or composite index: the ordered field tuple
// it's keyed on, each field's encoding tag, and an Ordered flag. The query
// planner does not read Ordered: any registered single-field index on the
// OrderBy field serves a range query, whatever its Ordered value.
type Meta struct {
	Fields   []string  `json:"fields"`
	KeyTypes []KeyType `json:"keyTypes"`
	Ordered  bool      `json:"ordered"`
}

// Name returns the index's logical name: its fields joined by "__".
func (m Meta) Name() string {
	return strings.Join(m.Fields, "__")
}

// FileName returns the on-disk file name for this index, per the layout
// contract: secondary_<field>.idx.json for single-field indexes,
// composite_<f1>__<f2>….idx.json for composites.
func (m Meta) FileName() string {
	if len(m.Fields) == 1 {
		return "secondary_" + m.Fields[0] + ".idx.json"
	}
	return "composite_" + strings.Join(m.Fields, "__") + ".idx.json"
}

// Canonical encodes a single field value into its canonical key component
// per keyType. Missing values should be passed as nil, which always encodes
// to the empty string.
func Canonical(field string, value any, kt KeyType) (string, error) {
	if value == nil {
		return "", nil
	}

	switch kt {
	case KeyTypeNum:
		return canonicalNum(field, value)
	case KeyTypeDate:
		return canonicalDate(value), nil
	case KeyTypeStr:
		return canonicalStr(value), nil
	case KeyTypeAuto:
		switch v := value.(type) {
		case float64, int, int64:
			return canonicalNum(field, v)
		default:
			return canonicalStr(v), nil
		}
	default:
		return canonicalStr(value), nil
	}
}

func canonicalNum(field string, value any) (string, error) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	default:
		s, err := strconv.ParseFloat(fmt.Sprint(v), 64)
		if err != nil {
			return "", &ErrOutOfRange{Field: field, Value: 0}
		}
		f = s
	}
	if f < -numericBias || f > numericBias {
		return "", &ErrOutOfRange{Field: field, Value: f}
	}
	shifted := int64(f + numericBias)
	return fmt.Sprintf("%0*d", numericWidth, shifted), nil
}

func canonicalDate(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	if t, ok := value.(time.Time); ok {
		return t.UTC().Format(time.RFC3339)
	}
	return fmt.Sprint(value)
}

func canonicalStr(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

// Composite joins already-canonicalized field components with the record
// separator to form a composite key.
func Composite(parts ...string) string {
	return strings.Join(parts, recordSeparator)
}
