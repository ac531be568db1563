// Package value implements the runtime value model bridging native Go types,
// bound statement parameters and result-set columns.
package value

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind discriminates the representable value types.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindDecimal
	KindText
	KindBytes
	KindJSON
	KindUUID
	KindDate
	KindTime
	KindDateTime
	KindList
)

var kindNames = map[Kind]string{
	KindNull:     "Null",
	KindBool:     "Bool",
	KindInt:      "Int",
	KindUint:     "Uint",
	KindFloat:    "Float",
	KindDecimal:  "Decimal",
	KindText:     "Text",
	KindBytes:    "Bytes",
	KindJSON:     "Json",
	KindUUID:     "Uuid",
	KindDate:     "Date",
	KindTime:     "Time",
	KindDateTime: "DateTime",
	KindList:     "List",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is a discriminated column / bound-parameter value. The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	u    uint64
	f    float64
	d    decimal.Decimal
	s    string
	bs   []byte
	id   uuid.UUID
	t    time.Time
	list []Value
}

// Kind returns the discriminator of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v holds no value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a native bool.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps a native signed integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Uint wraps a native unsigned integer.
func Uint(u uint64) Value { return Value{kind: KindUint, u: u} }

// Float wraps a native float.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Decimal wraps an arbitrary-precision decimal.
func Decimal(d decimal.Decimal) Value { return Value{kind: KindDecimal, d: d} }

// Text wraps a native string.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Bytes wraps a binary blob.
func Bytes(b []byte) Value { return Value{kind: KindBytes, bs: b} }

// JSON wraps a raw JSON payload. The payload is carried verbatim, it is not
// parsed by this package.
func JSON(raw json.RawMessage) Value { return Value{kind: KindJSON, bs: raw} }

// UUID wraps a uuid.
func UUID(id uuid.UUID) Value { return Value{kind: KindUUID, id: id} }

// Date wraps the date portion of t.
func Date(t time.Time) Value { return Value{kind: KindDate, t: t} }

// Time wraps the clock portion of t.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// DateTime wraps a full timestamp.
func DateTime(t time.Time) Value { return Value{kind: KindDateTime, t: t} }

// List wraps an ordered collection, used for IN / BETWEEN operands.
func List(vs ...Value) Value { return Value{kind: KindList, list: vs} }

// Values returns the elements of a List value, nil otherwise.
func (v Value) Values() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// ToValue converts a native Go value into a Value. Conversion from a native
// type always succeeds; unknown types are marshalled to their JSON form.
func ToValue(v interface{}) Value {
	switch v := v.(type) {
	case nil:
		return Null()
	case Value:
		return v
	case *Value:
		if v == nil {
			return Null()
		}
		return *v
	case bool:
		return Bool(v)
	case int:
		return Int(int64(v))
	case int8:
		return Int(int64(v))
	case int16:
		return Int(int64(v))
	case int32:
		return Int(int64(v))
	case int64:
		return Int(v)
	case uint:
		return Uint(uint64(v))
	case uint8:
		return Uint(uint64(v))
	case uint16:
		return Uint(uint64(v))
	case uint32:
		return Uint(uint64(v))
	case uint64:
		return Uint(v)
	case float32:
		return Float(float64(v))
	case float64:
		return Float(v)
	case decimal.Decimal:
		return Decimal(v)
	case string:
		return Text(v)
	case []byte:
		return Bytes(v)
	case json.RawMessage:
		return JSON(v)
	case uuid.UUID:
		return UUID(v)
	case time.Time:
		return DateTime(v)
	case *time.Time:
		if v == nil {
			return Null()
		}
		return DateTime(*v)
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				return Null()
			}
			return ToValue(rv.Elem().Interface())
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return Text(fmt.Sprint(v))
		}
		return JSON(raw)
	}
}

// ToValues converts a slice of native values.
func ToValues(vs []interface{}) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = ToValue(v)
	}
	return out
}

// Interface returns the native representation used for parameter binding.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindUint:
		return v.u
	case KindFloat:
		return v.f
	case KindDecimal:
		return v.d.String()
	case KindText:
		return v.s
	case KindBytes, KindJSON:
		return v.bs
	case KindUUID:
		return v.id.String()
	case KindDate:
		return v.t.Format("2006-01-02")
	case KindTime:
		return v.t.Format("15:04:05")
	case KindDateTime:
		return v.t
	case KindList:
		out := make([]interface{}, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	}
	return nil
}

// Value implements driver.Valuer so a Value may be bound directly.
func (v Value) Value() (driver.Value, error) {
	if v.kind == KindList {
		return nil, fmt.Errorf("akita: cannot bind a List value as a single parameter")
	}
	return driver.Value(v.Interface()), nil
}

// Scan implements sql.Scanner so a *Value may receive a result-set column.
func (v *Value) Scan(src interface{}) error {
	switch src := src.(type) {
	case nil:
		*v = Null()
	case bool:
		*v = Bool(src)
	case int64:
		*v = Int(src)
	case float64:
		*v = Float(src)
	case string:
		*v = Text(src)
	case []byte:
		// copy, the driver may reuse the buffer
		b := make([]byte, len(src))
		copy(b, src)
		*v = Bytes(b)
	case time.Time:
		*v = DateTime(src)
	default:
		*v = Text(fmt.Sprint(src))
	}
	return nil
}

// String implements fmt.Stringer for trace output.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindText:
		return v.s
	case KindBytes, KindJSON:
		return string(v.bs)
	default:
		return fmt.Sprint(v.Interface())
	}
}
