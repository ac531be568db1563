package value

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"
)

// ConversionError reports a failed Value to native conversion. Field is filled
// in by the row mapper when the failure happened while scanning an entity.
type ConversionError struct {
	Field  string
	Value  Value
	Target string
}

func (e *ConversionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("akita: cannot convert %s value %q into %s for field %s", e.Value.Kind(), e.Value.String(), e.Target, e.Field)
	}
	return fmt.Sprintf("akita: cannot convert %s value %q into %s", e.Value.Kind(), e.Value.String(), e.Target)
}

func convErr(v Value, target string) error {
	return &ConversionError{Value: v, Target: target}
}

// AsBool converts v into a native bool.
func (v Value) AsBool() (bool, error) {
	switch v.kind {
	case KindBool:
		return v.b, nil
	case KindInt:
		return v.i != 0, nil
	case KindUint:
		return v.u != 0, nil
	case KindText:
		b, err := strconv.ParseBool(v.s)
		if err != nil {
			return false, convErr(v, "bool")
		}
		return b, nil
	}
	return false, convErr(v, "bool")
}

// AsInt64 converts v into a native int64.
func (v Value) AsInt64() (int64, error) {
	switch v.kind {
	case KindInt:
		return v.i, nil
	case KindUint:
		return int64(v.u), nil
	case KindFloat:
		return int64(v.f), nil
	case KindBool:
		if v.b {
			return 1, nil
		}
		return 0, nil
	case KindDecimal:
		return v.d.IntPart(), nil
	case KindText:
		i, err := strconv.ParseInt(v.s, 10, 64)
		if err != nil {
			return 0, convErr(v, "int64")
		}
		return i, nil
	case KindBytes:
		i, err := strconv.ParseInt(string(v.bs), 10, 64)
		if err != nil {
			return 0, convErr(v, "int64")
		}
		return i, nil
	}
	return 0, convErr(v, "int64")
}

// AsUint64 converts v into a native uint64.
func (v Value) AsUint64() (uint64, error) {
	switch v.kind {
	case KindUint:
		return v.u, nil
	case KindInt:
		if v.i < 0 {
			return 0, convErr(v, "uint64")
		}
		return uint64(v.i), nil
	case KindText:
		u, err := strconv.ParseUint(v.s, 10, 64)
		if err != nil {
			return 0, convErr(v, "uint64")
		}
		return u, nil
	}
	if i, err := v.AsInt64(); err == nil && i >= 0 {
		return uint64(i), nil
	}
	return 0, convErr(v, "uint64")
}

// AsFloat64 converts v into a native float64.
func (v Value) AsFloat64() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.f, nil
	case KindInt:
		return float64(v.i), nil
	case KindUint:
		return float64(v.u), nil
	case KindDecimal:
		f, _ := v.d.Float64()
		return f, nil
	case KindText:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return 0, convErr(v, "float64")
		}
		return f, nil
	case KindBytes:
		f, err := strconv.ParseFloat(string(v.bs), 64)
		if err != nil {
			return 0, convErr(v, "float64")
		}
		return f, nil
	}
	return 0, convErr(v, "float64")
}

// AsDecimal converts v into a decimal.Decimal.
func (v Value) AsDecimal() (decimal.Decimal, error) {
	switch v.kind {
	case KindDecimal:
		return v.d, nil
	case KindInt:
		return decimal.NewFromInt(v.i), nil
	case KindUint:
		return decimal.NewFromUint64(v.u), nil
	case KindFloat:
		return decimal.NewFromFloat(v.f), nil
	case KindText:
		d, err := decimal.NewFromString(v.s)
		if err != nil {
			return decimal.Decimal{}, convErr(v, "decimal")
		}
		return d, nil
	case KindBytes:
		d, err := decimal.NewFromString(string(v.bs))
		if err != nil {
			return decimal.Decimal{}, convErr(v, "decimal")
		}
		return d, nil
	}
	return decimal.Decimal{}, convErr(v, "decimal")
}

// AsString converts v into a native string.
func (v Value) AsString() (string, error) {
	switch v.kind {
	case KindText:
		return v.s, nil
	case KindBytes, KindJSON:
		return string(v.bs), nil
	case KindNull:
		return "", convErr(v, "string")
	default:
		return v.String(), nil
	}
}

// AsBytes converts v into a byte slice.
func (v Value) AsBytes() ([]byte, error) {
	switch v.kind {
	case KindBytes, KindJSON:
		return v.bs, nil
	case KindText:
		return []byte(v.s), nil
	}
	return nil, convErr(v, "[]byte")
}

// AsUUID converts v into a uuid.UUID.
func (v Value) AsUUID() (uuid.UUID, error) {
	switch v.kind {
	case KindUUID:
		return v.id, nil
	case KindText:
		id, err := uuid.Parse(v.s)
		if err != nil {
			return uuid.Nil, convErr(v, "uuid")
		}
		return id, nil
	case KindBytes:
		if len(v.bs) == 16 {
			id, err := uuid.FromBytes(v.bs)
			if err == nil {
				return id, nil
			}
		}
		id, err := uuid.ParseBytes(v.bs)
		if err != nil {
			return uuid.Nil, convErr(v, "uuid")
		}
		return id, nil
	}
	return uuid.Nil, convErr(v, "uuid")
}

// AsTime converts v into a time.Time. Textual timestamps are parsed with the
// permissive formats from jinzhu/now.
func (v Value) AsTime() (time.Time, error) {
	switch v.kind {
	case KindDate, KindTime, KindDateTime:
		return v.t, nil
	case KindText:
		t, err := now.Parse(v.s)
		if err != nil {
			return time.Time{}, convErr(v, "time.Time")
		}
		return t, nil
	case KindBytes:
		t, err := now.Parse(string(v.bs))
		if err != nil {
			return time.Time{}, convErr(v, "time.Time")
		}
		return t, nil
	case KindInt:
		return time.Unix(v.i, 0), nil
	}
	return time.Time{}, convErr(v, "time.Time")
}

// AsJSON returns the raw JSON payload of v.
func (v Value) AsJSON() (json.RawMessage, error) {
	switch v.kind {
	case KindJSON, KindBytes:
		return json.RawMessage(v.bs), nil
	case KindText:
		return json.RawMessage(v.s), nil
	}
	return nil, convErr(v, "json.RawMessage")
}

// Assign stores v into dest, which must be an addressable reflect value.
// A failed assignment returns a *ConversionError naming the target type.
func (v Value) Assign(dest reflect.Value) error {
	if dest.Kind() == reflect.Ptr {
		if v.IsNull() {
			dest.Set(reflect.Zero(dest.Type()))
			return nil
		}
		if dest.IsNil() {
			dest.Set(reflect.New(dest.Type().Elem()))
		}
		return v.Assign(dest.Elem())
	}

	if v.IsNull() {
		// null into a non-nullable field
		return convErr(v, dest.Type().String())
	}

	switch dest.Interface().(type) {
	case time.Time:
		t, err := v.AsTime()
		if err != nil {
			return err
		}
		dest.Set(reflect.ValueOf(t))
		return nil
	case decimal.Decimal:
		d, err := v.AsDecimal()
		if err != nil {
			return err
		}
		dest.Set(reflect.ValueOf(d))
		return nil
	case uuid.UUID:
		id, err := v.AsUUID()
		if err != nil {
			return err
		}
		dest.Set(reflect.ValueOf(id))
		return nil
	case json.RawMessage:
		raw, err := v.AsJSON()
		if err != nil {
			return err
		}
		dest.Set(reflect.ValueOf(raw))
		return nil
	case Value:
		dest.Set(reflect.ValueOf(v))
		return nil
	}

	switch dest.Kind() {
	case reflect.Bool:
		b, err := v.AsBool()
		if err != nil {
			return err
		}
		dest.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := v.AsInt64()
		if err != nil {
			return err
		}
		if dest.OverflowInt(i) {
			return convErr(v, dest.Type().String())
		}
		dest.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := v.AsUint64()
		if err != nil {
			return err
		}
		if dest.OverflowUint(u) {
			return convErr(v, dest.Type().String())
		}
		dest.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := v.AsFloat64()
		if err != nil {
			return err
		}
		dest.SetFloat(f)
	case reflect.String:
		s, err := v.AsString()
		if err != nil {
			return err
		}
		dest.SetString(s)
	case reflect.Slice:
		if dest.Type().Elem().Kind() == reflect.Uint8 {
			b, err := v.AsBytes()
			if err != nil {
				return err
			}
			dest.SetBytes(b)
			return nil
		}
		fallthrough
	default:
		// structured fields decode from their JSON form
		raw, err := v.AsJSON()
		if err != nil {
			return convErr(v, dest.Type().String())
		}
		if err := json.Unmarshal(raw, dest.Addr().Interface()); err != nil {
			return convErr(v, dest.Type().String())
		}
	}
	return nil
}
