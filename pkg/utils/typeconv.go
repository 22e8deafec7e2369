package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"net"
	"reflect"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Normalize turns a driver value into one of the neutral batch types:
// nil, bool, string, integers, floats, time.Time, []byte, or []any /
// map[string]any built from those. Driver specific types with a String
// method (UUIDs, varints, decimals) become their canonical text.
func Normalize(val interface{}) interface{} {
	switch v := val.(type) {
	case nil:
		return nil
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	case time.Time:
		return v
	case net.IP:
		return v.String()
	case []byte:
		out := make([]byte, len(v))
		copy(out, v)
		return out
	case fmt.Stringer:
		if isNilPointer(val) {
			return nil
		}
		return v.String()
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return Normalize(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(Normalize(iter.Key().Interface()))] = Normalize(iter.Value().Interface())
		}
		return out
	default:
		return fmt.Sprintf("%v", val)
	}
}

func isNilPointer(val interface{}) bool {
	rv := reflect.ValueOf(val)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// ToSQLValue coerces a normalised value into something every database/sql
// and pgx driver accepts. Collections are stored as JSON text and unsigned
// values that overflow int64 as decimal text.
func ToSQLValue(val interface{}) (interface{}, error) {
	switch v := val.(type) {
	case []interface{}, map[string]interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode collection as json: %w", err)
		}
		return string(b), nil
	case uint64:
		if v > math.MaxInt64 {
			return strconv.FormatUint(v, 10), nil
		}
		return int64(v), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return strconv.FormatUint(uint64(v), 10), nil
		}
		return int64(v), nil
	default:
		return val, nil
	}
}

// ToMongoValue coerces a normalised value into its BSON counterpart.
// Times are truncated to millisecond precision by BSON itself.
func ToMongoValue(val interface{}) interface{} {
	switch v := val.(type) {
	case []byte:
		return primitive.Binary{Subtype: 0x00, Data: v}
	case time.Time:
		return primitive.NewDateTimeFromTime(v)
	case uint64:
		if v > math.MaxInt64 {
			return strconv.FormatUint(v, 10)
		}
		return int64(v)
	case uint:
		if uint64(v) > math.MaxInt64 {
			return strconv.FormatUint(uint64(v), 10)
		}
		return int64(v)
	case []interface{}:
		arr := make(bson.A, len(v))
		for i, item := range v {
			arr[i] = ToMongoValue(item)
		}
		return arr
	case map[string]interface{}:
		m := make(bson.M, len(v))
		for k, item := range v {
			m[k] = ToMongoValue(item)
		}
		return m
	default:
		return val
	}
}

// ConvertToInt accepts the usual numeric and textual spellings of an int.
func ConvertToInt(val interface{}) (int, error) {
	switch v := val.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	case []byte:
		return strconv.Atoi(string(v))
	default:
		return 0, fmt.Errorf("cannot convert %T to int", val)
	}
}

// IntOr parses s as an int and falls back to def when s is empty or invalid.
func IntOr(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := ConvertToInt(s)
	if err != nil {
		return def
	}
	return v
}
