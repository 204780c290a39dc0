package config

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

type logMsg func(string, ...interface{})

var mapregex = regexp.MustCompile(`mapstructure:"([^"]+)"`)
var blocklistregexp = []*regexp.Regexp{
	regexp.MustCompile("password"),
}

// logGeneral will log nearly any sort of value, but requires the name of the root object to be in the
// prefix if we want that name to be logged. Structs will append .fieldname to the prefix for their
// fields, and maps and slices will append [key] or [index].
func logGeneral(v reflect.Value, prefix string) {
	logGeneralWithLogger(v, prefix, glog.Infof)
}

func logGeneralWithLogger(v reflect.Value, prefix string, logger logMsg) {
	switch v.Kind() {
	case reflect.Struct:
		logStructWithLogger(v, prefix, logger)
	case reflect.Map:
		logMapWithLogger(v, prefix, logger)
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			elem := v.Index(i)
			if indirect(elem).Kind() == reflect.Struct {
				logGeneralWithLogger(elem, fmt.Sprintf("%s[%d].", prefix, i), logger)
			} else {
				logGeneralWithLogger(elem, fmt.Sprintf("%s[%d]", prefix, i), logger)
			}
		}
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			logger("%s: <nil>", prefix)
			return
		}
		logGeneralWithLogger(v.Elem(), prefix, logger)
	default:
		logger("%s: %s", prefix, valueString(v))
	}
}

func logStructWithLogger(v reflect.Value, prefix string, logger logMsg) {
	if v.Kind() != reflect.Struct {
		glog.Fatalf("logStruct called on type %s, whuch is not a struct!", v.Type().String())
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		fieldname := fieldNameByTag(t.Field(i))
		if allowedName(fieldname) {
			if k := indirect(v.Field(i)).Kind(); k == reflect.Struct {
				logGeneralWithLogger(v.Field(i), prefix+fieldname+".", logger)
			} else {
				logGeneralWithLogger(v.Field(i), prefix+fieldname, logger)
			}
		} else {
			logger("%s%s: <REDACTED>", prefix, fieldname)
		}
	}
}

func logMapWithLogger(v reflect.Value, prefix string, logger logMsg) {
	if v.Kind() != reflect.Map {
		glog.Fatalf("logMap called on type %s, whuch is not a map!", v.Type().String())
	}
	for _, k := range v.MapKeys() {
		key := fmt.Sprintf("%s[%s]", prefix, valueString(k))
		if allowedName(valueString(k)) {
			logGeneralWithLogger(v.MapIndex(k), key, logger)
		} else {
			logger("%s: <REDACTED>", key)
		}
	}
}

func indirect(v reflect.Value) reflect.Value {
	for (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) && !v.IsNil() {
		v = v.Elem()
	}
	return v
}

func valueString(v reflect.Value) string {
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case reflect.Interface, reflect.Ptr:
		if v.IsNil() {
			return "<nil>"
		}
		return valueString(v.Elem())
	}
	if v.CanInterface() {
		return fmt.Sprint(v.Interface())
	}
	return "<" + v.Type().String() + ">"
}

func fieldNameByTag(f reflect.StructField) string {
	match := mapregex.FindStringSubmatch(string(f.Tag))
	if len(match) == 0 {
		return "((" + f.Name + "))"
	}
	return match[1]
}

func allowedName(name string) bool {
	lower := strings.ToLower(name)
	for _, r := range blocklistregexp {
		if r.MatchString(lower) {
			return false
		}
	}
	return true
}
