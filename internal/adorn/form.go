package adorn

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Encode serializes values with bracket notation for nested data:
// {"a":{"b":1},"l":["x"]} becomes a%5Bb%5D=1&l%5B0%5D=x. Keys are sorted.
// Nil values are written as an empty string.
func Encode(values map[string]any) string {
	var pairs []string
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pairs = appendValue(pairs, k, values[k])
	}
	return strings.Join(pairs, "&")
}

// Query is Encode parsed back into url.Values for use on a URL.
func Query(values map[string]any) url.Values {
	q, err := url.ParseQuery(Encode(values))
	if err != nil {
		return url.Values{}
	}
	return q
}

func appendValue(pairs []string, key string, v any) []string {
	if v == nil {
		return append(pairs, url.QueryEscape(key)+"=")
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		keys := make([]string, 0, rv.Len())
		index := make(map[string]reflect.Value, rv.Len())
		for _, mk := range rv.MapKeys() {
			s := fmt.Sprint(mk.Interface())
			keys = append(keys, s)
			index[s] = mk
		}
		sort.Strings(keys)
		for _, k := range keys {
			pairs = appendValue(pairs, key+"["+k+"]", rv.MapIndex(index[k]).Interface())
		}
		return pairs
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(string(rv.Bytes())))
		}
		for i := range rv.Len() {
			pairs = appendValue(pairs, key+"["+strconv.Itoa(i)+"]", rv.Index(i).Interface())
		}
		return pairs
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return append(pairs, url.QueryEscape(key)+"=")
		}
		return appendValue(pairs, key, rv.Elem().Interface())
	default:
		return append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(scalar(v)))
	}
}

func scalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}
