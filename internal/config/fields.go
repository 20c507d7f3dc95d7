package config

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Field is one leaf setting of Config, addressed by its dotted JSON path.
type Field struct {
	Key    string
	Env    string
	Secret bool

	index []int
	kind  reflect.Kind
}

var fields = sync.OnceValue(func() []Field {
	var out []Field
	collectFields(reflect.TypeOf(Config{}), "", nil, &out)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
})

func collectFields(t reflect.Type, prefix string, index []int, out *[]Field) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		idx := append(append([]int(nil), index...), i)
		if sf.Type.Kind() == reflect.Struct {
			collectFields(sf.Type, key, idx, out)
			continue
		}
		env, _, _ := strings.Cut(sf.Tag.Get("env"), ",")
		*out = append(*out, Field{
			Key:    key,
			Env:    env,
			Secret: sf.Tag.Get("secret") == "true",
			index:  idx,
			kind:   sf.Type.Kind(),
		})
	}
}

// Fields lists every setting in key order.
func Fields() []Field {
	return append([]Field(nil), fields()...)
}

// LookupField finds the setting for a dotted key.
func LookupField(key string) (Field, bool) {
	for _, f := range fields() {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// IsSecretKey reports whether key is tagged secret in Config.
func IsSecretKey(key string) bool {
	f, ok := LookupField(key)
	return ok && f.Secret
}

// Value reads the field from cfg.
func (f Field) Value(cfg *Config) any {
	return reflect.ValueOf(cfg).Elem().FieldByIndex(f.index).Interface()
}

// Parse converts a command-line value to the field's type.
func (f Field) Parse(raw string) (any, error) {
	switch f.kind {
	case reflect.String:
		return raw, nil
	case reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%s expects an integer: %w", f.Key, err)
		}
		return n, nil
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s expects a number: %w", f.Key, err)
		}
		return n, nil
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s expects true or false: %w", f.Key, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%s has unsupported type %s", f.Key, f.kind)
	}
}

// mask shows only the last four characters of a secret.
func mask(v any) any {
	s, ok := v.(string)
	if !ok || s == "" {
		return v
	}
	if len(s) <= 4 {
		return "***" + s
	}
	return "***" + s[len(s)-4:]
}

// lookupPath walks a decoded JSON object along a dotted key.
func lookupPath(m map[string]any, key string) (any, bool) {
	parts := strings.Split(key, ".")
	var cur any = m
	for _, part := range parts {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// setPath stores v under a dotted key, creating intermediate objects.
func setPath(m map[string]any, key string, v any) {
	parts := strings.Split(key, ".")
	cur := m
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}
