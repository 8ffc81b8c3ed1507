package loader

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "BUILDRIG_"

// EnvLoader loads configuration from environment variables.
//
// With a schema, variable names are resolved against the json tags of the
// schema struct and values are converted to the type of the field they
// set: BUILDRIG_WATCH_ALL_DEBOUNCE=1s sets watch.all.debounce to "1s" and
// BUILDRIG_MINIFY_ALL_BANNER=off sets minify.all.banner to false. Names
// that do not resolve, or any name without a schema, are lower-cased into
// a dotted path and keep their string value.
type EnvLoader struct {
	prefix  string       // Environment variable prefix (e.g., "BUILDRIG_")
	schema  reflect.Type // Struct type the variables are resolved against
	environ func() []string
}

// NewEnvLoader creates a new environment variable loader.
// The prefix should include the trailing underscore.
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		environ: os.Environ,
	}
}

// NewEnvLoaderWithSchema creates a loader that resolves names and converts
// values using the struct type of schema.
func NewEnvLoaderWithSchema(prefix string, schema any) *EnvLoader {
	l := NewEnvLoader(prefix)
	l.schema = derefType(reflect.TypeOf(schema))
	return l
}

// Load reads environment variables and returns a configuration map.
// Empty values are kept; an empty variable clears a string setting.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)

	for _, env := range l.environ() {
		if !strings.HasPrefix(env, l.prefix) {
			continue
		}
		name, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		words := strings.Split(strings.TrimPrefix(name, l.prefix), "_")

		if l.schema != nil {
			if path, leaf, ok := resolveWords(l.schema, words); ok {
				v, err := convertValue(leaf, value)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", name, err)
				}
				setByPath(config, path, v)
				continue
			}
		}
		setByPath(config, envToPath(words), value)
	}

	return config, nil
}

// envToPath converts the words of BUILDRIG_LINT_MATCHER to lint.matcher.
func envToPath(words []string) []string {
	path := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" {
			path = append(path, strings.ToLower(w))
		}
	}
	return path
}

// resolveWords maps the words of a variable name onto a path through t.
// A struct field with a camelCase tag spans several words, matched
// case-insensitively; a map key takes exactly one word. The longest field
// name wins.
func resolveWords(t reflect.Type, words []string) ([]string, reflect.Type, bool) {
	t = derefType(t)
	if len(words) == 0 {
		return nil, t, true
	}
	switch t.Kind() {
	case reflect.Struct:
		for n := len(words); n >= 1; n-- {
			tag, field, ok := fieldByWords(t, words[:n])
			if !ok {
				continue
			}
			if rest, leaf, ok := resolveWords(field.Type, words[n:]); ok {
				return append([]string{tag}, rest...), leaf, true
			}
		}
	case reflect.Map:
		if t.Key().Kind() != reflect.String || words[0] == "" {
			return nil, nil, false
		}
		if rest, leaf, ok := resolveWords(t.Elem(), words[1:]); ok {
			return append([]string{strings.ToLower(words[0])}, rest...), leaf, true
		}
	}
	return nil, nil, false
}

func fieldByWords(t reflect.Type, words []string) (string, reflect.StructField, bool) {
	joined := strings.Join(words, "")
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if tag == "" || tag == "-" || !f.IsExported() {
			continue
		}
		if strings.EqualFold(tag, joined) {
			return tag, f, true
		}
	}
	return "", reflect.StructField{}, false
}

// convertValue converts a raw environment string to the type of the field
// it sets. Lists accept a JSON array or a comma separated list; maps and
// lists of objects take JSON.
func convertValue(t reflect.Type, s string) (any, error) {
	switch t.Kind() {
	case reflect.String:
		return s, nil
	case reflect.Bool:
		switch strings.ToLower(s) {
		case "true", "yes", "on", "1":
			return true, nil
		case "false", "no", "off", "0", "":
			return false, nil
		}
		return nil, fmt.Errorf("invalid boolean %q", s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		return i, nil
	case reflect.Slice:
		if strings.HasPrefix(strings.TrimSpace(s), "[") {
			return parseJSON(s)
		}
		if derefType(t.Elem()).Kind() != reflect.String {
			return nil, fmt.Errorf("expected a JSON array, got %q", s)
		}
		items := []any{}
		for _, item := range strings.Split(s, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	case reflect.Map, reflect.Struct:
		return parseJSON(s)
	}
	return s, nil
}

func parseJSON(s string) (any, error) {
	if !gjson.Valid(s) {
		return nil, fmt.Errorf("invalid JSON %q", s)
	}
	return gjson.Parse(s).Value(), nil
}

func derefType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// setByPath sets a value in a nested map.
func setByPath(data map[string]any, path []string, value any) {
	if len(path) == 0 {
		return
	}
	current := data
	for _, part := range path[:len(path)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[path[len(path)-1]] = value
}
