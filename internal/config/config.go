package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/lightnode/internal/heart"
	"github.com/smazurov/lightnode/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every `env` tag.
const EnvPrefix = "LIGHTNODE_"

// File is the typed view of config.toml used by the engine at startup and on
// reload. Unknown tables are ignored.
type File struct {
	Heart   Heart          `toml:"heart"`
	Lights  Lights         `toml:"lights"`
	Logging map[string]any `toml:"logging"`
}

// Heart mirrors the [heart] table.
type Heart struct {
	PatternsDir        string `toml:"patterns_dir"`
	Delay              string `toml:"delay"`
	LoadPolicy         string `toml:"load_policy"`
	KeepRunningOnError bool   `toml:"keep_running_on_error"`
	Mailbox            int    `toml:"mailbox"`
}

// HeartSettings is the validated [heart] table.
type HeartSettings struct {
	PatternsDir        string
	Delay              time.Duration
	Policy             heart.LoadPolicy
	KeepRunningOnError bool
	Mailbox            int
}

// Settings validates the table. Delay must be positive and the mailbox holds
// at least one directive.
func (h Heart) Settings() (HeartSettings, error) {
	delay, err := parseDuration("heart.delay", h.Delay)
	if err != nil {
		return HeartSettings{}, err
	}
	if delay <= 0 {
		return HeartSettings{}, fmt.Errorf("heart.delay must be positive, got %q", h.Delay)
	}
	policy, err := heart.ParseLoadPolicy(h.LoadPolicy)
	if err != nil {
		return HeartSettings{}, fmt.Errorf("heart.load_policy: %w", err)
	}
	if h.Mailbox < 1 {
		return HeartSettings{}, fmt.Errorf("heart.mailbox must be at least 1, got %d", h.Mailbox)
	}
	return HeartSettings{
		PatternsDir:        h.PatternsDir,
		Delay:              delay,
		Policy:             policy,
		KeepRunningOnError: h.KeepRunningOnError,
		Mailbox:            h.Mailbox,
	}, nil
}

// ReadFile decodes the typed tables of the config file at path.
func ReadFile(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := toml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return f, nil
}

// option is one tagged field of a humacli options struct.
type option struct {
	flag  string
	toml  string
	env   string
	value reflect.Value
}

func options(opts any) []option {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	out := make([]option, 0, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		out = append(out, option{
			flag:  fieldNameToFlag(f.Name),
			toml:  f.Tag.Get("toml"),
			env:   f.Tag.Get("env"),
			value: v.Field(i),
		})
	}
	return out
}

// LoadConfig fills opts with precedence CLI flag > env var > config file.
// Flags explicitly set on cmd are never overwritten. Values of the wrong type
// are skipped and reported together in the returned error.
func LoadConfig(opts any, cmd *cobra.Command) error {
	fields := options(opts)

	changed := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			changed[f.Name] = f.Changed
		})
	}

	var table map[string]any
	for _, o := range fields {
		if o.flag != "config" {
			continue
		}
		data, err := os.ReadFile(o.value.String())
		if err != nil {
			break
		}
		if err := toml.Unmarshal(data, &table); err != nil {
			return fmt.Errorf("failed to parse TOML config: %w", err)
		}
	}

	var errs []error
	for _, o := range fields {
		if changed[o.flag] {
			continue
		}
		if o.toml != "" {
			if raw := getNestedValue(table, o.toml); raw != nil {
				if err := setFieldValue(o.value, raw); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", o.toml, err))
				}
			}
		}
		if o.env != "" {
			if raw := os.Getenv(EnvPrefix + o.env); raw != "" {
				if err := setFieldValueFromString(o.value, raw); err != nil {
					errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, o.env, err))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// fieldNameToFlag converts a struct field name to a CLI flag name.
// Example: "LoggingLevel" -> "logging-level", "Port" -> "port".
func fieldNameToFlag(fieldName string) string {
	var b strings.Builder
	for i, r := range fieldName {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// getNestedValue looks up a dotted path such as "lights.kind".
func getNestedValue(data map[string]any, path string) any {
	head, rest, nested := strings.Cut(path, ".")
	if !nested {
		return data[head]
	}
	next, ok := data[head].(map[string]any)
	if !ok {
		return nil
	}
	return getNestedValue(next, rest)
}

func setFieldValue(field reflect.Value, value any) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
			return nil
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
			return nil
		}
	case reflect.Int, reflect.Int64:
		if i, ok := value.(int64); ok {
			field.SetInt(i)
			return nil
		}
	case reflect.Uint8, reflect.Uint16:
		if i, ok := value.(int64); ok {
			if i < 0 || field.OverflowUint(uint64(i)) {
				return fmt.Errorf("%d out of range for %s", i, field.Kind())
			}
			field.SetUint(uint64(i))
			return nil
		}
	case reflect.Slice:
		if arr, ok := value.([]any); ok && field.Type().Elem().Kind() == reflect.String {
			list := make([]string, 0, len(arr))
			for _, item := range arr {
				s, isString := item.(string)
				if !isString {
					return fmt.Errorf("list item %v is not a string", item)
				}
				list = append(list, s)
			}
			field.Set(reflect.ValueOf(list))
			return nil
		}
	default:
		return nil
	}
	return fmt.Errorf("cannot use %T value as %s", value, field.Kind())
}

func setFieldValueFromString(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Uint8, reflect.Uint16:
		// base 0 accepts 0x27b8 style USB ids
		u, err := strconv.ParseUint(value, 0, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(u)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}
	return nil
}

// loggingConfig maps the [logging] table. level and format are global, every
// other string key and the [logging.modules] table set module levels.
func loggingConfig(table map[string]any) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}

	for key, raw := range table {
		if modules, isTable := raw.(map[string]any); isTable && key == "modules" {
			for module, level := range modules {
				if s, isString := level.(string); isString {
					cfg.Modules[module] = s
				}
			}
			continue
		}
		value, ok := raw.(string)
		if !ok {
			continue
		}
		switch key {
		case "level":
			cfg.Level = value
		case "format":
			cfg.Format = value
		default:
			cfg.Modules[key] = value
		}
	}
	return cfg
}
