package modules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type OptionType string

const (
	String OptionType = "string"
	Bool   OptionType = "bool"
	Int    OptionType = "int"
)

// Option declares one recognized module parameter: its type, whether the
// operator must supply it, and an optional value format.
type Option struct {
	Name        string
	Description string
	Default     string
	Required    bool
	Type        OptionType
	ValueFormat *regexp.Regexp
	Sensitive   bool
}

func GetOptionByName(name string, options []*Option) *Option {
	for _, o := range options {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// Params are the operator-supplied parameter values for one module
// execution. Values are strings as they arrive from flags or MCP calls;
// the typed getters convert on access.
type Params map[string]string

func (p Params) String(name string) string {
	return p[name]
}

// StringSlice splits a comma-separated value, Dorothy's convention for
// multi-value options such as group IDs.
func (p Params) StringSlice(name string) []string {
	raw := strings.TrimSpace(p[name])
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (p Params) Bool(name string) bool {
	v, _ := strconv.ParseBool(p[name])
	return v
}

func (p Params) Int(name string) int {
	v, _ := strconv.Atoi(p[name])
	return v
}

// ValidateParams checks operator parameters against a module's declared
// options before execution: unknown keys, missing required values, and
// format violations all fail here, never mid-run. Defaults are filled into
// the returned copy.
func ValidateParams(options []*Option, params Params) (Params, error) {
	filled := Params{}
	for k, v := range params {
		if GetOptionByName(k, options) == nil {
			return nil, fmt.Errorf("unrecognized option %q", k)
		}
		filled[k] = v
	}

	for _, opt := range options {
		value, set := filled[opt.Name]
		if !set || value == "" {
			if opt.Required && opt.Default == "" {
				return nil, fmt.Errorf("required option %q is not set", opt.Name)
			}
			if opt.Default != "" {
				filled[opt.Name] = opt.Default
				value = opt.Default
			}
		}

		if value == "" {
			continue
		}

		switch opt.Type {
		case Bool:
			if _, err := strconv.ParseBool(value); err != nil {
				return nil, fmt.Errorf("option %q: %q is not a boolean", opt.Name, value)
			}
		case Int:
			if _, err := strconv.Atoi(value); err != nil {
				return nil, fmt.Errorf("option %q: %q is not an integer", opt.Name, value)
			}
		}

		if opt.ValueFormat != nil && !opt.ValueFormat.MatchString(value) {
			return nil, fmt.Errorf("option %q: value %q does not match expected format %s", opt.Name, value, opt.ValueFormat)
		}
	}

	return filled, nil
}
