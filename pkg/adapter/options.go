package adapter

import (
	"fmt"
	"slices"
)

// OptionKind tells the host how to collect an option value.
type OptionKind int

const (
	// OptionText is a free-form string.
	OptionText OptionKind = iota
	// OptionPath is a filesystem path.
	OptionPath
	// OptionSelect is one of a fixed set of choices.
	OptionSelect
)

func (k OptionKind) String() string {
	switch k {
	case OptionText:
		return "text"
	case OptionPath:
		return "path"
	case OptionSelect:
		return "select"
	}
	return fmt.Sprintf("OptionKind(%d)", int(k))
}

// Option declares a named setting the adapter accepts at construction time.
type Option struct {
	Name        string
	Description string
	Kind        OptionKind
	// ShortDecls are extra command-line spellings, e.g. "-h".
	ShortDecls []string
	Default    string
	Choices    []string
	// Validator returns a message when value is unacceptable.
	Validator func(value string) (ok bool, msg string)
}

// Validate checks value against the declared choices and validator.
// Empty values are always accepted.
func (o Option) Validate(value string) error {
	if value == "" {
		return nil
	}
	if o.Kind == OptionSelect && len(o.Choices) > 0 && !slices.Contains(o.Choices, value) {
		return fmt.Errorf("invalid value %q for %s: must be one of %v", value, o.Name, o.Choices)
	}
	if o.Validator != nil {
		if ok, msg := o.Validator(value); !ok {
			return fmt.Errorf("invalid value for %s: %s", o.Name, msg)
		}
	}
	return nil
}

// Completion is one autocomplete candidate.
type Completion struct {
	Label     string
	TypeLabel string
	Value     string
	// Priority sorts ascending: lower values are offered first.
	Priority int
	// Context is an optional qualifier such as a schema name.
	Context string
}
