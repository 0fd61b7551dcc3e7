package resource

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

type FieldKind int

const (
	KindString FieldKind = iota
	KindInteger
)

func (k FieldKind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	default:
		return "string"
	}
}

type Field struct {
	Name     string
	Kind     FieldKind
	Required bool
}

// Schema describes the attribute set of one resource type. Name doubles as
// the URL segment and the SQL table name.
type Schema struct {
	Name   string
	Fields []Field
}

var (
	Food = Schema{
		Name: "food",
		Fields: []Field{
			{Name: "name", Kind: KindString, Required: true},
			{Name: "calories", Kind: KindInteger},
			{Name: "type", Kind: KindString},
		},
	}

	Clothes = Schema{
		Name: "clothes",
		Fields: []Field{
			{Name: "name", Kind: KindString, Required: true},
			{Name: "color", Kind: KindString},
			{Name: "size", Kind: KindString},
		},
	}
)

// Schemas returns the resource types served by the API.
func Schemas() []Schema {
	return []Schema{Food, Clothes}
}

func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (s Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Attributes validates a decoded JSON payload against the schema. Keys that
// are not schema fields are dropped. When partial is false every required
// field must be present.
func (s Schema) Attributes(payload map[string]any, partial bool) (Attributes, error) {
	out := make(Attributes, len(s.Fields))
	var problems []FieldProblem

	for _, f := range s.Fields {
		raw, ok := payload[f.Name]
		if !ok || raw == nil {
			if f.Required && !partial {
				problems = append(problems, FieldProblem{Field: f.Name, Rule: "required", Message: "is required"})
			}
			if ok && !f.Required {
				out[f.Name] = nil
			}
			continue
		}

		v, err := coerce(f, raw)
		if err != nil {
			problems = append(problems, FieldProblem{Field: f.Name, Rule: "type", Message: err.Error()})
			continue
		}
		out[f.Name] = v
	}

	if len(problems) > 0 {
		sort.Slice(problems, func(i, j int) bool { return problems[i].Field < problems[j].Field })
		return nil, &ValidationError{Problems: problems}
	}
	return out, nil
}

func coerce(f Field, raw any) (any, error) {
	switch f.Kind {
	case KindInteger:
		switch n := raw.(type) {
		case float64:
			// float64 bounds of int64; 1<<63 itself is out of range
			if n != math.Trunc(n) || n < -(1<<63) || n >= 1<<63 {
				return nil, fmt.Errorf("must be of type %s", f.Kind)
			}
			return int64(n), nil
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		}
	default:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("must be of type %s", f.Kind)
}

type FieldProblem struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message,omitempty"`
}

type ValidationError struct {
	Problems []FieldProblem
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.Field + " " + p.Message
	}
	return "invalid attributes: " + strings.Join(parts, "; ")
}
