package schema

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/formworks/formfill-cli/internal/model"
)

// fileSchema is the YAML wire form of a form definition.
type fileSchema struct {
	Form   string      `yaml:"form"`
	Fields []fileField `yaml:"fields"`
}

type fileField struct {
	ID        string   `yaml:"id"`
	Label     string   `yaml:"label"`
	Type      string   `yaml:"type"`
	Format    string   `yaml:"format,omitempty"`
	Choices   []string `yaml:"choices,omitempty"`
	Pattern   string   `yaml:"pattern,omitempty"`
	MaxLength int      `yaml:"max_length,omitempty"`
	Required  bool     `yaml:"required,omitempty"`
	Hints     string   `yaml:"hints,omitempty"`
	Cell      string   `yaml:"cell,omitempty"`
}

// LoadYAML reads a form schema from a YAML definition file and validates it.
func LoadYAML(path string) (*model.FormSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "schema: read %s", path)
	}
	s, err := ParseYAML(data)
	if err != nil {
		return nil, eris.Wrapf(err, "schema: %s", path)
	}
	return s, nil
}

// ParseYAML parses a YAML form definition. The returned schema has passed
// FormSchema.Validate, so constraint patterns are compiled and field ids
// are known to be unique.
func ParseYAML(data []byte) (*model.FormSchema, error) {
	var raw fileSchema
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "schema: parse yaml")
	}

	s := &model.FormSchema{Name: raw.Form}
	for _, f := range raw.Fields {
		fd := model.FieldDescriptor{
			ID:           f.ID,
			Label:        f.Label,
			ExpectedType: model.FieldType(f.Type),
			ContextHints: f.Hints,
			Required:     f.Required,
			CellRef:      f.Cell,
		}
		if f.Format != "" || len(f.Choices) > 0 || f.Pattern != "" || f.MaxLength > 0 {
			fd.Constraints = &model.Constraints{
				Format:    f.Format,
				Choices:   f.Choices,
				Pattern:   f.Pattern,
				MaxLength: f.MaxLength,
			}
		}
		s.Fields = append(s.Fields, fd)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
