package schema

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/tradedocs/constants"
)

//go:embed schemas.yaml
var builtinYAML []byte

// Config is the static extraction configuration for one document type: the
// field schema plus the domain instructions given to the generator.
type Config struct {
	Type      constants.DocumentType
	ErrorKind constants.ErrorKind
	Role      string
	Label     string
	Purpose   []string
	Rules     []string
	Schema    *FieldSchema
}

type rawConfig struct {
	Type      string    `yaml:"type"`
	ErrorKind string    `yaml:"error_kind"`
	Role      string    `yaml:"role"`
	Label     string    `yaml:"label"`
	Purpose   []string  `yaml:"purpose"`
	Rules     []string  `yaml:"rules"`
	Fields    yaml.Node `yaml:"fields"`
}

var loadBuiltin = sync.OnceValues(func() (map[constants.DocumentType]Config, error) {
	return Parse(builtinYAML)
})

// Builtin returns the embedded configuration for every document type. The
// result is shared and must be treated as read-only.
func Builtin() (map[constants.DocumentType]Config, error) {
	return loadBuiltin()
}

// Parse decodes a schema document and checks that every document type is
// configured exactly once.
func Parse(data []byte) (map[constants.DocumentType]Config, error) {
	var raws []rawConfig
	if err := yaml.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("schema: decode yaml: %w", err)
	}

	out := make(map[constants.DocumentType]Config, len(raws))
	for _, rc := range raws {
		dt, ok := constants.ParseDocumentType(rc.Type)
		if !ok {
			return nil, fmt.Errorf("schema: unknown document type %q", rc.Type)
		}
		if _, dup := out[dt]; dup {
			return nil, fmt.Errorf("schema: %s configured twice", dt)
		}
		if rc.ErrorKind == "" {
			return nil, fmt.Errorf("schema: %s has no error_kind", dt)
		}
		fs, err := fieldsFromNode(&rc.Fields, string(dt))
		if err != nil {
			return nil, err
		}
		if fs.Len() == 0 {
			return nil, fmt.Errorf("schema: %s has no fields", dt)
		}
		out[dt] = Config{
			Type:      dt,
			ErrorKind: constants.ErrorKind(rc.ErrorKind),
			Role:      rc.Role,
			Label:     rc.Label,
			Purpose:   rc.Purpose,
			Rules:     rc.Rules,
			Schema:    fs,
		}
	}

	for _, dt := range constants.AllDocumentTypes() {
		if _, ok := out[dt]; !ok {
			return nil, fmt.Errorf("schema: no configuration for %s", dt)
		}
	}
	return out, nil
}

// fieldsFromNode walks a YAML mapping in document order. Mapping values
// become nested schemas.
func fieldsFromNode(n *yaml.Node, path string) (*FieldSchema, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("schema: %s: fields must be a mapping", path)
	}
	fields := make([]Field, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		name := key.Value
		fp := path + "." + name

		f := Field{Name: name}
		switch {
		case val.Kind == yaml.MappingNode:
			nested, err := fieldsFromNode(val, fp)
			if err != nil {
				return nil, err
			}
			f.Kind, f.Nested = KindObject, nested
		case val.Kind == yaml.SequenceNode && len(val.Content) == 0:
			f.Kind = KindSequence
		case val.Kind == yaml.ScalarNode && val.ShortTag() == "!!null":
			f.Kind = KindNull
		case val.Kind == yaml.ScalarNode && val.ShortTag() == "!!bool" && val.Value == "false":
			f.Kind = KindFalse
		default:
			return nil, fmt.Errorf("schema: %s: default must be null, false, [] or a mapping", fp)
		}
		fields = append(fields, f)
	}
	fs, err := New(fields...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fs, nil
}
