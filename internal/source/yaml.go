package source

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/geotarget/internal/model"
)

// yamlDoc is the document form: a top-level default country and the rows.
type yamlDoc struct {
	Country  string                 `yaml:"country"`
	Mappings []model.AddressMapping `yaml:"mappings"`
}

// ParseYAML reads either a bare list of mappings or a document with a
// "mappings" key.
func ParseYAML(r io.Reader, defaultCountry string) ([]model.AddressMapping, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "source: read yaml")
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, eris.Wrap(err, "source: parse yaml")
	}
	if len(node.Content) == 0 {
		return nil, eris.New("source: empty yaml document")
	}

	var doc yamlDoc
	switch node.Content[0].Kind {
	case yaml.SequenceNode:
		if err := node.Content[0].Decode(&doc.Mappings); err != nil {
			return nil, eris.Wrap(err, "source: decode yaml list")
		}
	case yaml.MappingNode:
		if err := node.Content[0].Decode(&doc); err != nil {
			return nil, eris.Wrap(err, "source: decode yaml document")
		}
	default:
		return nil, eris.New("source: yaml must be a list or a mapping")
	}

	country := strings.TrimSpace(doc.Country)
	if country == "" {
		country = defaultCountry
	}
	out := make([]model.AddressMapping, 0, len(doc.Mappings))
	for _, m := range doc.Mappings {
		if strings.TrimSpace(m.Country) == "" {
			m.Country = country
		}
		out = append(out, m)
	}
	return out, nil
}
