package ingest

import (
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/attribution-cli/internal/model"
)

// decodeYAML accepts either a top-level "journeys:" key or a bare list.
func decodeYAML(r io.Reader) ([]model.Journey, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return []model.Journey{}, nil
		}
		return nil, eris.Wrap(err, "ingest: parse yaml")
	}

	var journeys []model.Journey
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}

	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&journeys); err != nil {
			return nil, eris.Wrap(err, "ingest: decode yaml journeys")
		}
	case yaml.MappingNode:
		var wrapper struct {
			Journeys []model.Journey `yaml:"journeys"`
		}
		if err := root.Decode(&wrapper); err != nil {
			return nil, eris.Wrap(err, "ingest: decode yaml journeys")
		}
		journeys = wrapper.Journeys
	default:
		return nil, eris.New("ingest: yaml must be a list or have a journeys key")
	}

	if journeys == nil {
		journeys = []model.Journey{}
	}
	return finish(journeys)
}
