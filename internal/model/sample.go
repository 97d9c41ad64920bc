package model

import (
	_ "embed"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed sample_journeys.yaml
var sampleJourneysYAML []byte

// SampleJourneys returns the built-in demo dataset: thirty converting journeys
// across Google, Facebook, Email, Direct and Zalo, including repeated channels,
// long paths and single-touch conversions.
func SampleJourneys() ([]Journey, error) {
	var wrapper struct {
		Journeys []Journey `yaml:"journeys"`
	}
	if err := yaml.Unmarshal(sampleJourneysYAML, &wrapper); err != nil {
		return nil, eris.Wrap(err, "model: parse sample journeys")
	}
	return wrapper.Journeys, nil
}
