package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Journey is one customer's ordered path of marketing touchpoints ending in a
// conversion. Steps are earliest first; the last step is the converting channel.
type Journey struct {
	ID                string   `json:"id" yaml:"id"`
	Steps             []string `json:"steps" yaml:"steps"`
	ConversionChannel string   `json:"conversion_channel,omitempty" yaml:"conversion_channel,omitempty"`
	Revenue           float64  `json:"revenue,omitempty" yaml:"revenue,omitempty"`
}

// Empty reports whether the journey has no touchpoints.
func (j Journey) Empty() bool {
	return len(j.Steps) == 0
}

// Converter returns the channel that closed the conversion. Falls back to the
// last step when ConversionChannel is unset.
func (j Journey) Converter() string {
	if j.ConversionChannel != "" {
		return j.ConversionChannel
	}
	if len(j.Steps) == 0 {
		return ""
	}
	return j.Steps[len(j.Steps)-1]
}

// Value returns the conversion value used for revenue attribution. A journey
// without a positive revenue counts as a single unit conversion.
func (j Journey) Value() float64 {
	if j.Revenue > 0 {
		return j.Revenue
	}
	return 1
}

// Normalized returns a copy with channel names normalized and blank steps
// removed. The receiver is not modified.
func (j Journey) Normalized() Journey {
	out := Journey{
		ID:                strings.TrimSpace(j.ID),
		ConversionChannel: NormalizeChannel(j.ConversionChannel),
		Revenue:           j.Revenue,
	}
	if len(j.Steps) > 0 {
		out.Steps = make([]string, 0, len(j.Steps))
	}
	for _, s := range j.Steps {
		if c := NormalizeChannel(s); c != "" {
			out.Steps = append(out.Steps, c)
		}
	}
	return out
}

// NormalizeChannel trims whitespace and applies Unicode NFC so that composed and
// decomposed spellings of the same channel name compare equal.
func NormalizeChannel(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// JourneySummary counts what a batch of journeys contains.
type JourneySummary struct {
	Journeys    int `json:"journeys"`
	Skipped     int `json:"skipped"`
	Touchpoints int `json:"touchpoints"`
	Channels    int `json:"channels"`
}

// Summarize counts journeys, empty (skipped) journeys, touchpoints and distinct
// channels in a batch.
func Summarize(journeys []Journey) JourneySummary {
	var s JourneySummary
	channels := make(map[string]struct{})
	for _, j := range journeys {
		if j.Empty() {
			s.Skipped++
			continue
		}
		s.Journeys++
		s.Touchpoints += len(j.Steps)
		for _, c := range j.Steps {
			channels[c] = struct{}{}
		}
	}
	s.Channels = len(channels)
	return s
}
