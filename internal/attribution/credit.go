package attribution

import (
	"sort"
)

// CreditMap holds the accumulated conversion credit per channel.
type CreditMap map[string]float64

// ChannelCredit is a single CreditMap entry.
type ChannelCredit struct {
	Channel string  `json:"channel"`
	Credit  float64 `json:"credit"`
}

// Total returns the sum of all credit in the map.
func (c CreditMap) Total() float64 {
	var total float64
	for _, v := range c {
		total += v
	}
	return total
}

// Channels returns the channel names sorted alphabetically.
func (c CreditMap) Channels() []string {
	out := make([]string, 0, len(c))
	for ch := range c {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// Ranked returns the entries ordered by credit descending, ties broken by
// channel name.
func (c CreditMap) Ranked() []ChannelCredit {
	out := make([]ChannelCredit, 0, len(c))
	for ch, v := range c {
		out = append(out, ChannelCredit{Channel: ch, Credit: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Credit != out[j].Credit {
			return out[i].Credit > out[j].Credit
		}
		return out[i].Channel < out[j].Channel
	})
	return out
}

// Share returns channel's fraction of the map total, or 0 for an empty map.
func (c CreditMap) Share(channel string) float64 {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return c[channel] / total
}
