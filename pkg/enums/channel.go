package enums

import "fmt"

// Channel is the traffic classification produced by the normalizer waterfall.
type Channel string

const (
	ChannelPaid          Channel = "paid"
	ChannelOrganicSearch Channel = "organic-search"
	ChannelReferral      Channel = "referral"
	ChannelDirect        Channel = "direct"
)

var validChannels = []Channel{
	ChannelPaid,
	ChannelOrganicSearch,
	ChannelReferral,
	ChannelDirect,
}

// IsValid reports whether the value matches the canonical channel enum.
func (c Channel) IsValid() bool {
	for _, candidate := range validChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseChannel converts the raw string to Channel.
func ParseChannel(value string) (Channel, error) {
	for _, candidate := range validChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid channel %q", value)
}
