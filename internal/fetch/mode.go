package fetch

import (
	"fmt"
	"strings"

	"sjsage522/pricecompare/internal/pricing"
)

// Mode selects how a source's pages are retrieved
type Mode string

const (
	// ModeDirect is a plain HTTP GET with browser-like headers
	ModeDirect Mode = "direct"
	// ModeRelay goes through a scraping relay service
	ModeRelay Mode = "relay"
	// ModeRelayJS goes through the relay with JavaScript rendering enabled
	ModeRelayJS Mode = "relay-js"
	// ModeRender drives a headless Chrome tab
	ModeRender Mode = "render"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeDirect, ModeRelay, ModeRelayJS, ModeRender:
		return m, nil
	case "":
		return ModeDirect, nil
	default:
		return "", fmt.Errorf("unknown fetch mode %q", s)
	}
}

// UsesRelay reports whether the mode needs relay credentials
func (m Mode) UsesRelay() bool {
	return m == ModeRelay || m == ModeRelayJS
}

// Fetchers holds one fetcher per mode. A nil entry means the mode is not
// available in this deployment.
type Fetchers struct {
	Direct  pricing.Fetcher
	Relay   pricing.Fetcher
	RelayJS pricing.Fetcher
	Render  pricing.Fetcher
}

// For returns the fetcher serving mode
func (f Fetchers) For(mode Mode) (pricing.Fetcher, error) {
	var fetcher pricing.Fetcher
	switch mode {
	case ModeDirect:
		fetcher = f.Direct
	case ModeRelay:
		fetcher = f.Relay
	case ModeRelayJS:
		fetcher = f.RelayJS
	case ModeRender:
		fetcher = f.Render
	default:
		return nil, fmt.Errorf("unknown fetch mode %q", mode)
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetch mode %q is not configured", mode)
	}
	return fetcher, nil
}
