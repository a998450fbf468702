package storage

import (
	"fmt"
)

// Mode selects which provider a configuration maps to.
type Mode string

// Provider modes.
const (
	ModeProxy     Mode = "proxy"
	ModePresigned Mode = "presigned"
	ModeLocal     Mode = "local"
)

// New builds the provider for the given mode.
func New(mode Mode, opts Options) (Provider, error) {
	switch mode {
	case ModeProxy:
		return NewProxyProvider(opts), nil
	case ModePresigned:
		return NewPresignedProvider(opts), nil
	case ModeLocal:
		return NewLocalProvider(opts), nil
	default:
		return nil, fmt.Errorf("unknown storage mode %q", mode)
	}
}
