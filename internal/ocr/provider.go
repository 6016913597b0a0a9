// Package ocr abstracts the optical-recognition collaborator. Providers take
// a rendered page raster (PNG bytes) and return recognized text with a
// confidence percentage in [0,100].
package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type Result struct {
	Text       string
	Confidence float64
}

type Provider interface {
	Name() string
	Recognize(ctx context.Context, png []byte) (*Result, error)
}

type Factory func(args interface{}) (Provider, error)

var registry = map[string]Factory{}

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ocr.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ocr provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ocr provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ocr provider config: %w", err)
	}
	return nil
}
