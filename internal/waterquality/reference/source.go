// Package reference loads the labeled reference dataset the forecaster fits
// its per-category models on.
package reference

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality"
)

// Source fetches the raw reference samples.
type Source interface {
	// Name identifies the source in logs and cache status.
	Name() string

	// LoadSamples returns every sample of the dataset.
	LoadSamples(ctx context.Context) ([]waterquality.ReferenceSample, error)
}

// FileSource reads a JSON array of samples from disk on every load.
type FileSource struct {
	Path string
}

// Name implements Source.
func (s FileSource) Name() string {
	return "file:" + s.Path
}

// LoadSamples implements Source.
func (s FileSource) LoadSamples(ctx context.Context) ([]waterquality.ReferenceSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read reference file: %w", err)
	}

	var samples []waterquality.ReferenceSample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("decode reference file %s: %w", s.Path, err)
	}
	return samples, nil
}

// JSONGetter fetches and decodes a JSON document. *resilience.Client
// satisfies it.
type JSONGetter interface {
	GetJSON(ctx context.Context, url string, v any) error
}

// HTTPSource fetches the dataset as a JSON array from a URL.
type HTTPSource struct {
	url    string
	client JSONGetter
}

// NewHTTPSource creates an HTTPSource.
func NewHTTPSource(url string, client JSONGetter) *HTTPSource {
	return &HTTPSource{url: url, client: client}
}

// Name implements Source.
func (s *HTTPSource) Name() string {
	return "http:" + s.url
}

// LoadSamples implements Source.
func (s *HTTPSource) LoadSamples(ctx context.Context) ([]waterquality.ReferenceSample, error) {
	var samples []waterquality.ReferenceSample
	if err := s.client.GetJSON(ctx, s.url, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}
