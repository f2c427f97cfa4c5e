// Package adorn decorates console API calls with the base path, default
// parameters and the serialized request body.
package adorn

import (
	"encoding/json"
	"fmt"
	"time"

	"dario.cat/mergo"
)

const (
	// TimestampKey holds the cache-busting millisecond timestamp.
	TimestampKey = "t"

	ContentTypeJSON = "json"
	ContentTypeForm = "form"
)

// Adorner builds URLs, query parameters and bodies for console API calls.
type Adorner struct {
	baseAPI string
	now     func() time.Time
}

// New returns an Adorner prefixing actions with baseAPI.
func New(baseAPI string) *Adorner {
	return &Adorner{baseAPI: baseAPI, now: time.Now}
}

// WithClock returns a copy of a that reads time from now.
func (a *Adorner) WithClock(now func() time.Time) *Adorner {
	cp := *a
	cp.now = now
	return &cp
}

// BaseAPI returns the configured path prefix.
func (a *Adorner) BaseAPI() string {
	return a.baseAPI
}

// URL joins the base API path and actionName without any normalization.
func (a *Adorner) URL(actionName string) string {
	return a.baseAPI + actionName
}

// Params merges the default timestamp into params when openDefault is set.
// Caller keys win on conflict. The input map is never modified.
func (a *Adorner) Params(params map[string]any, openDefault bool) (map[string]any, error) {
	if params == nil {
		params = map[string]any{}
	}
	if !openDefault {
		return params, nil
	}
	return a.withDefaults(params)
}

// Data merges the default timestamp into data when openDefault is set and
// serializes the result: JSON for ContentTypeJSON, form encoding otherwise.
func (a *Adorner) Data(data map[string]any, openDefault bool, contentType string) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	if openDefault {
		merged, err := a.withDefaults(data)
		if err != nil {
			return "", err
		}
		data = merged
	}

	if contentType == ContentTypeJSON {
		b, err := json.Marshal(data)
		if err != nil {
			return "", fmt.Errorf("adorn: encode json: %w", err)
		}
		return string(b), nil
	}
	return Encode(data), nil
}

func (a *Adorner) withDefaults(src map[string]any) (map[string]any, error) {
	out := map[string]any{TimestampKey: a.now().UnixMilli()}
	// Caller values override defaults even when they are zero or nil.
	if err := mergo.Merge(&out, src, mergo.WithOverride, mergo.WithOverwriteWithEmptyValue); err != nil {
		return nil, fmt.Errorf("adorn: merge defaults: %w", err)
	}
	return out, nil
}
