package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/Tiliavir/astro-journal/internal/model"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// extractJSON pulls a JSON object out of a loosely formatted reply: the body
// itself, else the first fenced code block, else the outermost braces.
func extractJSON(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if json.Valid(trimmed) {
		return trimmed, nil
	}
	if m := fencedJSON.FindSubmatch(trimmed); m != nil && json.Valid(m[1]) {
		return m[1], nil
	}
	start := bytes.IndexByte(trimmed, '{')
	end := bytes.LastIndexByte(trimmed, '}')
	if start >= 0 && end > start && json.Valid(trimmed[start:end+1]) {
		return trimmed[start : end+1], nil
	}
	return nil, fmt.Errorf("%w: no JSON object in response", ErrEnrichmentUnavailable)
}

// decodeSnapshot parses and validates an enrichment reply.
func decodeSnapshot(body []byte, locationHint string) (model.PlanetaryInfo, error) {
	raw, err := extractJSON(body)
	if err != nil {
		return model.PlanetaryInfo{}, err
	}
	var info model.PlanetaryInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return model.PlanetaryInfo{}, fmt.Errorf("%w: decoding snapshot: %w", ErrEnrichmentUnavailable, err)
	}
	if err := info.Validate(); err != nil {
		return model.PlanetaryInfo{}, fmt.Errorf("%w: %w", ErrEnrichmentUnavailable, err)
	}
	if info.Retrogrades == nil {
		info.Retrogrades = []model.Planet{}
	}
	if info.LocationName == "" {
		info.LocationName = locationHint
	}
	return info, nil
}
