// Content-addressed digest of a normalized span sequence
// Byte-identical input always produces an identical digest
package expect

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
	"github.com/spanproof/spanproof/pkg/spans"
)

// digestRecord is the normalized wire form hashed for the report digest.
// Field order and map-key order are fixed by JSON canonicalisation.
type digestRecord struct {
	Name               string         `json:"name"`
	TraceID            string         `json:"trace_id"`
	SpanID             string         `json:"span_id"`
	ParentSpanID       string         `json:"parent_span_id,omitempty"`
	Attributes         map[string]any `json:"attributes,omitempty"`
	ResourceAttributes map[string]any `json:"resource_attributes,omitempty"`
	StartTimeUnixNano  uint64         `json:"start_time_unix_nano,omitempty"`
	EndTimeUnixNano    uint64         `json:"end_time_unix_nano,omitempty"`
	Kind               string         `json:"kind,omitempty"`
	Events             []string       `json:"events,omitempty"`
}

// Digest computes the SHA-256 hex digest of the canonical JSON (RFC 8785)
// encoding of the span sequence. Collaborators use it for reproducibility
// checks and result caching.
func Digest(records []spans.Record) (string, error) {
	normalized := make([]digestRecord, 0, len(records))
	for i := range records {
		rec := &records[i]
		norm := digestRecord{
			Name:               rec.Name,
			TraceID:            rec.TraceID,
			SpanID:             rec.SpanID,
			ParentSpanID:       rec.ParentSpanID,
			Attributes:         rec.Attributes,
			ResourceAttributes: rec.ResourceAttributes,
			StartTimeUnixNano:  rec.StartTimeUnixNano,
			EndTimeUnixNano:    rec.EndTimeUnixNano,
			Events:             rec.Events,
		}
		if rec.Kind != spans.KindUnspecified {
			norm.Kind = rec.Kind.String()
		}
		normalized = append(normalized, norm)
	}

	encoded, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("encoding spans for digest: %w", err)
	}
	canonical, err := jcs.Transform(encoded)
	if err != nil {
		return "", fmt.Errorf("canonicalising spans for digest: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
