package rum

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMissingBundles is returned when a bundles response has no rumBundles key.
var ErrMissingBundles = errors.New("response has no rumBundles")

// Event is one checkpoint of a bundle. Keys the loader does not read are
// kept in Extra and written back out unchanged.
type Event struct {
	Checkpoint string  `json:"checkpoint"`
	Source     string  `json:"source,omitempty"`
	Target     string  `json:"target,omitempty"`
	Value      any     `json:"value,omitempty"`
	TimeDelta  float64 `json:"timeDelta,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var eventFields = []string{"checkpoint", "source", "target", "value", "timeDelta"}

func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range eventFields {
		delete(raw, k)
	}
	if len(raw) > 0 {
		p.Extra = raw
	}

	*e = Event(p)
	return nil
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Extra)+len(eventFields))
	for k, v := range e.Extra {
		out[k] = v
	}
	out["checkpoint"] = e.Checkpoint
	if e.Source != "" {
		out["source"] = e.Source
	}
	if e.Target != "" {
		out["target"] = e.Target
	}
	if e.Value != nil {
		out["value"] = e.Value
	}
	if e.TimeDelta != 0 {
		out["timeDelta"] = e.TimeDelta
	}
	return json.Marshal(out)
}

// Bundle is the RUM record of a single page load. Fields after Events are
// derived by an Enricher and are never sent by the API.
type Bundle struct {
	ID        string    `json:"id"`
	Host      string    `json:"host,omitempty"`
	URL       string    `json:"url"`
	UserAgent string    `json:"userAgent,omitempty"`
	TimeSlot  time.Time `json:"timeSlot"`
	Weight    int       `json:"weight"`
	Events    []Event   `json:"events"`

	Visit   bool     `json:"visit,omitempty"`
	CWVLCP  *float64 `json:"cwvLCP,omitempty"`
	CWVCLS  *float64 `json:"cwvCLS,omitempty"`
	CWVINP  *float64 `json:"cwvINP,omitempty"`
	CWVTTFB *float64 `json:"cwvTTFB,omitempty"`
}

// UnmarshalJSON accepts a fractional weight and rounds it down.
func (b *Bundle) UnmarshalJSON(data []byte) error {
	type plain Bundle
	aux := struct {
		*plain
		Weight *float64 `json:"weight"`
	}{plain: (*plain)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Weight != nil {
		b.Weight = int(math.Floor(*aux.Weight))
	}
	return nil
}

// HasCheckpoint reports whether any event carries the given checkpoint.
func (b *Bundle) HasCheckpoint(checkpoint string) bool {
	for _, e := range b.Events {
		if e.Checkpoint == checkpoint {
			return true
		}
	}
	return false
}

// Result is the outcome of fetching one time bucket.
type Result struct {
	Date    string   `json:"date"`
	Hour    string   `json:"hour,omitempty"`
	Bundles []Bundle `json:"rumBundles"`
}

type bundlesEnvelope struct {
	RumBundles *[]Bundle `json:"rumBundles"`
}

func decodeBundles(body []byte) ([]Bundle, error) {
	var env bundlesEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if env.RumBundles == nil {
		return nil, ErrMissingBundles
	}

	bundles := *env.RumBundles
	for i := range bundles {
		if bundles[i].Weight <= 0 {
			bundles[i].Weight = 1
		}
	}
	return bundles, nil
}

// Enricher adds derived properties to a bundle in place. Implementations
// must be idempotent.
type Enricher interface {
	Enrich(b *Bundle)
}

type EnricherFunc func(b *Bundle)

func (f EnricherFunc) Enrich(b *Bundle) { f(b) }

// CalculatedProps derives visit and Core Web Vitals fields from checkpoints.
type CalculatedProps struct{}

func (CalculatedProps) Enrich(b *Bundle) {
	for i := range b.Events {
		e := &b.Events[i]
		switch e.Checkpoint {
		case "enter":
			b.Visit = true
			if e.Source == "" {
				e.Source = "(direct)"
			}
		case "cwv-lcp":
			b.CWVLCP = maxValue(b.CWVLCP, e.Value)
		case "cwv-cls":
			b.CWVCLS = maxValue(b.CWVCLS, e.Value)
		case "cwv-inp":
			if v, ok := numberValue(e.Value); ok {
				b.CWVINP = &v
			}
		case "cwv-ttfb":
			if v, ok := numberValue(e.Value); ok {
				b.CWVTTFB = &v
			}
		}
	}
}

func maxValue(current *float64, raw any) *float64 {
	v, ok := numberValue(raw)
	if !ok {
		return current
	}
	if current != nil && *current >= v {
		return current
	}
	return &v
}

func numberValue(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
