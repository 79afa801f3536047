package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/rs/zerolog/log"
)

// Weights is an immutable feature → weight table.
type Weights struct {
	values map[string]float64
	source string
}

// DefaultWeights returns the built-in table (sums to 1.0).
func DefaultWeights() Weights {
	return Weights{
		values: map[string]float64{
			FeatureDiscountPct:        0.25,
			FeatureAbsolutePriceScore: 0.20,
			FeatureHotelQuality:       0.20,
			FeatureFlightComfort:      0.15,
			FeatureUrgencyScore:       0.05,
			FeatureNoveltyScore:       0.05,
			FeatureCategoryMatch:      0.10,
		},
		source: "defaults",
	}
}

// NewWeights builds a table from explicit values, merged over the defaults.
func NewWeights(overrides map[string]float64) Weights {
	return DefaultWeights().merge(overrides, "explicit")
}

// Get returns the weight of name, 0 when the table has no entry.
func (w Weights) Get(name string) float64 {
	return w.values[name]
}

// Map returns a copy of the table.
func (w Weights) Map() map[string]float64 {
	out := make(map[string]float64, len(w.values))
	for k, v := range w.values {
		out[k] = v
	}
	return out
}

// Names returns the table keys, sorted.
func (w Weights) Names() []string {
	names := make([]string, 0, len(w.values))
	for k := range w.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Source tells where the table came from: "inline", "file:<path>" or "defaults".
func (w Weights) Source() string {
	return w.source
}

// Sum of all weights
func (w Weights) Sum() float64 {
	total := 0.0
	for _, v := range w.values {
		total += v
	}
	return total
}

func (w Weights) merge(overrides map[string]float64, source string) Weights {
	values := w.Map()
	for k, v := range overrides {
		values[k] = v
	}
	return Weights{values: values, source: source}
}

// LoadWeights resolves the weight table.
// Precedence: inline JSON > JSON file at path > defaults. A malformed
// source is ignored and the next one is tried.
func LoadWeights(inlineJSON, path string) Weights {
	defaults := DefaultWeights()

	if inlineJSON != "" {
		overrides, err := ParseWeights([]byte(inlineJSON))
		if err == nil {
			return defaults.merge(overrides, "inline")
		}
		log.Warn().Err(err).Msg("Ignoring malformed inline weight override")
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Ignoring unreadable weight file")
			return defaults
		}
		overrides, err := ParseWeights(data)
		if err == nil {
			return defaults.merge(overrides, "file:"+path)
		}
		log.Warn().Err(err).Str("path", path).Msg("Ignoring malformed weight file")
	}

	return defaults
}

// ParseWeights decodes a JSON object of feature name → number.
func ParseWeights(data []byte) (map[string]float64, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode weights: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("decode weights: not a JSON object")
	}

	out := make(map[string]float64, len(raw))
	for name, msg := range raw {
		var v float64
		if err := json.Unmarshal(msg, &v); err != nil {
			return nil, fmt.Errorf("weight %q: %w", name, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("weight %q: not finite", name)
		}
		out[name] = v
	}
	return out, nil
}
