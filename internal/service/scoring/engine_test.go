package scoring

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWeights_SumToOne(t *testing.T) {
	w := DefaultWeights()
	assert.InDelta(t, 1.0, w.Sum(), 1e-9)
	assert.Len(t, w.Names(), len(FeatureNames))
	assert.Equal(t, "defaults", w.Source())
}

func TestStealScore_EqualsWeightedSum(t *testing.T) {
	o := makeOffer(t)
	w := DefaultWeights()
	engine := NewEngine(w)

	expected := 20.0*w.Get(FeatureDiscountPct) +
		(1-80.0/150)*100*w.Get(FeatureAbsolutePriceScore) +
		(8.0/10*60+4.0/5*40)*w.Get(FeatureHotelQuality) +
		((1-360.0/720)*80+20)*w.Get(FeatureFlightComfort) +
		(1-10.0/30)*100*w.Get(FeatureUrgencyScore) +
		(1-3.0/24)*100*w.Get(FeatureNoveltyScore) +
		(40+(1-80.0/150)*30+30)*w.Get(FeatureCategoryMatch)

	assert.InDelta(t, expected, engine.StealScore(o, testPrefs(), fixedNow), 1e-9)
}

func TestStealScore_NoPreferencesUsesAvgPrice(t *testing.T) {
	o := makeOffer(t)
	engine := NewEngine(DefaultWeights())

	b := engine.Breakdown(o, nil, fixedNow)
	assert.Equal(t, 100.0, b.PriceLimit)
	require.Len(t, b.Features, len(FeatureNames))

	sum := 0.0
	for _, f := range b.Features {
		assert.GreaterOrEqual(t, f.Value, 0.0)
		assert.LessOrEqual(t, f.Value, 100.0)
		assert.InDelta(t, f.Value*f.Weight, f.Contribution, 1e-12)
		sum += f.Contribution
	}
	assert.InDelta(t, sum, b.Total, 1e-9)
	assert.Equal(t, b.Total, engine.StealScore(o, nil, fixedNow))
}

func TestStealScore_Clamped(t *testing.T) {
	o := makeOffer(t)

	high := NewEngine(NewWeights(map[string]float64{FeatureDiscountPct: 50}))
	assert.Equal(t, 100.0, high.StealScore(o, nil, fixedNow))

	negative := NewEngine(NewWeights(map[string]float64{FeatureHotelQuality: -10}))
	assert.Equal(t, 0.0, negative.StealScore(o, nil, fixedNow))
}

func TestStealScore_MissingWeightIsZero(t *testing.T) {
	o := makeOffer(t)
	engine := NewEngine(Weights{values: map[string]float64{FeatureDiscountPct: 1}})
	assert.InDelta(t, 20.0, engine.StealScore(o, nil, fixedNow), 1e-9)
}

func TestStealScore_UsesGivenTime(t *testing.T) {
	o := makeOffer(t)
	engine := NewEngine(NewWeights(map[string]float64{
		FeatureDiscountPct:        0,
		FeatureAbsolutePriceScore: 0,
		FeatureHotelQuality:       0,
		FeatureFlightComfort:      0,
		FeatureCategoryMatch:      0,
		FeatureUrgencyScore:       0.5,
		FeatureNoveltyScore:       0.5,
	}))

	assert.Equal(t, engine.StealScore(o, nil, fixedNow), engine.StealScore(o, nil, fixedNow),
		"same instant, same score")
	assert.Greater(t, engine.StealScore(o, nil, fixedNow), engine.StealScore(o, nil, fixedNow.Add(12*time.Hour)),
		"older offers lose novelty")
}

func TestLoadWeights(t *testing.T) {
	dir := t.TempDir()
	goodFile := filepath.Join(dir, "weights.json")
	require.NoError(t, os.WriteFile(goodFile, []byte(`{"hotel_quality": 0.5}`), 0o644))
	badFile := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badFile, []byte(`{not json`), 0o644))

	t.Run("defaults", func(t *testing.T) {
		w := LoadWeights("", "")
		assert.Equal(t, DefaultWeights().Map(), w.Map())
	})

	t.Run("inline merges over defaults", func(t *testing.T) {
		w := LoadWeights(`{"discount_pct": 0.9}`, goodFile)
		assert.Equal(t, 0.9, w.Get(FeatureDiscountPct))
		assert.Equal(t, 0.20, w.Get(FeatureHotelQuality), "file must not stack on inline")
		assert.Equal(t, "inline", w.Source())
	})

	t.Run("malformed inline falls through to file", func(t *testing.T) {
		w := LoadWeights(`{"discount_pct": "high"}`, goodFile)
		assert.Equal(t, 0.5, w.Get(FeatureHotelQuality))
		assert.Equal(t, 0.25, w.Get(FeatureDiscountPct))
		assert.Equal(t, "file:"+goodFile, w.Source())
	})

	t.Run("malformed file falls through to defaults", func(t *testing.T) {
		w := LoadWeights("", badFile)
		assert.Equal(t, DefaultWeights().Map(), w.Map())
	})

	t.Run("missing file falls through to defaults", func(t *testing.T) {
		w := LoadWeights("[1,2]", filepath.Join(dir, "nope.json"))
		assert.Equal(t, "defaults", w.Source())
	})

	t.Run("unknown feature is kept", func(t *testing.T) {
		w := LoadWeights(`{"beach_bonus": 0.3}`, "")
		assert.Equal(t, 0.3, w.Get("beach_bonus"))
	})
}

func TestWeights_MapIsCopy(t *testing.T) {
	w := DefaultWeights()
	m := w.Map()
	m[FeatureDiscountPct] = 99
	assert.Equal(t, 0.25, w.Get(FeatureDiscountPct))
}

func TestParseWeights_Null(t *testing.T) {
	_, err := ParseWeights([]byte("null"))
	assert.Error(t, err)
}
