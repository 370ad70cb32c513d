package fusion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelscout/discovery-cli/internal/model"
)

func fixedRanker(limit int) *Ranker {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	return New(DefaultWeights(), limit).WithNow(func() time.Time { return now })
}

func TestFuse_CorroborationNeverDecreasesConfidence(t *testing.T) {
	raw := map[string][]model.RawResult{
		"tmdb":  {{CanonicalID: "tt1375666", Title: "Inception", Confidence: 60}},
		"trakt": {{CanonicalID: "tt1375666", Title: "Inception", Confidence: 80}},
	}

	out := fixedRanker(0).Fuse(raw, 0)
	require.Len(t, out, 1)
	assert.InDelta(t, 80, out[0].Confidence, 0.001)
	assert.Equal(t, []string{"tmdb", "trakt"}, out[0].Sources)
}

func TestFuse_MaxCulturalRelevance(t *testing.T) {
	raw := map[string][]model.RawResult{
		"a": {{CanonicalID: "x", CulturalRelevance: 70}},
		"b": {{CanonicalID: "x", CulturalRelevance: 30}},
	}
	out := fixedRanker(0).Fuse(raw, 0)
	require.Len(t, out, 1)
	assert.InDelta(t, 70, out[0].CulturalRelevance, 0.001)
}

func TestFuse_RatingsAreAveraged(t *testing.T) {
	raw := map[string][]model.RawResult{
		"a": {{CanonicalID: "x", Rating: 8.0}},
		"b": {{CanonicalID: "x", Rating: 9.0}},
	}
	out := fixedRanker(0).Fuse(raw, 0)
	require.Len(t, out, 1)
	assert.InDelta(t, 8.5, out[0].Rating, 0.001)
}

func TestFuse_MalformedDroppedSilently(t *testing.T) {
	raw := map[string][]model.RawResult{
		"a": {
			{CanonicalID: "", Title: "no id"},
			{CanonicalID: "tt1", Title: "kept", Confidence: 50},
		},
	}
	out := fixedRanker(0).Fuse(raw, 0)
	require.Len(t, out, 1)
	assert.Equal(t, "kept", out[0].Title)
}

func TestFuse_CanonicalKeyCosmetic(t *testing.T) {
	// Same id modulo case and diacritics merges into one entity.
	raw := map[string][]model.RawResult{
		"a": {{CanonicalID: "Amélie-2001", Confidence: 50}},
		"b": {{CanonicalID: "amelie-2001", Confidence: 70}},
	}
	out := fixedRanker(0).Fuse(raw, 0)
	require.Len(t, out, 1)
	assert.InDelta(t, 70, out[0].Confidence, 0.001)
	assert.Len(t, out[0].Sources, 2)
}

func TestFuse_CorroborationBonusCapped(t *testing.T) {
	r := fixedRanker(0)

	one := map[string][]model.RawResult{
		"a": {{CanonicalID: "x", Confidence: 50}},
	}
	five := map[string][]model.RawResult{}
	for _, sid := range []string{"a", "b", "c", "d", "e"} {
		five[sid] = []model.RawResult{{CanonicalID: "x", Confidence: 50}}
	}

	soloScore := r.Fuse(one, 0)[0].Score
	fusedScore := r.Fuse(five, 0)[0].Score
	// 5 sources would earn 25 points uncapped; the cap holds it to 20.
	assert.InDelta(t, soloScore+15, fusedScore, 0.001)
}

func TestFuse_RecencyBonusFloorsAtZero(t *testing.T) {
	r := fixedRanker(0) // now = 2026

	raw := func(year int) map[string][]model.RawResult {
		return map[string][]model.RawResult{
			"a": {{CanonicalID: "x", ReleaseYear: year}},
		}
	}

	current := r.Fuse(raw(2026), 0)[0].Score
	old := r.Fuse(raw(1990), 0)[0].Score
	// 36-year-old release would be -13 without the floor.
	assert.InDelta(t, current-5, old, 0.001)

	twoYears := r.Fuse(raw(2024), 0)[0].Score
	assert.InDelta(t, current-1, twoYears, 0.001)
}

func TestFuse_CompositeScore(t *testing.T) {
	raw := map[string][]model.RawResult{
		"tmdb": {{
			CanonicalID:       "tt1",
			Popularity:        80,
			Rating:            9.0,
			Confidence:        90,
			CulturalRelevance: 60,
			TrendingScore:     40,
			ReleaseYear:       2025,
		}},
	}
	out := fixedRanker(0).Fuse(raw, 0)
	require.Len(t, out, 1)
	// 0.30*80 + 0.25*90 + 0.20*90 + 0.15*60 + 0.10*40 + 5 + (5 - 0.5*1)
	want := 24.0 + 22.5 + 18.0 + 9.0 + 4.0 + 5.0 + 4.5
	assert.InDelta(t, want, out[0].Score, 0.001)
}

func TestFuse_DeterministicOrder(t *testing.T) {
	raw := map[string][]model.RawResult{
		"a": {
			{CanonicalID: "tt3", Confidence: 50},
			{CanonicalID: "tt1", Confidence: 50},
		},
		"b": {
			{CanonicalID: "tt2", Confidence: 50},
			{CanonicalID: "tt1", Confidence: 50},
		},
	}

	r := fixedRanker(0)
	first := r.Fuse(raw, 0)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, r.Fuse(raw, 0))
	}

	// tt1 has two sources, so it outranks; tt2/tt3 tie on score and a single
	// source each, broken by id ascending.
	require.Len(t, first, 3)
	assert.Equal(t, "tt1", first[0].CanonicalID)
	assert.Equal(t, "tt2", first[1].CanonicalID)
	assert.Equal(t, "tt3", first[2].CanonicalID)
}

func TestFuse_TopNLimit(t *testing.T) {
	raw := map[string][]model.RawResult{"a": {}}
	for i := 0; i < 30; i++ {
		raw["a"] = append(raw["a"], model.RawResult{
			CanonicalID: string(rune('a'+i%26)) + string(rune('0'+i/26)),
			Confidence:  float64(i),
		})
	}

	assert.Len(t, fixedRanker(0).Fuse(raw, 0), DefaultLimit)
	assert.Len(t, fixedRanker(0).Fuse(raw, 5), 5)
	assert.Len(t, fixedRanker(3).Fuse(raw, 0), 3)
}

func TestFuse_EnrichmentBlocksMerged(t *testing.T) {
	raw := map[string][]model.RawResult{
		"justwatch": {{
			CanonicalID:  "tt1",
			Availability: []model.Availability{{Region: "US", Service: "netflix", Kind: "stream"}},
		}},
		"fandango": {{
			CanonicalID: "tt1",
			Showtimes:   []model.Showtime{{Region: "US", Theater: "AMC 12"}},
			Ratings:     &model.RatingsConsensus{CriticScore: 87, ReviewCount: 310},
		}},
	}

	out := fixedRanker(0).Fuse(raw, 0)
	require.Len(t, out, 1)
	assert.Len(t, out[0].Availability, 1)
	assert.Len(t, out[0].Showtimes, 1)
	require.NotNil(t, out[0].Ratings)
	assert.InDelta(t, 87, out[0].Ratings.CriticScore, 0.001)
}

func TestFuse_EmptyInput(t *testing.T) {
	assert.Empty(t, fixedRanker(0).Fuse(nil, 0))
	assert.Empty(t, fixedRanker(0).Fuse(map[string][]model.RawResult{"a": {}}, 0))
}

func TestCanonicalKey(t *testing.T) {
	assert.Equal(t, "tt123", canonicalKey(" TT123 "))
	assert.Equal(t, "amelie", canonicalKey("Amélie"))
	assert.Equal(t, "", canonicalKey("   "))
}
