package matching

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pawhub/internal/domain/geo"
	"pawhub/internal/domain/profiles"
	"pawhub/internal/domain/tags"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGeo struct {
	items      []profiles.Located
	err        error
	lastRadius float64
}

func (f *fakeGeo) Within(ctx context.Context, center geo.Point, radiusKm float64, filter profiles.Filter) ([]profiles.Located, error) {
	f.lastRadius = radiusKm
	if f.err != nil {
		return nil, f.err
	}
	out := make([]profiles.Located, 0)
	for _, l := range f.items {
		if l.DistanceKm <= radiusKm && filter.Allows(l.Profile.Type) {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeEmb struct {
	scores map[string]float64
	err    error
	calls  int
}

func (f *fakeEmb) BestMatches(ctx context.Context, query []float64, ids []string) (map[string]ImageMatch, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]ImageMatch{}
	for _, id := range ids {
		if s, ok := f.scores[id]; ok {
			out[id] = ImageMatch{MediaID: "m-" + id, ImageURL: "https://img/" + id, Score: s}
		}
	}
	return out, nil
}

func located(id string, km float64, features ...string) profiles.Located {
	return profiles.Located{
		Profile: profiles.Profile{
			ID:            id,
			Name:          id,
			Type:          profiles.TypeStray,
			BreedAnalysis: tags.New(features...),
		},
		DistanceKm: km,
	}
}

var query = Query{
	Vector:      []float64{1, 0, 0},
	FeatureTags: tags.New("fluffy_coat", "long_tail"),
	Point:       geo.Point{Lat: 22.9639, Lng: 88.5325},
}

func TestRank_ScenarioCombinedScore(t *testing.T) {
	g := &fakeGeo{items: []profiles.Located{located("p1", 2, "fluffy_coat", "pointed_ears")}}
	e := &fakeEmb{scores: map[string]float64{"p1": 0.95}}
	r := NewRanker(g, e, DefaultPolicy(), nil)

	q := query
	q.RadiusKm = 20
	got := r.Rank(context.Background(), q, ModeSuggest)

	require.Len(t, got.Candidates, 1)
	c := got.Candidates[0]
	assert.InDelta(t, 1.0/3.0, c.FeatureScore, 1e-12)
	assert.InDelta(t, 0.95, c.ImageScore, 1e-12)
	assert.InDelta(t, 0.765, c.CombinedScore, 1e-9)
	assert.Equal(t, "medium", c.Confidence)
	assert.Equal(t, "m-p1", c.MatchingMediaID)
	assert.Equal(t, 20.0, got.RadiusKm)
	assert.Empty(t, got.Warnings)
}

func TestRank_AutoMatchBelowBar_ReturnsNothing(t *testing.T) {
	// mismos rasgos (feature 1): 0.7*x + 0.3 = 0.89 => x = 0.59/0.7
	g := &fakeGeo{items: []profiles.Located{located("p1", 1, "fluffy_coat", "long_tail")}}
	e := &fakeEmb{scores: map[string]float64{"p1": 0.59 / 0.7}}

	got := NewRanker(g, e, DefaultPolicy(), nil).Rank(context.Background(), query, ModeAutoMatch)
	assert.Empty(t, got.Candidates)
	assert.Equal(t, 20.0, g.lastRadius)
}

func TestRank_AutoMatch_AtMostOne(t *testing.T) {
	g := &fakeGeo{items: []profiles.Located{
		located("a", 1, "fluffy_coat", "long_tail"),
		located("b", 2, "fluffy_coat", "long_tail"),
		located("c", 3, "fluffy_coat", "long_tail"),
	}}
	e := &fakeEmb{scores: map[string]float64{"a": 0.99, "b": 1, "c": 0.98}}

	got := NewRanker(g, e, DefaultPolicy(), nil).Rank(context.Background(), query, ModeAutoMatch)
	require.Len(t, got.Candidates, 1)
	assert.Equal(t, "b", got.Candidates[0].Profile.ID)
	assert.GreaterOrEqual(t, got.Candidates[0].CombinedScore, 0.90)
}

func TestRank_Suggest_AtMostN_AnyScore(t *testing.T) {
	g := &fakeGeo{}
	e := &fakeEmb{scores: map[string]float64{}}
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("p%02d", i)
		g.items = append(g.items, located(id, float64(i%9)))
		e.scores[id] = float64(i) / 100
	}

	got := NewRanker(g, e, DefaultPolicy(), nil).Rank(context.Background(), query, ModeSuggest)
	assert.Equal(t, 10.0, g.lastRadius)
	require.Len(t, got.Candidates, 10)
	for i := 1; i < len(got.Candidates); i++ {
		assert.GreaterOrEqual(t, got.Candidates[i-1].CombinedScore, got.Candidates[i].CombinedScore)
	}
}

func TestRank_TiesBrokenByDistance(t *testing.T) {
	g := &fakeGeo{items: []profiles.Located{located("far", 8), located("near", 1), located("mid", 4)}}
	e := &fakeEmb{scores: map[string]float64{"far": 0.5, "near": 0.5, "mid": 0.5}}

	got := NewRanker(g, e, DefaultPolicy(), nil).Rank(context.Background(), query, ModeSuggest)
	require.Len(t, got.Candidates, 3)
	assert.Equal(t, "near", got.Candidates[0].Profile.ID)
	assert.Equal(t, "mid", got.Candidates[1].Profile.ID)
	assert.Equal(t, "far", got.Candidates[2].Profile.ID)
}

func TestRank_ProfilesWithoutEmbeddings(t *testing.T) {
	g := &fakeGeo{items: []profiles.Located{
		located("tags-only", 1, "long_tail"),
		located("nothing", 1),
		located("with-image", 1),
	}}
	e := &fakeEmb{scores: map[string]float64{"with-image": 0.4}}

	got := NewRanker(g, e, DefaultPolicy(), nil).Rank(context.Background(), query, ModeSuggest)
	ids := []string{}
	for _, c := range got.Candidates {
		ids = append(ids, c.Profile.ID)
	}
	assert.ElementsMatch(t, []string{"tags-only", "with-image"}, ids)

	for _, c := range got.Candidates {
		if c.Profile.ID == "tags-only" {
			assert.Equal(t, 0.0, c.ImageScore)
			assert.InDelta(t, 0.3*0.5, c.CombinedScore, 1e-12)
		}
	}
}

func TestRank_NoVector_FeatureOnly(t *testing.T) {
	g := &fakeGeo{items: []profiles.Located{located("p1", 1, "fluffy_coat")}}
	e := &fakeEmb{scores: map[string]float64{"p1": 1}}

	q := query
	q.Vector = nil
	got := NewRanker(g, e, DefaultPolicy(), nil).Rank(context.Background(), q, ModeSuggest)
	assert.Equal(t, 0, e.calls)
	require.Len(t, got.Candidates, 1)
	assert.Equal(t, 0.0, got.Candidates[0].ImageScore)
}

func TestRank_StorageFailures_DegradeToEmpty(t *testing.T) {
	g := &fakeGeo{err: errors.New("db down")}
	got := NewRanker(g, &fakeEmb{}, DefaultPolicy(), nil).Rank(context.Background(), query, ModeSuggest)
	assert.Empty(t, got.Candidates)
	assert.Equal(t, []Warning{WarningStorageUnavailable}, got.Warnings)

	g = &fakeGeo{items: []profiles.Located{located("p1", 1, "fluffy_coat")}}
	got = NewRanker(g, &fakeEmb{err: errors.New("qdrant down")}, DefaultPolicy(), nil).Rank(context.Background(), query, ModeSuggest)
	assert.Empty(t, got.Candidates)
	assert.Equal(t, []Warning{WarningStorageUnavailable}, got.Warnings)
}

func TestRank_FilterByType(t *testing.T) {
	pet := located("pet", 1)
	pet.Profile.Type = profiles.TypePet
	g := &fakeGeo{items: []profiles.Located{pet, located("stray", 1)}}
	e := &fakeEmb{scores: map[string]float64{"pet": 0.9, "stray": 0.9}}

	q := query
	q.Filter = profiles.Filter{Types: []profiles.Type{profiles.TypeStray}}
	got := NewRanker(g, e, DefaultPolicy(), nil).Rank(context.Background(), q, ModeSuggest)
	require.Len(t, got.Candidates, 1)
	assert.Equal(t, "stray", got.Candidates[0].Profile.ID)
}

func TestPolicy_Validate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())

	cases := map[string]func(p *Policy){
		"negative weight":      func(p *Policy) { p.Weights.Image = -0.1 },
		"zero weights":         func(p *Policy) { p.Weights = Weights{} },
		"suggest limit zero":   func(p *Policy) { p.Suggest.Limit = 0 },
		"radius zero":          func(p *Policy) { p.AutoMatch.RadiusKm = 0 },
		"threshold above one":  func(p *Policy) { p.AutoMatch.MinScore = 1.5 },
		"auto-match limit two": func(p *Policy) { p.AutoMatch.Limit = 2 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := DefaultPolicy()
			mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidPolicy)
		})
	}
}
