package core

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type fakeEmbeds struct {
	info  *EmbedInfo
	err   error
	calls int
}

func (f *fakeEmbeds) FetchEmbed(_ context.Context, _ string) (*EmbedInfo, error) {
	f.calls++
	return f.info, f.err
}

type fakeSearch struct {
	results   []Song
	err       error
	lastQuery string
	calls     int
}

func (f *fakeSearch) Search(_ context.Context, query string) ([]Song, error) {
	f.calls++
	f.lastQuery = query
	return f.results, f.err
}

type fakeRanker struct {
	ranked []Song
	err    error
}

func (f *fakeRanker) Rank(_ context.Context, _, _ string, candidates []Song) ([]Song, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.ranked != nil {
		return f.ranked, nil
	}
	return candidates, nil
}

func threeSongs() []Song {
	return []Song{
		{ID: "1", Title: "Hold On", ArtistName: "Artist One", AppleMusicID: "1"},
		{ID: "2", Title: "Hold On Me", ArtistName: "Artist Two", AppleMusicID: "2"},
		{ID: "3", Title: "Holding On", ArtistName: "Artist Three", AppleMusicID: "3"},
	}
}

func TestResolverExactTitleMatch(t *testing.T) {
	embeds := &fakeEmbeds{info: &EmbedInfo{Title: "hold on me", AuthorName: "Artist Two"}}
	search := &fakeSearch{results: threeSongs()}
	r := NewResolver(embeds, search, nil, zap.NewNop())

	got := r.Resolve(context.Background(), "abc123")

	if got.Song == nil || got.Song.ID != "2" {
		t.Fatalf("expected exact-match song 2, got %+v", got.Song)
	}
	if got.Candidates != nil {
		t.Errorf("exact match must not carry candidates, got %d", len(got.Candidates))
	}
}

func TestResolverScarcityShortCircuit(t *testing.T) {
	// One result, title does NOT match the embed title: still unambiguous.
	embeds := &fakeEmbeds{info: &EmbedInfo{Title: "Completely Different", AuthorName: "Someone"}}
	search := &fakeSearch{results: []Song{{ID: "9", Title: "Sole Result", ArtistName: "A", AppleMusicID: "9"}}}
	r := NewResolver(embeds, search, nil, zap.NewNop())

	got := r.Resolve(context.Background(), "abc123")

	if got.Song == nil || got.Song.ID != "9" {
		t.Fatalf("expected the sole result, got %+v", got.Song)
	}
	if got.Candidates != nil {
		t.Errorf("scarcity match must not carry candidates")
	}
}

func TestResolverAmbiguousMatch(t *testing.T) {
	embeds := &fakeEmbeds{info: &EmbedInfo{Title: "No Such Title", AuthorName: "Nobody"}}
	search := &fakeSearch{results: threeSongs()}
	r := NewResolver(embeds, search, nil, zap.NewNop())

	got := r.Resolve(context.Background(), "abc123")

	if got.Song == nil {
		t.Fatal("expected a best-guess song")
	}
	if len(got.Candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got.Candidates))
	}
	if got.Candidates[0] != *got.Song {
		t.Error("best guess must be the head of the candidate list")
	}
	if got.Song.ID != "1" {
		t.Errorf("best guess should be the first search result, got %s", got.Song.ID)
	}
}

func TestResolverCandidateCap(t *testing.T) {
	results := make([]Song, 8)
	for i := range results {
		results[i] = Song{ID: string(rune('a' + i)), Title: "Track", ArtistName: "X", AppleMusicID: "x"}
	}
	// Stop the exact-match branch from firing.
	embeds := &fakeEmbeds{info: &EmbedInfo{Title: "Unmatched"}}
	search := &fakeSearch{results: results}
	r := NewResolver(embeds, search, nil, zap.NewNop())

	got := r.Resolve(context.Background(), "abc123")

	if len(got.Candidates) != MaxCandidates {
		t.Errorf("expected shortlist capped at %d, got %d", MaxCandidates, len(got.Candidates))
	}
}

func TestResolverQueryBuilding(t *testing.T) {
	tests := []struct {
		name      string
		info      EmbedInfo
		wantQuery string
	}{
		{
			name:      "title and author",
			info:      EmbedInfo{Title: "Song", AuthorName: "Artist"},
			wantQuery: "Song Artist",
		},
		{
			name:      "title only",
			info:      EmbedInfo{Title: "Song"},
			wantQuery: "Song",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			search := &fakeSearch{results: threeSongs()}
			r := NewResolver(&fakeEmbeds{info: &tt.info}, search, nil, zap.NewNop())
			r.Resolve(context.Background(), "abc123")
			if search.lastQuery != tt.wantQuery {
				t.Errorf("query = %q, want %q", search.lastQuery, tt.wantQuery)
			}
		})
	}
}

func TestResolverDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name   string
		embeds *fakeEmbeds
		search *fakeSearch
	}{
		{
			name:   "embed fetch failure",
			embeds: &fakeEmbeds{err: errors.New("status 404")},
			search: &fakeSearch{results: threeSongs()},
		},
		{
			name:   "embed without title",
			embeds: &fakeEmbeds{info: &EmbedInfo{AuthorName: "Someone"}},
			search: &fakeSearch{results: threeSongs()},
		},
		{
			name:   "search failure",
			embeds: &fakeEmbeds{info: &EmbedInfo{Title: "Song"}},
			search: &fakeSearch{err: errors.New("timeout")},
		},
		{
			name:   "no search results",
			embeds: &fakeEmbeds{info: &EmbedInfo{Title: "Song"}},
			search: &fakeSearch{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.embeds, tt.search, nil, zap.NewNop())
			got := r.Resolve(context.Background(), "abc123")
			if got.Song != nil || got.Candidates != nil {
				t.Errorf("expected empty result, got %+v", got)
			}
		})
	}
}

func TestResolverSearchSkippedWithoutTitle(t *testing.T) {
	embeds := &fakeEmbeds{info: &EmbedInfo{}}
	search := &fakeSearch{results: threeSongs()}
	r := NewResolver(embeds, search, nil, zap.NewNop())

	r.Resolve(context.Background(), "abc123")

	if search.calls != 0 {
		t.Errorf("search must not run when the embed has no title, got %d calls", search.calls)
	}
}

func TestResolverRankerReordersShortlist(t *testing.T) {
	songs := threeSongs()
	reordered := []Song{songs[2], songs[0], songs[1]}

	embeds := &fakeEmbeds{info: &EmbedInfo{Title: "No Such Title"}}
	search := &fakeSearch{results: songs}
	r := NewResolver(embeds, search, &fakeRanker{ranked: reordered}, zap.NewNop())

	got := r.Resolve(context.Background(), "abc123")

	if got.Song == nil || got.Song.ID != "3" {
		t.Fatalf("expected ranked head 3, got %+v", got.Song)
	}
	if got.Candidates[0] != *got.Song {
		t.Error("head invariant must hold after ranking")
	}
}

func TestResolverRankerFailureKeepsOrder(t *testing.T) {
	embeds := &fakeEmbeds{info: &EmbedInfo{Title: "No Such Title"}}
	search := &fakeSearch{results: threeSongs()}
	r := NewResolver(embeds, search, &fakeRanker{err: errors.New("provider down")}, zap.NewNop())

	got := r.Resolve(context.Background(), "abc123")

	if got.Song == nil || got.Song.ID != "1" {
		t.Errorf("expected original order on ranker failure, got %+v", got.Song)
	}
}
