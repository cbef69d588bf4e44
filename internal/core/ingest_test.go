package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeLookup struct {
	mu      sync.Mutex
	result  LookupResult
	calls   int
	block   chan struct{} // when set, LookupSongFromURL waits on it
	panicOn bool
}

func (f *fakeLookup) LookupSongFromURL(_ context.Context, _ string) LookupResult {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if f.panicOn {
		panic("boom")
	}
	if block != nil {
		<-block
	}
	return f.result
}

func (f *fakeLookup) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestController(lookup SongLookup, active bool) *IngestController {
	return NewIngestController(lookup, NewSessionState(active), zap.NewNop())
}

func waitOutcome(t *testing.T, c *IngestController) Outcome {
	t.Helper()
	select {
	case outcome := <-c.Outcomes():
		return outcome
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outcome")
		return Outcome{}
	}
}

func TestProcessSongPrefill(t *testing.T) {
	song := &Song{ID: "1", Title: "Hold On", ArtistName: "Artist One", AppleMusicID: "1"}
	c := newTestController(&fakeLookup{result: LookupResult{Song: song}}, true)

	outcome, consumed := c.Process(context.Background(), ShareIntent{URL: "https://open.spotify.com/track/abc123"})

	if !consumed {
		t.Fatal("intent should have been consumed")
	}
	if outcome.Kind != OutcomeSongPrefill {
		t.Fatalf("kind = %s, want %s", outcome.Kind, OutcomeSongPrefill)
	}
	if outcome.Song == nil || outcome.Song.Title != "Hold On" {
		t.Errorf("unexpected song payload: %+v", outcome.Song)
	}
}

func TestProcessAmbiguousCarriesCandidates(t *testing.T) {
	songs := threeSongs()
	c := newTestController(&fakeLookup{result: LookupResult{Song: &songs[0], Candidates: songs}}, true)

	outcome, _ := c.Process(context.Background(), ShareIntent{URL: "https://open.spotify.com/track/abc123"})

	if outcome.Kind != OutcomeSongWithCandidates {
		t.Fatalf("kind = %s, want %s", outcome.Kind, OutcomeSongWithCandidates)
	}
	if len(outcome.Candidates) != 3 {
		t.Errorf("candidates = %d, want 3", len(outcome.Candidates))
	}
	fields := outcome.Fields()
	if fields["candidates"] == "" {
		t.Error("flattened payload must carry serialized candidates")
	}
	if fields["title"] != songs[0].Title {
		t.Errorf("flattened title = %q", fields["title"])
	}
}

func TestProcessFallbackOnUnresolved(t *testing.T) {
	c := newTestController(&fakeLookup{}, true)
	url := "https://open.spotify.com/track/abc123"

	outcome, _ := c.Process(context.Background(), ShareIntent{URL: url})

	if outcome.Kind != OutcomeFallbackSearch {
		t.Fatalf("kind = %s, want %s", outcome.Kind, OutcomeFallbackSearch)
	}
	if outcome.FallbackURL != url {
		t.Errorf("fallback url = %q, want the original url", outcome.FallbackURL)
	}
}

func TestProcessImageShortCircuit(t *testing.T) {
	lookup := &fakeLookup{}
	c := newTestController(lookup, true)

	// A valid music URL rides along in the text; the image still wins.
	outcome, _ := c.Process(context.Background(), ShareIntent{
		Text: "look https://open.spotify.com/track/abc123",
		Attachments: []Attachment{
			{MIMEType: "image/jpeg", LocalPath: "/tmp/shared.jpg"},
		},
	})

	if outcome.Kind != OutcomePhotoPrefill {
		t.Fatalf("kind = %s, want %s", outcome.Kind, OutcomePhotoPrefill)
	}
	if outcome.PhotoPath != "/tmp/shared.jpg" {
		t.Errorf("photo path = %q", outcome.PhotoPath)
	}
	if lookup.callCount() != 0 {
		t.Error("image shares must bypass URL resolution entirely")
	}
}

func TestProcessURLExtractedFromText(t *testing.T) {
	song := &Song{ID: "1", Title: "Hold On", ArtistName: "Artist One", AppleMusicID: "1"}
	c := newTestController(&fakeLookup{result: LookupResult{Song: song}}, true)

	outcome, _ := c.Process(context.Background(), ShareIntent{
		Text: "this one!! https://music.apple.com/us/song/hold-on/123456 so good",
	})

	if outcome.Kind != OutcomeSongPrefill {
		t.Errorf("kind = %s, want %s", outcome.Kind, OutcomeSongPrefill)
	}
}

func TestProcessDiscards(t *testing.T) {
	tests := []struct {
		name   string
		intent ShareIntent
	}{
		{name: "pure text without link", intent: ShareIntent{Text: "great song last night"}},
		{name: "unrecognized url", intent: ShareIntent{URL: "https://example.com/track/abc"}},
		{name: "empty intent", intent: ShareIntent{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &fakeLookup{}
			c := newTestController(lookup, true)
			outcome, consumed := c.Process(context.Background(), tt.intent)
			if !consumed {
				t.Fatal("discarded intents are still consumed")
			}
			if outcome.Kind != OutcomeDiscarded {
				t.Errorf("kind = %s, want %s", outcome.Kind, OutcomeDiscarded)
			}
			if lookup.callCount() != 0 {
				t.Error("lookup must not run for unusable intents")
			}
		})
	}
}

func TestSubmitRequiresActiveSession(t *testing.T) {
	lookup := &fakeLookup{}
	c := newTestController(lookup, false)

	if c.Submit(ShareIntent{URL: "https://open.spotify.com/track/abc123"}) {
		t.Fatal("intent must not be consumed without a session")
	}
	if lookup.callCount() != 0 {
		t.Error("no processing without a session")
	}
}

func TestSubmitReentrancyGuard(t *testing.T) {
	block := make(chan struct{})
	lookup := &fakeLookup{block: block}
	c := newTestController(lookup, true)

	first := c.Submit(ShareIntent{URL: "https://open.spotify.com/track/abc123"})
	// Give the first goroutine time to enter the lookup.
	for i := 0; i < 100 && lookup.callCount() == 0; i++ {
		time.Sleep(time.Millisecond)
	}
	second := c.Submit(ShareIntent{URL: "https://open.spotify.com/track/def456"})
	close(block)

	if !first {
		t.Error("first intent should be consumed")
	}
	if second {
		t.Error("second intent must be ignored while the first is in flight")
	}

	waitOutcome(t, c)
	if lookup.callCount() != 1 {
		t.Errorf("expected exactly one resolution attempt, got %d", lookup.callCount())
	}
}

func TestSubmitGuardReleasedAfterCompletion(t *testing.T) {
	song := &Song{ID: "1", Title: "Hold On", ArtistName: "Artist One", AppleMusicID: "1"}
	c := newTestController(&fakeLookup{result: LookupResult{Song: song}}, true)

	if !c.Submit(ShareIntent{URL: "https://open.spotify.com/track/abc123"}) {
		t.Fatal("first intent should be consumed")
	}
	waitOutcome(t, c)

	if !c.Submit(ShareIntent{URL: "https://open.spotify.com/track/def456"}) {
		t.Error("guard must be released once processing completes")
	}
	waitOutcome(t, c)
}

func TestPanicDuringProcessingIsAbsorbed(t *testing.T) {
	c := newTestController(&fakeLookup{panicOn: true}, true)

	outcome, consumed := c.Process(context.Background(), ShareIntent{URL: "https://open.spotify.com/track/abc123"})

	if !consumed {
		t.Fatal("a panicking intent is still consumed")
	}
	if outcome.Kind != OutcomeDiscarded {
		t.Errorf("kind = %s, want %s", outcome.Kind, OutcomeDiscarded)
	}

	// The guard must be released despite the panic.
	song := &Song{ID: "1", Title: "Hold On", ArtistName: "A", AppleMusicID: "1"}
	c2 := newTestController(&fakeLookup{result: LookupResult{Song: song}}, true)
	if _, ok := c2.Process(context.Background(), ShareIntent{URL: "https://open.spotify.com/track/abc123"}); !ok {
		t.Error("controller must keep working after recovery")
	}
}
