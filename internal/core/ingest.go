package core

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"songmoment/pkg/musicurl"
)

const outcomeBuffer = 16

// SongLookup is the orchestrator entry point the controller depends on.
type SongLookup interface {
	LookupSongFromURL(ctx context.Context, rawURL string) LookupResult
}

// IngestController reacts to inbound share intents. Each accepted intent is
// processed exactly once and produces exactly one Outcome; intents arriving
// while another is in flight are ignored, not queued. The in-flight flag is
// the only mutable state in the pipeline.
type IngestController struct {
	locator  SongLookup
	session  *SessionState
	logger   *zap.Logger
	inflight atomic.Bool
	outcomes chan Outcome
}

func NewIngestController(locator SongLookup, session *SessionState, logger *zap.Logger) *IngestController {
	return &IngestController{
		locator:  locator,
		session:  session,
		logger:   logger,
		outcomes: make(chan Outcome, outcomeBuffer),
	}
}

// Outcomes delivers every processed intent's terminal outcome, including
// discards. Consumers subscribe here instead of registering overwritable
// callbacks.
func (c *IngestController) Outcomes() <-chan Outcome {
	return c.outcomes
}

// Submit triggers asynchronous processing of one intent. It reports whether
// the intent was consumed: false when no session is active or when a
// previous intent is still being processed.
func (c *IngestController) Submit(intent ShareIntent) bool {
	if !c.acquire() {
		return false
	}

	go func() {
		defer c.inflight.Store(false)
		c.emit(c.runGuarded(context.Background(), intent))
	}()

	return true
}

// Process runs one intent synchronously under the same guard and session
// precondition as Submit. The HTTP layer uses it to return the outcome in
// the response.
func (c *IngestController) Process(ctx context.Context, intent ShareIntent) (Outcome, bool) {
	if !c.acquire() {
		return Outcome{Kind: OutcomeDiscarded}, false
	}
	defer c.inflight.Store(false)

	outcome := c.runGuarded(ctx, intent)
	c.emit(outcome)
	return outcome, true
}

func (c *IngestController) acquire() bool {
	if !c.session.Active() {
		c.logger.Debug("Ignoring share intent, no active session")
		return false
	}
	if !c.inflight.CompareAndSwap(false, true) {
		c.logger.Debug("Ignoring share intent, previous one still in flight")
		return false
	}
	return true
}

// runGuarded is the last-resort safety net: a panic anywhere during
// processing discards the intent instead of surfacing to the sharer.
func (c *IngestController) runGuarded(ctx context.Context, intent ShareIntent) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Recovered panic during intent processing", zap.Any("panic", r))
			outcome = Outcome{Kind: OutcomeDiscarded}
		}
	}()
	return c.run(ctx, intent)
}

func (c *IngestController) run(ctx context.Context, intent ShareIntent) Outcome {
	// Images bypass all URL logic, even when a music link rides along in the
	// accompanying text.
	if path := intent.ImagePath(); path != "" {
		return Outcome{Kind: OutcomePhotoPrefill, PhotoPath: path}
	}

	raw := intent.URL
	if raw == "" {
		raw = musicurl.ExtractFromText(intent.Text)
	}
	if raw == "" {
		// Pure-text shares without a recognizable link are consumed silently.
		return Outcome{Kind: OutcomeDiscarded}
	}

	if musicurl.Parse(raw) == nil {
		return Outcome{Kind: OutcomeDiscarded}
	}

	result := c.locator.LookupSongFromURL(ctx, raw)
	switch {
	case result.Ambiguous():
		return Outcome{Kind: OutcomeSongWithCandidates, Song: result.Song, Candidates: result.Candidates}
	case result.Resolved():
		return Outcome{Kind: OutcomeSongPrefill, Song: result.Song}
	default:
		return Outcome{Kind: OutcomeFallbackSearch, FallbackURL: raw}
	}
}

func (c *IngestController) emit(outcome Outcome) {
	select {
	case c.outcomes <- outcome:
	default:
		c.logger.Warn("Outcome channel full, dropping",
			zap.String("kind", string(outcome.Kind)))
	}
}
