// Package dialogue runs the guided "where, how many, what" conversation that
// narrows a recommendation request before it is sent to the chat backend.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"
	"github.com/matjip-map/discovery-service/internal/client"
	"github.com/matjip-map/discovery-service/internal/domain"
)

// Step is the dialogue position.
type Step int

const (
	StepAwaitRegion Step = iota
	StepAwaitPartySize
	StepAwaitCuisine
	StepDone
)

func (s Step) String() string {
	switch s {
	case StepAwaitRegion:
		return "AWAIT_REGION"
	case StepAwaitPartySize:
		return "AWAIT_PARTY_SIZE"
	case StepAwaitCuisine:
		return "AWAIT_CUISINE"
	default:
		return "DONE"
	}
}

// Outcome is what the backend answer amounted to once the dialogue is DONE.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeEmpty
	OutcomeList
)

// ErrFinished is returned for input after DONE; only Restart continues.
var ErrFinished = errors.New("dialogue finished")

// Defaults for backend polling after a processing reply.
const (
	DefaultPollInterval = 200 * time.Millisecond
	DefaultMaxPoll      = 5 * time.Second
	DefaultWaitTimeout  = time.Minute
)

// Role tags transcript lines.
type Role string

const (
	RoleUser   Role = "user"
	RoleSystem Role = "system"
)

// Message is one transcript line.
type Message struct {
	Role Role
	Text string
}

// Backend is the recommendation chat service.
type Backend interface {
	Ask(ctx context.Context, sessionID, query string) (client.Reply, error)
	Poll(ctx context.Context, sessionID string) (client.Reply, error)
}

// ListSink receives a non-empty recommendation list.
type ListSink interface {
	ShowExternalList(ctx context.Context, results []domain.RankedResult) error
}

// Options configures a Dialogue. Zero values pick defaults.
type Options struct {
	// Geocoder resolves the region answer to an origin hint. Optional.
	Geocoder     domain.Geocoder
	PollInterval time.Duration
	MaxPoll      time.Duration
	WaitTimeout  time.Duration
	Logger       *slog.Logger
}

// Dialogue is a single-user conversation. Methods are safe to call from
// multiple goroutines but transitions are processed one at a time.
type Dialogue struct {
	mu         sync.Mutex
	step       Step
	outcome    Outcome
	criteria   Criteria
	transcript []Message
	sessionID  string

	backend Backend
	sink    ListSink
	opts    Options
	logger  *slog.Logger
}

// New starts a dialogue at AWAIT_REGION with a fresh backend session.
func New(backend Backend, sink ListSink, opts Options) *Dialogue {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxPoll <= 0 {
		opts.MaxPoll = DefaultMaxPoll
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = DefaultWaitTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	d := &Dialogue{backend: backend, sink: sink, opts: opts, logger: opts.Logger}
	d.reset()
	return d
}

// Restart abandons the current conversation and begins a new backend session.
func (d *Dialogue) Restart() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
}

func (d *Dialogue) reset() {
	d.step = StepAwaitRegion
	d.outcome = OutcomeNone
	d.criteria = Criteria{}
	d.sessionID = uuid.NewString()
	d.transcript = []Message{{Role: RoleSystem, Text: promptRegion}}
}

// Step returns the current step.
func (d *Dialogue) Step() Step {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.step
}

// Outcome returns the classified backend answer, or OutcomeNone before DONE.
func (d *Dialogue) Outcome() Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outcome
}

// Criteria returns what has been collected so far.
func (d *Dialogue) Criteria() Criteria {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.criteria
	if c.Origin != nil {
		o := *c.Origin
		c.Origin = &o
	}
	return c
}

// SessionID returns the backend session id of the current conversation.
func (d *Dialogue) SessionID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessionID
}

// Transcript returns a copy of the conversation so far.
func (d *Dialogue) Transcript() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.transcript)
}

// Input consumes one user answer. Invalid answers re-prompt without
// advancing. The answer that completes the criteria sends the query and
// blocks until the backend settles.
func (d *Dialogue) Input(ctx context.Context, text string) (Step, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.step == StepDone {
		return d.step, ErrFinished
	}
	d.say(RoleUser, text)

	switch d.step {
	case StepAwaitRegion:
		region, ok := parseRegion(text)
		if !ok {
			d.say(RoleSystem, repromptRegion)
			return d.step, nil
		}
		d.criteria.Region = region
		if res, ok := domain.ResolvePlace(ctx, d.opts.Geocoder, region, d.logger); ok {
			c := res.Coordinate
			d.criteria.Origin = &c
		}
		d.advance(StepAwaitPartySize, promptPartySize)

	case StepAwaitPartySize:
		n, ok := parsePartySize(text)
		if !ok {
			d.say(RoleSystem, repromptPartySize)
			return d.step, nil
		}
		d.criteria.PartySize = n
		d.advance(StepAwaitCuisine, promptCuisine)

	case StepAwaitCuisine:
		cuisine, ok := parseCuisine(text)
		if !ok {
			d.say(RoleSystem, repromptCuisine)
			return d.step, nil
		}
		d.criteria.Cuisine = cuisine
		d.criteria.Category = domain.ParseCategory(cuisine)
		d.advance(StepDone, promptSearching)
		return d.step, d.finish(ctx)
	}
	return d.step, nil
}

func (d *Dialogue) advance(next Step, prompt string) {
	d.logger.Debug("dialogue step", "from", d.step.String(), "to", next.String(), "session_id", d.sessionID)
	d.step = next
	d.say(RoleSystem, prompt)
}

func (d *Dialogue) say(role Role, text string) {
	d.transcript = append(d.transcript, Message{Role: role, Text: text})
}

// finish sends the query and routes the settled answer.
func (d *Dialogue) finish(ctx context.Context) error {
	reply := d.await(ctx, d.criteria.Query())
	if reply.Kind != client.ReplyList {
		d.outcome = OutcomeEmpty
		msg := reply.Message
		if msg == "" {
			msg = messageNoResults
		}
		d.say(RoleSystem, msg)
		return nil
	}

	d.outcome = OutcomeList
	msg := reply.Message
	if msg == "" {
		msg = fmt.Sprintf(messageFoundFormat, len(reply.Items))
	}
	d.say(RoleSystem, msg)
	if err := d.sink.ShowExternalList(ctx, reply.Items); err != nil {
		return fmt.Errorf("show recommendations: %w", err)
	}
	return nil
}

// await sends the query and polls through processing replies with doubling
// backoff. Transport failures, malformed answers and the overall wait limit
// all settle as an empty reply.
func (d *Dialogue) await(ctx context.Context, query string) client.Reply {
	ctx, cancel := context.WithTimeout(ctx, d.opts.WaitTimeout)
	defer cancel()

	reply, err := d.backend.Ask(ctx, d.sessionID, query)
	backoff := d.opts.PollInterval
	for err == nil && reply.Kind == client.ReplyProcessing {
		if !retry.SleepWithContext(ctx, backoff) {
			err = ctx.Err()
			break
		}
		backoff = retry.NextBackoff(backoff, d.opts.MaxPoll)
		reply, err = d.backend.Poll(ctx, d.sessionID)
	}
	if err != nil {
		d.logger.Warn("recommendation backend failed", "session_id", d.sessionID, "error", err)
		return client.Reply{Kind: client.ReplyEmpty}
	}
	d.logger.Info("recommendation settled", "session_id", d.sessionID, "kind", reply.Kind.String(), "items", len(reply.Items))
	return reply
}
