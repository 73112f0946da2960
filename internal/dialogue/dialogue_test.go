package dialogue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/matjip-map/discovery-service/internal/client"
	"github.com/matjip-map/discovery-service/internal/domain"
	"github.com/matjip-map/discovery-service/internal/reconcile"
	"github.com/matjip-map/discovery-service/internal/regions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type scriptedBackend struct {
	mu       sync.Mutex
	ask      client.Reply
	askErr   error
	polls    []client.Reply
	queries  []string
	sessions []string
	pollN    int
}

func (b *scriptedBackend) Ask(_ context.Context, sessionID, query string) (client.Reply, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queries = append(b.queries, query)
	b.sessions = append(b.sessions, sessionID)
	return b.ask, b.askErr
}

func (b *scriptedBackend) Poll(_ context.Context, sessionID string) (client.Reply, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions = append(b.sessions, sessionID)
	if b.pollN >= len(b.polls) {
		return client.Reply{Kind: client.ReplyProcessing}, nil
	}
	r := b.polls[b.pollN]
	b.pollN++
	return r, nil
}

type recordingSink struct {
	lists [][]domain.RankedResult
	err   error
}

func (s *recordingSink) ShowExternalList(_ context.Context, results []domain.RankedResult) error {
	s.lists = append(s.lists, results)
	return s.err
}

type stubGeocoder struct {
	results map[string]domain.GeocodingResult
}

func (g stubGeocoder) ForwardGeocode(_ context.Context, q string) (domain.GeocodingResult, error) {
	return g.results[q], nil
}

var suwonList = []domain.RankedResult{
	{POI: domain.POI{ID: 11, Name: "수원 왕갈비", Category: domain.CategoryKorean, Coordinate: domain.Coordinate{Lat: 37.2790, Lng: 127.0160}}, DistanceKm: 1.8},
	{POI: domain.POI{ID: 4, Name: "행궁 국밥", Category: domain.CategoryKorean, Coordinate: domain.Coordinate{Lat: 37.2820, Lng: 127.0130}}, DistanceKm: 2.1},
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDialogue(b Backend, sink ListSink, opts Options) *Dialogue {
	opts.Logger = quietLogger()
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Millisecond
	}
	return New(b, sink, opts)
}

func answer(t *testing.T, d *Dialogue, inputs ...string) Step {
	t.Helper()
	var step Step
	for _, in := range inputs {
		var err error
		step, err = d.Input(t.Context(), in)
		require.NoError(t, err)
	}
	return step
}

// --- tests ---

func TestDialogue_SuwonScenarioHandsListToMachine(t *testing.T) {
	backend := &scriptedBackend{ask: client.Reply{Kind: client.ReplyList, Items: suwonList}}
	machine := reconcile.New(regions.Default(), nopSearch{}, nopViewport{}, nil, reconcile.Options{Logger: quietLogger()})
	d := newDialogue(backend, machine, Options{})

	require.Equal(t, StepAwaitRegion, d.Step())
	assert.Equal(t, StepAwaitPartySize, answer(t, d, "수원시"))
	assert.Equal(t, StepAwaitCuisine, answer(t, d, "2명"))
	assert.Equal(t, StepDone, answer(t, d, "한식"))

	assert.Equal(t, OutcomeList, d.Outcome())
	st := machine.State()
	assert.Equal(t, reconcile.SourceExternalList, st.Source)
	assert.Equal(t, suwonList, st.Results)
	assert.Equal(t, suwonList[0].POI.Coordinate, st.Coordinate)

	c := d.Criteria()
	assert.Equal(t, "수원시", c.Region)
	assert.Equal(t, 2, c.PartySize)
	assert.Equal(t, domain.CategoryKorean, c.Category)
	require.Len(t, backend.queries, 1)
	assert.Equal(t, "수원시에서 2명이 먹을 한식 맛집 추천해줘", backend.queries[0])
	assert.Equal(t, []string{d.SessionID()}, backend.sessions)
}

func TestDialogue_TranscriptAlternates(t *testing.T) {
	d := newDialogue(&scriptedBackend{}, &recordingSink{}, Options{})

	answer(t, d, "은평구", "3", "카페")

	want := []Message{
		{RoleSystem, promptRegion},
		{RoleUser, "은평구"},
		{RoleSystem, promptPartySize},
		{RoleUser, "3"},
		{RoleSystem, promptCuisine},
		{RoleUser, "카페"},
		{RoleSystem, promptSearching},
		{RoleSystem, messageNoResults},
	}
	assert.Equal(t, want, d.Transcript())
}

func TestDialogue_InvalidPartySizeReprompts(t *testing.T) {
	d := newDialogue(&scriptedBackend{}, &recordingSink{}, Options{})
	answer(t, d, "수원시")

	for _, in := range []string{"", "많이", "0명", "-2", "21명", "2.5"} {
		step, err := d.Input(t.Context(), in)
		require.NoError(t, err)
		assert.Equal(t, StepAwaitPartySize, step, "input %q", in)
	}
	tr := d.Transcript()
	assert.Equal(t, Message{RoleSystem, repromptPartySize}, tr[len(tr)-1])

	assert.Equal(t, StepAwaitCuisine, answer(t, d, "두 명"))
	assert.Equal(t, 2, d.Criteria().PartySize)
}

func TestDialogue_BlankAnswersReprompt(t *testing.T) {
	d := newDialogue(&scriptedBackend{}, &recordingSink{}, Options{})

	assert.Equal(t, StepAwaitRegion, answer(t, d, "   "))
	answer(t, d, "수원시", "4")
	assert.Equal(t, StepAwaitCuisine, answer(t, d, ""))
}

func TestDialogue_EmptyResultIsTerminal(t *testing.T) {
	backend := &scriptedBackend{ask: client.Reply{Kind: client.ReplyEmpty, Message: "근처에 결과가 없어요"}}
	sink := &recordingSink{}
	d := newDialogue(backend, sink, Options{})

	answer(t, d, "수원시", "2명", "한식")

	assert.Equal(t, StepDone, d.Step())
	assert.Equal(t, OutcomeEmpty, d.Outcome())
	assert.Empty(t, sink.lists)
	tr := d.Transcript()
	assert.Equal(t, "근처에 결과가 없어요", tr[len(tr)-1].Text)

	step, err := d.Input(t.Context(), "다시")
	require.ErrorIs(t, err, ErrFinished)
	assert.Equal(t, StepDone, step)
	assert.Len(t, backend.queries, 1)
}

func TestDialogue_TransportErrorIsEmpty(t *testing.T) {
	backend := &scriptedBackend{askErr: errors.New("connection refused")}
	sink := &recordingSink{}
	d := newDialogue(backend, sink, Options{})

	assert.Equal(t, StepDone, answer(t, d, "수원시", "2명", "한식"))
	assert.Equal(t, OutcomeEmpty, d.Outcome())
	assert.Empty(t, sink.lists)
}

func TestDialogue_PollsThroughProcessing(t *testing.T) {
	backend := &scriptedBackend{
		ask: client.Reply{Kind: client.ReplyProcessing},
		polls: []client.Reply{
			{Kind: client.ReplyProcessing},
			{Kind: client.ReplyList, Items: suwonList},
		},
	}
	sink := &recordingSink{}
	d := newDialogue(backend, sink, Options{})

	answer(t, d, "수원시", "2명", "한식")

	assert.Equal(t, OutcomeList, d.Outcome())
	require.Len(t, sink.lists, 1)
	assert.Equal(t, suwonList, sink.lists[0])
	assert.Equal(t, 2, backend.pollN)
}

func TestDialogue_WaitTimeoutSettlesEmpty(t *testing.T) {
	backend := &scriptedBackend{ask: client.Reply{Kind: client.ReplyProcessing}}
	sink := &recordingSink{}
	d := newDialogue(backend, sink, Options{WaitTimeout: 30 * time.Millisecond})

	answer(t, d, "수원시", "2명", "한식")

	assert.Equal(t, OutcomeEmpty, d.Outcome())
	assert.Empty(t, sink.lists)
}

func TestDialogue_SinkErrorSurfaces(t *testing.T) {
	backend := &scriptedBackend{ask: client.Reply{Kind: client.ReplyList, Items: suwonList}}
	d := newDialogue(backend, &recordingSink{err: errors.New("viewport gone")}, Options{})

	answer(t, d, "수원시", "2명")
	_, err := d.Input(t.Context(), "한식")
	require.Error(t, err)
	assert.Equal(t, StepDone, d.Step())
}

func TestDialogue_GeocodedRegionAddsOrigin(t *testing.T) {
	suwon := domain.Coordinate{Lat: 37.2636, Lng: 127.0286}
	geo := stubGeocoder{results: map[string]domain.GeocodingResult{
		"수원시": {Coordinate: suwon, RegionName: "수원시"},
	}}
	backend := &scriptedBackend{}
	d := newDialogue(backend, &recordingSink{}, Options{Geocoder: geo})

	answer(t, d, "수원시", "2명", "한식")

	require.NotNil(t, d.Criteria().Origin)
	assert.Equal(t, suwon, *d.Criteria().Origin)
	assert.Contains(t, backend.queries[0], "37.263600,127.028600")
}

func TestDialogue_RestartUsesFreshSession(t *testing.T) {
	d := newDialogue(&scriptedBackend{}, &recordingSink{}, Options{})
	first := d.SessionID()
	answer(t, d, "수원시", "2명", "한식")

	d.Restart()

	assert.Equal(t, StepAwaitRegion, d.Step())
	assert.Equal(t, OutcomeNone, d.Outcome())
	assert.NotEqual(t, first, d.SessionID())
	assert.Equal(t, []Message{{RoleSystem, promptRegion}}, d.Transcript())
	assert.Equal(t, Criteria{}, d.Criteria())
}

func TestParsePartySize(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"2", 2, true},
		{"2명", 2, true},
		{" 12 명 ", 12, true},
		{"4인", 4, true},
		{"혼자", 1, true},
		{"세 사람", 3, true},
		{"20", 20, true},
		{"21", 0, false},
		{"0", 0, false},
		{"", 0, false},
		{"명", 0, false},
		{"two", 0, false},
	}
	for _, tt := range tests {
		got, ok := parsePartySize(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestStep_String(t *testing.T) {
	assert.Equal(t, "AWAIT_REGION", StepAwaitRegion.String())
	assert.Equal(t, "AWAIT_PARTY_SIZE", StepAwaitPartySize.String())
	assert.Equal(t, "AWAIT_CUISINE", StepAwaitCuisine.String())
	assert.Equal(t, "DONE", StepDone.String())
}

// --- reconciliation collaborators ---

type nopSearch struct{}

func (nopSearch) SetLocation(context.Context, domain.Coordinate) error { return nil }

func (nopSearch) Nearby(context.Context, float64, domain.Category) ([]domain.RankedResult, error) {
	return nil, nil
}

func (nopSearch) Detail(context.Context, int64) (domain.POI, error) { return domain.POI{}, nil }

type nopViewport struct{}

func (nopViewport) SetCenter(domain.Coordinate) {}
func (nopViewport) ShowResults([]domain.RankedResult) {}
func (nopViewport) ShowDetail(domain.POI) {}
func (nopViewport) CloseDetail() {}
