package recorder

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/fhayvy/NexusForecast/internal/domain"
)

func testPrincipal(b byte) domain.Principal {
	var p domain.Principal
	p[len(p)-1] = b
	return p
}

// mockMarketStore records upserts and deletes in memory.
type mockMarketStore struct {
	markets map[domain.MarketID]domain.Market
}

func newMockMarketStore() *mockMarketStore {
	return &mockMarketStore{markets: make(map[domain.MarketID]domain.Market)}
}

func (s *mockMarketStore) Upsert(ctx context.Context, m domain.Market) error {
	s.markets[m.ID] = m
	return nil
}

func (s *mockMarketStore) Delete(ctx context.Context, id domain.MarketID) error {
	delete(s.markets, id)
	return nil
}

func (s *mockMarketStore) GetByID(ctx context.Context, id domain.MarketID) (domain.Market, error) {
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrMarketNotFound
	}
	return m, nil
}

func (s *mockMarketStore) List(ctx context.Context, limit, offset int) ([]domain.Market, error) {
	out := make([]domain.Market, 0, len(s.markets))
	for _, m := range s.markets {
		out = append(out, m)
	}
	return out, nil
}

// mockBetStore records upserts and deletes in memory.
type mockBetStore struct {
	bets map[domain.BetKey]domain.Bet
}

func newMockBetStore() *mockBetStore {
	return &mockBetStore{bets: make(map[domain.BetKey]domain.Bet)}
}

func (s *mockBetStore) Upsert(ctx context.Context, b domain.Bet) error {
	s.bets[b.Key] = b
	return nil
}

func (s *mockBetStore) Delete(ctx context.Context, key domain.BetKey) error {
	delete(s.bets, key)
	return nil
}

func (s *mockBetStore) GetByKey(ctx context.Context, key domain.BetKey) (domain.Bet, error) {
	b, ok := s.bets[key]
	if !ok {
		return domain.Bet{}, domain.ErrBetNotFound
	}
	return b, nil
}

func (s *mockBetStore) ListByMarket(ctx context.Context, id domain.MarketID) ([]domain.Bet, error) {
	var out []domain.Bet
	for _, b := range s.bets {
		if b.Key.Market == id {
			out = append(out, b)
		}
	}
	return out, nil
}

// mockEventStore appends journal entries in memory.
type mockEventStore struct {
	events []domain.Event
}

func (s *mockEventStore) Insert(ctx context.Context, ev domain.Event) error {
	s.events = append(s.events, ev)
	return nil
}

func (s *mockEventStore) ListByMarket(ctx context.Context, id domain.MarketID) ([]domain.Event, error) {
	var out []domain.Event
	for _, ev := range s.events {
		if ev.MarketID == id {
			out = append(out, ev)
		}
	}
	return out, nil
}

// mockBus collects published payloads.
type mockBus struct {
	published [][]byte
}

func (b *mockBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.published = append(b.published, payload)
	return nil
}

func (b *mockBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

// mockBlob collects uploaded objects by path.
type mockBlob struct {
	objects map[string][]byte
}

func (b *mockBlob) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if b.objects == nil {
		b.objects = make(map[string][]byte)
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	b.objects[path] = buf
	return nil
}

func runRecorder(t *testing.T, events ...domain.Event) (*mockMarketStore, *mockBetStore, *mockEventStore, *mockBus, *mockBlob) {
	t.Helper()

	feed := make(chan domain.Event, len(events))
	for _, ev := range events {
		feed <- ev
	}
	close(feed)

	markets := newMockMarketStore()
	bets := newMockBetStore()
	journal := &mockEventStore{}
	bus := &mockBus{}
	blob := &mockBlob{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := New(feed, markets, bets, journal, bus, blob, logger)
	if err := rec.Run(t.Context()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return markets, bets, journal, bus, blob
}

func TestRecorderMirrorsMarketLifecycle(t *testing.T) {
	creator := testPrincipal(1)
	market := domain.Market{ID: 1, Description: "will it rain", Creator: creator, CloseBlock: 200, ExpiryBlock: 300}

	markets, _, journal, bus, _ := runRecorder(t,
		domain.Event{ID: "a", Kind: domain.EventMarketCreated, Block: 100, MarketID: 1, Actor: creator, Market: &market},
	)

	if got, err := markets.GetByID(t.Context(), 1); err != nil || got.Description != "will it rain" {
		t.Fatalf("market mirror = %+v, %v", got, err)
	}
	if len(journal.events) != 1 {
		t.Fatalf("journal has %d entries, want 1", len(journal.events))
	}
	if len(bus.published) != 1 {
		t.Fatalf("bus has %d payloads, want 1", len(bus.published))
	}

	var decoded domain.Event
	if err := json.Unmarshal(bus.published[0], &decoded); err != nil {
		t.Fatalf("published payload not valid JSON: %v", err)
	}
	if decoded.Kind != domain.EventMarketCreated {
		t.Errorf("published kind = %s", decoded.Kind)
	}
}

func TestRecorderMirrorsBets(t *testing.T) {
	user := testPrincipal(2)
	key := domain.BetKey{Market: 1, User: user}
	bet := domain.Bet{Key: key, Amount: 500, Prediction: true}

	_, bets, _, _, _ := runRecorder(t,
		domain.Event{ID: "a", Kind: domain.EventBetPlaced, Block: 100, MarketID: 1, Actor: user, Amount: 500, Bet: &bet},
		domain.Event{ID: "b", Kind: domain.EventWinningsClaimed, Block: 250, MarketID: 1, Actor: user, Amount: 500},
	)

	// The claim removes the mirrored bet row.
	if _, err := bets.GetByKey(t.Context(), key); err == nil {
		t.Fatal("bet mirror still present after claim")
	}
}

func TestRecorderArchivesCleanedMarkets(t *testing.T) {
	creator := testPrincipal(1)
	market := domain.Market{ID: 7, Description: "will it rain", Creator: creator, CloseBlock: 200, ExpiryBlock: 300}

	markets, _, _, _, blob := runRecorder(t,
		domain.Event{ID: "a", Kind: domain.EventMarketCreated, Block: 100, MarketID: 7, Actor: creator, Market: &market},
		domain.Event{ID: "b", Kind: domain.EventMarketCleaned, Block: 400, MarketID: 7, Actor: creator},
	)

	data, ok := blob.objects["markets/7.json"]
	if !ok {
		t.Fatalf("archive object missing; have %v", blob.objects)
	}
	var history []domain.Event
	if err := json.Unmarshal(data, &history); err != nil {
		t.Fatalf("archive not valid JSON: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("archived history has %d events, want 2", len(history))
	}

	// The mirror row is gone after the archive was written.
	if _, err := markets.GetByID(t.Context(), 7); err == nil {
		t.Fatal("market mirror still present after cleanup")
	}
}
