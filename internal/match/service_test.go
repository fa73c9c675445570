package match

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/duelhall/duelhall-server/internal/engine"
	"github.com/duelhall/duelhall-server/internal/game"
	"github.com/duelhall/duelhall-server/internal/game/deck"
	"github.com/duelhall/duelhall-server/internal/game/effects"
	"github.com/duelhall/duelhall-server/internal/game/rules"
	"github.com/duelhall/duelhall-server/internal/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// With NoShuffle the lord is dealt volley-1, volley-2, strike-1 and the
// second seat strike-2, ward-1. The draw pile then starts at ward-2.
const testDeck = `
name: test
cards:
  - name: Volley
    category: TRICK
    arity: ALL_OTHERS
    effect: DAMAGE
    damage: 1
    copies: 2
  - name: Strike
    category: BASIC
    arity: SINGLE
    effect: DAMAGE
    damage: 1
    copies: 2
  - name: Ward
    category: TRICK
    arity: NONE
    effect: NONE
    negates: true
    copies: 2
  - name: Tonic
    category: BASIC
    arity: NONE
    effect: HEAL
    heal: 1
    alwaysResolves: true
    copies: 3
`

type recordingGateway struct {
	mu     sync.Mutex
	events []engine.Event
	hands  map[string][]game.Card
}

func (g *recordingGateway) SendToPlayer(playerID string, event engine.Event) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, event)
	if hu, ok := event.Payload.(engine.HandUpdate); ok {
		if g.hands == nil {
			g.hands = make(map[string][]game.Card)
		}
		g.hands[playerID] = hu.Cards
	}
	return true
}

func (g *recordingGateway) BroadcastToRoom(_ *game.Room, event engine.Event) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, event)
	return 1
}

func (g *recordingGateway) count(eventType engine.EventType) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, ev := range g.events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

func (g *recordingGateway) total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.events)
}

func (g *recordingGateway) hand(playerID string) []game.Card {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hands[playerID]
}

type fixture struct {
	svc     *Service
	gateway *recordingGateway
	room    *game.Room
	lord    string
	second  string
}

func newFixture(t *testing.T, timeout time.Duration) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	catalog, err := deck.Parse([]byte(testDeck))
	require.NoError(t, err)

	gw := &recordingGateway{}
	eng := engine.New(effects.NewResolver(logger), gw, engine.Options{ResponseTimeout: timeout}, logger)
	t.Cleanup(eng.Close)

	rooms := room.NewRegistry(room.Options{MaxSeats: 4, StartingHealth: 4, Shuffle: deck.NoShuffle}, logger)
	turns := rules.NewController(rules.Options{StartingHealth: 4, HandSize: 2, DrawPerTurn: 1}, logger)
	svc := NewService(rooms, eng, turns, catalog, logger)

	created, err := svc.CreateRoom("test table", "alice")
	require.NoError(t, err)
	joined, err := svc.JoinRoom(created.RoomID, "bob", false)
	require.NoError(t, err)
	require.False(t, joined.Spectator)

	r, err := rooms.GetRoom(created.RoomID)
	require.NoError(t, err)
	return &fixture{svc: svc, gateway: gw, room: r, lord: created.MemberID, second: joined.MemberID}
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, f.svc.StartGame(f.lord, f.room.ID))
}

func (f *fixture) health(playerID string) int {
	f.room.Lock()
	defer f.room.Unlock()
	p, _ := f.room.Player(playerID)
	return p.Health
}

func cardIDs(cards []game.Card) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}

func TestStartGame(t *testing.T) {
	f := newFixture(t, 0)

	err := f.svc.StartGame("stranger", f.room.ID)
	assert.ErrorIs(t, err, game.ErrPlayerNotFound)

	f.start(t)

	assert.Equal(t, []string{"volley-1", "volley-2", "strike-1"}, cardIDs(f.gateway.hand(f.lord)))
	assert.Equal(t, []string{"strike-2", "ward-1"}, cardIDs(f.gateway.hand(f.second)))
	assert.Equal(t, 5, f.health(f.lord))
	assert.Equal(t, 4, f.health(f.second))
	assert.Equal(t, 1, f.gateway.count(engine.EventGameStateUpdate))

	view, err := f.svc.RoomView(f.room.ID)
	require.NoError(t, err)
	assert.Equal(t, game.StatePlaying, view.State)
	assert.Equal(t, game.PhasePlay, view.Phase)
	assert.Equal(t, f.lord, view.CurrentPlayerID)

	err = f.svc.StartGame(f.lord, f.room.ID)
	assert.ErrorIs(t, err, game.ErrInvalidGameState)

	_, err = f.svc.JoinRoom(f.room.ID, "carol", false)
	require.NoError(t, err)
	late, err := f.svc.JoinRoom(f.room.ID, "dave", false)
	require.NoError(t, err)
	assert.True(t, late.Spectator)
}

func TestPlayBasicCardResolvesImmediately(t *testing.T) {
	f := newFixture(t, 0)
	f.start(t)

	view, err := f.svc.PlayCard(f.lord, "strike-1", []string{f.second})
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseCompleted, view.Phase)
	require.NotNil(t, view.Result)
	assert.True(t, view.Result.Success)
	assert.Equal(t, 3, f.health(f.second))
	assert.Zero(t, f.gateway.count(engine.EventResponseRequired))
}

func TestPlayRejections(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.svc.PlayCard(f.lord, "strike-1", []string{f.second})
	assert.ErrorIs(t, err, game.ErrCardNotFound, "nothing dealt yet")

	f.start(t)

	_, err = f.svc.PlayCard(f.second, "strike-2", []string{f.lord})
	assert.ErrorIs(t, err, game.ErrInvalidGameState, "not the current player")

	_, err = f.svc.PlayCard(f.lord, "ward-1", nil)
	assert.ErrorIs(t, err, game.ErrCardNotFound)

	_, err = f.svc.PlayCard(f.lord, "strike-1", nil)
	assert.ErrorIs(t, err, game.ErrInvalidTargets)

	_, err = f.svc.PlayCard(f.lord, "strike-1", []string{"ghost"})
	assert.ErrorIs(t, err, game.ErrInvalidTargets)

	_, err = f.svc.PlayCard("ghost", "strike-1", []string{f.second})
	assert.ErrorIs(t, err, game.ErrRoomNotFound)

	spectator, err := f.svc.JoinRoom(f.room.ID, "sam", true)
	require.NoError(t, err)
	_, err = f.svc.PlayCard(spectator.MemberID, "strike-1", []string{f.second})
	assert.ErrorIs(t, err, game.ErrPlayerNotFound)

	assert.Equal(t, 4, f.health(f.second))
	f.room.Lock()
	lord, _ := f.room.Player(f.lord)
	assert.Len(t, lord.Hand, 3)
	f.room.Unlock()
}

func TestPlayDuringDiscardIsSilent(t *testing.T) {
	f := newFixture(t, 0)
	f.start(t)

	f.room.Lock()
	f.room.Phase = game.PhaseDiscard
	f.room.Unlock()
	before := f.gateway.total()

	_, err := f.svc.PlayCard(f.lord, "strike-1", []string{f.second})
	assert.ErrorIs(t, err, game.ErrInvalidGameState)

	assert.Equal(t, before, f.gateway.total(), "a rejected play emits nothing")
	assert.Equal(t, 4, f.health(f.second))
	f.room.Lock()
	defer f.room.Unlock()
	lord, _ := f.room.Player(f.lord)
	assert.Len(t, lord.Hand, 3)
	assert.Empty(t, f.room.PlayedThisTurn)
	_, active := f.room.ActiveExecution()
	assert.False(t, active)
}

func TestTrickBlockedByNegation(t *testing.T) {
	f := newFixture(t, 0)
	f.start(t)

	view, err := f.svc.PlayCard(f.lord, "volley-1", nil)
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseNullification, view.Phase)
	assert.Equal(t, []string{f.second}, view.Targets)
	assert.Equal(t, 1, f.gateway.count(engine.EventResponseRequired))

	_, err = f.svc.RespondToCard(f.second, view.ExecutionID, "strike-2", true)
	assert.ErrorIs(t, err, game.ErrCardNotFound, "strike cannot negate")

	done, err := f.svc.RespondToCard(f.second, view.ExecutionID, "ward-1", true)
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseCompleted, done.Phase)
	require.NotNil(t, done.Result)
	assert.True(t, done.Result.Blocked)
	assert.Equal(t, f.second, done.Result.BlockedBy)
	assert.Equal(t, 4, f.health(f.second))

	f.room.Lock()
	assert.ElementsMatch(t, []string{"ward-1", "volley-1"}, cardIDs(f.room.DiscardPile))
	_, active := f.room.ActiveExecution()
	assert.False(t, active)
	f.room.Unlock()
}

func TestTrickResolvesAfterDecline(t *testing.T) {
	f := newFixture(t, 0)
	f.start(t)

	view, err := f.svc.PlayCard(f.lord, "volley-2", []string{f.second})
	require.NoError(t, err)

	_, err = f.svc.RespondToCard(f.lord, view.ExecutionID, "", false)
	assert.ErrorIs(t, err, game.ErrInvalidGameState, "the caster cannot respond")

	done, err := f.svc.RespondToCard(f.second, "", "", false)
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseCompleted, done.Phase)
	assert.True(t, done.Result.Success)
	assert.Equal(t, 3, f.health(f.second))
}

func TestStaleResponseChangesNothing(t *testing.T) {
	f := newFixture(t, 0)
	f.start(t)

	view, err := f.svc.PlayCard(f.lord, "volley-1", nil)
	require.NoError(t, err)

	before := f.gateway.total()
	_, err = f.svc.RespondToCard(f.second, "old-execution", "ward-1", true)
	assert.ErrorIs(t, err, engine.ErrStaleResponse)
	assert.Equal(t, before, f.gateway.total())

	f.room.Lock()
	active, _ := f.room.ActiveExecution()
	second, _ := f.room.Player(f.second)
	assert.Equal(t, view.ExecutionID, active)
	assert.Len(t, second.Hand, 2)
	f.room.Unlock()
}

func TestConcurrentPlaysStartOneExecution(t *testing.T) {
	f := newFixture(t, 0)
	f.start(t)

	cards := []string{"volley-1", "volley-2"}
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(cardID string) {
			defer wg.Done()
			_, err := f.svc.PlayCard(f.lord, cardID, nil)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.True(t,
				errors.Is(err, game.ErrInvalidGameState) || errors.Is(err, game.ErrCardNotFound),
				"unexpected error: %v", err)
		}(cards[i%len(cards)])
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, f.gateway.count(engine.EventCardExecutionStarted))
	f.room.Lock()
	_, active := f.room.ActiveExecution()
	f.room.Unlock()
	assert.True(t, active)
}

func TestEndTurn(t *testing.T) {
	f := newFixture(t, 0)
	f.start(t)

	_, err := f.svc.EndTurn(f.second)
	assert.ErrorIs(t, err, game.ErrInvalidGameState)

	steps, err := f.svc.EndTurn(f.lord)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, game.PhaseDiscard, steps[0].To)
	assert.True(t, steps[1].Wrapped)
	assert.Equal(t, game.PhaseDraw, steps[1].To)
	assert.Equal(t, game.PhasePlay, steps[2].To)
	assert.Equal(t, []string{"ward-2"}, cardIDs(steps[1].Drawn))

	view, err := f.svc.Snapshot(f.second)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Turn)
	assert.Equal(t, f.second, view.CurrentPlayerID)
	assert.Equal(t, []string{"strike-2", "ward-1", "ward-2"}, cardIDs(f.gateway.hand(f.second)))
}

func TestEndTurnRefusedWhileResolving(t *testing.T) {
	f := newFixture(t, 0)
	f.start(t)

	_, err := f.svc.PlayCard(f.lord, "volley-1", nil)
	require.NoError(t, err)
	before := f.gateway.count(engine.EventGameStateUpdate)

	_, err = f.svc.EndTurn(f.lord)
	assert.ErrorIs(t, err, game.ErrInvalidGameState)
	assert.Equal(t, before, f.gateway.count(engine.EventGameStateUpdate))
}

func TestResponseWindowTimesOut(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	f.start(t)

	_, err := f.svc.PlayCard(f.lord, "volley-1", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		f.room.Lock()
		defer f.room.Unlock()
		_, active := f.room.ActiveExecution()
		return !active
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, f.health(f.second))
	assert.Equal(t, 1, f.gateway.count(engine.EventCardExecutionCompleted))
}

func TestJoinAndWelcome(t *testing.T) {
	f := newFixture(t, 0)

	again, err := f.svc.JoinRoom(f.room.ID, "bob", false)
	require.NoError(t, err)
	assert.True(t, again.Reconnected)
	assert.Equal(t, f.second, again.MemberID)

	require.NoError(t, f.svc.Welcome(f.second))
	assert.Equal(t, 1, f.gateway.count(engine.EventGameStateUpdate))
	assert.Zero(t, f.gateway.count(engine.EventHandUpdate), "no hand before the game starts")

	f.start(t)
	require.NoError(t, f.svc.Welcome(f.second))
	assert.Equal(t, 3, f.gateway.count(engine.EventHandUpdate))

	assert.ErrorIs(t, f.svc.Welcome("ghost"), game.ErrRoomNotFound)

	rooms := f.svc.ListRooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, 2, rooms[0].PlayerCount)
}
