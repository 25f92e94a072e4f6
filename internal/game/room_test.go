package game

import (
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicoPieee/onomatoparty2-server-clean/internal/randutil"
)

// stubProvider serves fixed decks without touching a filesystem.
type stubProvider struct {
	decks map[string][]string
}

func (s stubProvider) DeckCards(name string) ([]string, error) {
	cards, ok := s.decks[name]
	if !ok {
		return nil, fmt.Errorf("no such deck %q", name)
	}
	return cards, nil
}

func (s stubProvider) DeckNames() ([]string, error) {
	var names []string
	for name := range s.decks {
		names = append(names, name)
	}
	return names, nil
}

func newTestRegistry(t *testing.T, decks map[string][]string) *Registry {
	t.Helper()
	logger := log.New(io.Discard)
	return NewRegistry(stubProvider{decks: decks}, randutil.New(1), logger)
}

// eventsOf filters events down to one concrete type.
func eventsOf[T Event](events []Event) []T {
	var out []T
	for _, ev := range events {
		if typed, ok := ev.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

// threePlayerRoom creates a started room with players a, b, c and the
// given deck, and returns the registry, room, and the three seats
// ordered parent-first.
func threePlayerRoom(t *testing.T, cards []string) (*Registry, *Room, []PlayerInfo) {
	t.Helper()

	reg := newTestRegistry(t, map[string][]string{"animals": cards})

	room, _, err := reg.CreateRoom("room1", "conn-a", "a", "animals")
	require.NoError(t, err)
	_, _, err = reg.JoinRoom("room1", "b", "conn-b")
	require.NoError(t, err)
	_, _, err = reg.JoinRoom("room1", "c", "conn-c")
	require.NoError(t, err)

	events := reg.StartGame("room1")
	started := eventsOf[GameStartedEvent](events)
	require.Len(t, started, 1)

	players := room.Players()
	parentIdx := room.TurnIndex()
	ordered := []PlayerInfo{players[parentIdx]}
	for i := 1; i < len(players); i++ {
		ordered = append(ordered, players[(parentIdx+i)%len(players)])
	}
	require.Equal(t, started[0].Parent.ID, ordered[0].ID)

	return reg, room, ordered
}

func TestCreateRoomExclusive(t *testing.T) {
	reg := newTestRegistry(t, map[string][]string{"animals": {"cat.png"}})

	_, events, err := reg.CreateRoom("room1", "conn-a", "a", "animals")
	require.NoError(t, err)
	require.Len(t, eventsOf[RoomsListEvent](events), 1)
	assert.Equal(t, []string{"room1"}, eventsOf[RoomsListEvent](events)[0].RoomIDs)

	_, _, err = reg.CreateRoom("room1", "conn-b", "b", "animals")
	assert.ErrorIs(t, err, ErrRoomExists)
	assert.Equal(t, 1, reg.Count())
}

func TestCreateRoomUnknownDeck(t *testing.T) {
	reg := newTestRegistry(t, map[string][]string{})

	_, _, err := reg.CreateRoom("room1", "conn-a", "a", "nope")
	assert.ErrorIs(t, err, ErrAssetLookup)
	assert.Equal(t, 0, reg.Count())
}

func TestCreateRoomInitialState(t *testing.T) {
	reg := newTestRegistry(t, map[string][]string{"animals": {"cat.png", "dog.png"}})

	room, _, err := reg.CreateRoom("room1", "conn-a", "a", "animals")
	require.NoError(t, err)

	assert.Equal(t, StateLobby, room.State())
	assert.Equal(t, 1, room.Round())
	assert.Equal(t, 0, room.TurnIndex())
	assert.Equal(t, 2, room.DeckRemaining())
	assert.Equal(t, "animals", room.DeckName())
	require.Len(t, room.Players(), 1)
	assert.Equal(t, "a", room.Players()[0].Name)
	assert.Equal(t, 0, room.Players()[0].Points)
}

func TestJoinRoomNameTaken(t *testing.T) {
	reg := newTestRegistry(t, map[string][]string{"animals": {"cat.png"}})

	room, _, err := reg.CreateRoom("room1", "conn-a", "alice", "animals")
	require.NoError(t, err)

	_, _, err = reg.JoinRoom("room1", "alice", "conn-b")
	assert.ErrorIs(t, err, ErrNameTaken)
	assert.Len(t, room.Players(), 1)
}

func TestJoinRoomNotFound(t *testing.T) {
	reg := newTestRegistry(t, map[string][]string{"animals": {"cat.png"}})

	_, _, err := reg.JoinRoom("missing", "alice", "conn-a")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestJoinRoomAppendsInOrder(t *testing.T) {
	reg := newTestRegistry(t, map[string][]string{"animals": {"cat.png"}})

	_, _, err := reg.CreateRoom("room1", "conn-a", "a", "animals")
	require.NoError(t, err)
	_, events, err := reg.JoinRoom("room1", "b", "conn-b")
	require.NoError(t, err)

	updates := eventsOf[PlayersUpdateEvent](events)
	require.Len(t, updates, 1)
	require.Len(t, updates[0].Players, 2)
	assert.Equal(t, "a", updates[0].Players[0].Name)
	assert.Equal(t, "b", updates[0].Players[1].Name)
}

func TestRoomIDsInCreationOrder(t *testing.T) {
	reg := newTestRegistry(t, map[string][]string{"animals": {"cat.png"}})

	for _, id := range []string{"zeta", "alpha", "mid"} {
		_, _, err := reg.CreateRoom(id, "conn-"+id, "p-"+id, "animals")
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, reg.RoomIDs())
}

func TestDrawCardOnlyParent(t *testing.T) {
	reg, room, seats := threePlayerRoom(t, []string{"cat.png", "dog.png"})

	// A non-parent draw request is silently dropped.
	events := reg.DrawCard("room1", seats[1].ID)
	assert.Empty(t, events)
	assert.Equal(t, StateTurnStart, room.State())

	events = reg.DrawCard("room1", seats[0].ID)
	drawn := eventsOf[CardDrawnEvent](events)
	require.Len(t, drawn, 1)
	assert.Equal(t, drawn[0].CardID, room.CurrentCard())
	assert.Equal(t, StateAwaitingSubmissions, room.State())
	assert.Equal(t, 1, room.DeckRemaining())
}

func TestSubmissionCompletionTriggersOnce(t *testing.T) {
	reg, room, seats := threePlayerRoom(t, []string{"cat.png", "dog.png"})
	parent, b, c := seats[0], seats[1], seats[2]

	reg.DrawCard("room1", parent.ID)

	// First distinct submitter: no list yet.
	events := reg.SubmitAnswer("room1", b.ID, "boing")
	assert.Empty(t, eventsOf[SubmissionListEvent](events))

	// Duplicate by the same player: still no list.
	events = reg.SubmitAnswer("room1", b.ID, "boing")
	assert.Empty(t, eventsOf[SubmissionListEvent](events))

	// Second distinct submitter completes the round.
	events = reg.SubmitAnswer("room1", c.ID, "boing")
	lists := eventsOf[SubmissionListEvent](events)
	require.Len(t, lists, 1)
	assert.Equal(t, parent.ID, lists[0].ParentID)
	require.Len(t, lists[0].Groups, 1)
	assert.Equal(t, "boing", lists[0].Groups[0].Answer)
	assert.ElementsMatch(t, []string{b.ID, c.ID}, lists[0].Groups[0].SubmitterIDs)
	assert.Equal(t, StateAwaitingChoice, room.State())

	// Further submissions never re-deliver the list.
	events = reg.SubmitAnswer("room1", c.ID, "splat")
	assert.Empty(t, eventsOf[SubmissionListEvent](events))
}

func TestSubmissionGroupingByExactText(t *testing.T) {
	reg, _, seats := threePlayerRoom(t, []string{"cat.png", "dog.png"})
	parent, b, c := seats[0], seats[1], seats[2]

	reg.DrawCard("room1", parent.ID)
	reg.SubmitAnswer("room1", b.ID, "boing")
	events := reg.SubmitAnswer("room1", c.ID, "Boing")

	// Case differs, so the texts form two separate groups.
	lists := eventsOf[SubmissionListEvent](events)
	require.Len(t, lists, 1)
	require.Len(t, lists[0].Groups, 2)
	assert.Equal(t, "boing", lists[0].Groups[0].Answer)
	assert.Equal(t, "Boing", lists[0].Groups[1].Answer)
}

func TestSubmitAnswerEmitsAuditRecord(t *testing.T) {
	reg, room, seats := threePlayerRoom(t, []string{"cat.png", "dog.png"})
	parent, b := seats[0], seats[1]

	reg.DrawCard("room1", parent.ID)
	card := room.CurrentCard()

	events := reg.SubmitAnswer("room1", b.ID, "boing")
	recs := eventsOf[SubmissionRecordedEvent](events)
	require.Len(t, recs, 1)
	assert.Equal(t, "room1", recs[0].Record.RoomID)
	assert.Equal(t, 1, recs[0].Record.Round)
	assert.Equal(t, card, recs[0].Record.CardID)
	assert.Equal(t, b.ID, recs[0].Record.PlayerID)
	assert.Equal(t, b.Name, recs[0].Record.PlayerName)
	assert.Equal(t, "boing", recs[0].Record.Answer)
}

func TestChooseAnswerScoring(t *testing.T) {
	reg, room, seats := threePlayerRoom(t, []string{"cat.png", "dog.png"})
	parent, b, c := seats[0], seats[1], seats[2]

	reg.DrawCard("room1", parent.ID)
	reg.SubmitAnswer("room1", b.ID, "boing")
	reg.SubmitAnswer("room1", c.ID, "splat")

	events := reg.ChooseAnswer("room1", "boing")
	chosen := eventsOf[AnswerChosenEvent](events)
	require.Len(t, chosen, 1)
	assert.Equal(t, []string{b.Name}, chosen[0].ChosenNames)

	points := map[string]int{}
	for _, p := range room.Players() {
		points[p.Name] = p.Points
	}
	assert.Equal(t, 1, points[b.Name])
	assert.Equal(t, 0, points[c.Name])
	assert.Equal(t, 0, points[parent.Name])
}

func TestChooseAnswerNoMatchStillAdvances(t *testing.T) {
	reg, room, seats := threePlayerRoom(t, []string{"cat.png", "dog.png"})
	parent, b, c := seats[0], seats[1], seats[2]

	reg.DrawCard("room1", parent.ID)
	reg.SubmitAnswer("room1", b.ID, "boing")
	reg.SubmitAnswer("room1", c.ID, "boing")

	prevIndex := room.TurnIndex()
	events := reg.ChooseAnswer("room1", "never-submitted")

	chosen := eventsOf[AnswerChosenEvent](events)
	require.Len(t, chosen, 1)
	assert.Empty(t, chosen[0].ChosenNames)

	for _, p := range room.Players() {
		assert.Equal(t, 0, p.Points, "no points for an unmatched choice")
	}

	assert.Equal(t, (prevIndex+1)%3, room.TurnIndex())
	assert.Equal(t, 2, room.Round())
	require.Len(t, eventsOf[NewTurnEvent](events), 1)
}

func TestTurnRotation(t *testing.T) {
	reg, room, seats := threePlayerRoom(t, []string{"cat.png", "dog.png", "fox.png"})
	parent, b, c := seats[0], seats[1], seats[2]

	prevIndex := room.TurnIndex()
	reg.DrawCard("room1", parent.ID)
	reg.SubmitAnswer("room1", b.ID, "boing")
	reg.SubmitAnswer("room1", c.ID, "boing")
	events := reg.ChooseAnswer("room1", "boing")

	assert.Equal(t, (prevIndex+1)%3, room.TurnIndex())
	assert.Equal(t, 2, room.Round())
	assert.Equal(t, StateTurnStart, room.State())
	assert.Equal(t, "", room.CurrentCard())

	turns := eventsOf[NewTurnEvent](events)
	require.Len(t, turns, 1)
	assert.Equal(t, 2, turns[0].Round)
	assert.Equal(t, room.Players()[room.TurnIndex()].ID, turns[0].Parent.ID)

	// The groups were cleared: the next round's threshold counts fresh.
	newParent := turns[0].Parent
	reg.DrawCard("room1", newParent.ID)
	var others []PlayerInfo
	for _, p := range room.Players() {
		if p.ID != newParent.ID {
			others = append(others, p)
		}
	}
	ev := reg.SubmitAnswer("room1", others[0].ID, "thud")
	assert.Empty(t, eventsOf[SubmissionListEvent](ev))
	ev = reg.SubmitAnswer("room1", others[1].ID, "thud")
	assert.Len(t, eventsOf[SubmissionListEvent](ev), 1)
}

func TestForceNextTurn(t *testing.T) {
	reg, room, seats := threePlayerRoom(t, []string{"cat.png", "dog.png"})
	parent, b := seats[0], seats[1]

	reg.DrawCard("room1", parent.ID)
	reg.SubmitAnswer("room1", b.ID, "boing")

	prevIndex := room.TurnIndex()
	events := reg.ForceNextTurn("room1")

	require.Len(t, eventsOf[NewTurnEvent](events), 1)
	assert.Equal(t, (prevIndex+1)%3, room.TurnIndex())
	assert.Equal(t, 2, room.Round())
	assert.Equal(t, StateTurnStart, room.State())
}

func TestDrawFromEmptyDeckEndsGame(t *testing.T) {
	reg, _, seats := threePlayerRoom(t, nil)

	events := reg.DrawCard("room1", seats[0].ID)
	over := eventsOf[GameOverEvent](events)
	require.Len(t, over, 1)
	assert.Empty(t, eventsOf[CardDrawnEvent](events))
	assert.Equal(t, 0, reg.Count(), "ended room is removed from the registry")
}

func TestFullGameScenario(t *testing.T) {
	// Three players, one card: create, join, start, draw, both
	// non-parents submit the same text, parent picks it, game ends with
	// the two submitters tied at one point.
	reg, room, seats := threePlayerRoom(t, []string{"card1.png"})
	parent, b, c := seats[0], seats[1], seats[2]

	events := reg.DrawCard("room1", parent.ID)
	drawn := eventsOf[CardDrawnEvent](events)
	require.Len(t, drawn, 1)
	assert.Equal(t, "card1.png", drawn[0].CardID)

	reg.SubmitAnswer("room1", b.ID, "boing")
	events = reg.SubmitAnswer("room1", c.ID, "boing")

	lists := eventsOf[SubmissionListEvent](events)
	require.Len(t, lists, 1)
	require.Len(t, lists[0].Groups, 1)
	assert.Equal(t, "boing", lists[0].Groups[0].Answer)
	assert.ElementsMatch(t, []string{b.ID, c.ID}, lists[0].Groups[0].SubmitterIDs)

	events = reg.ChooseAnswer("room1", "boing")

	chosen := eventsOf[AnswerChosenEvent](events)
	require.Len(t, chosen, 1)
	assert.ElementsMatch(t, []string{b.Name, c.Name}, chosen[0].ChosenNames)

	over := eventsOf[GameOverEvent](events)
	require.Len(t, over, 1)

	var winnerNames []string
	for _, w := range over[0].Winners {
		winnerNames = append(winnerNames, w.Name)
		assert.Equal(t, 1, w.Points)
	}
	assert.ElementsMatch(t, []string{b.Name, c.Name}, winnerNames)

	assert.Equal(t, 0, reg.Count())
	assert.Equal(t, StateGameOver, room.State())
}

func TestGameOverUsageSummary(t *testing.T) {
	reg, _, seats := threePlayerRoom(t, []string{"card1.png"})
	parent, b, c := seats[0], seats[1], seats[2]

	reg.DrawCard("room1", parent.ID)

	// b repeats "boing": usage counts every submission even though the
	// grouping stays idempotent.
	reg.SubmitAnswer("room1", b.ID, "boing")
	reg.SubmitAnswer("room1", b.ID, "boing")
	reg.SubmitAnswer("room1", b.ID, "pow")
	events := reg.SubmitAnswer("room1", c.ID, "pow")
	require.Len(t, eventsOf[SubmissionListEvent](events), 1)

	events = reg.ChooseAnswer("room1", "pow")
	over := eventsOf[GameOverEvent](events)
	require.Len(t, over, 1)

	summaries := map[string]PlayerSummary{}
	for _, s := range over[0].Players {
		summaries[s.Name] = s
	}

	assert.Equal(t, "boing", summaries[b.Name].TopAnswer)
	assert.Equal(t, 2, summaries[b.Name].TopCount)
	assert.Equal(t, "pow", summaries[c.Name].TopAnswer)
	assert.Equal(t, 1, summaries[c.Name].TopCount)
	assert.Equal(t, "", summaries[parent.Name].TopAnswer)
}

func TestGameOverUsageTieFirstSeenWins(t *testing.T) {
	reg, _, seats := threePlayerRoom(t, []string{"card1.png"})
	parent, b, c := seats[0], seats[1], seats[2]

	reg.DrawCard("room1", parent.ID)

	// Equal counts: the answer submitted first keeps the top spot.
	reg.SubmitAnswer("room1", b.ID, "first")
	reg.SubmitAnswer("room1", b.ID, "second")
	events := reg.SubmitAnswer("room1", c.ID, "anything")
	require.Len(t, eventsOf[SubmissionListEvent](events), 1)

	events = reg.ChooseAnswer("room1", "anything")
	over := eventsOf[GameOverEvent](events)
	require.Len(t, over, 1)

	for _, s := range over[0].Players {
		if s.Name == b.Name {
			assert.Equal(t, "first", s.TopAnswer)
			assert.Equal(t, 1, s.TopCount)
		}
	}
}

func TestDisconnectCleanup(t *testing.T) {
	reg := newTestRegistry(t, map[string][]string{"animals": {"cat.png"}})

	room, _, err := reg.CreateRoom("room1", "conn-a", "a", "animals")
	require.NoError(t, err)
	_, _, err = reg.JoinRoom("room1", "b", "conn-b")
	require.NoError(t, err)

	events := reg.HandleDisconnect("conn-b")
	updates := eventsOf[PlayersUpdateEvent](events)
	require.Len(t, updates, 1)
	require.Len(t, updates[0].Players, 1)
	assert.Equal(t, "a", updates[0].Players[0].Name)
	assert.Empty(t, eventsOf[RoomsListEvent](events), "room survives with one player left")
	assert.Len(t, room.Players(), 1)

	events = reg.HandleDisconnect("conn-a")
	lists := eventsOf[RoomsListEvent](events)
	require.Len(t, lists, 1)
	assert.Empty(t, lists[0].RoomIDs)
	assert.Equal(t, 0, reg.Count())
}

func TestDisconnectUnknownConnection(t *testing.T) {
	reg := newTestRegistry(t, map[string][]string{"animals": {"cat.png"}})

	_, _, err := reg.CreateRoom("room1", "conn-a", "a", "animals")
	require.NoError(t, err)

	events := reg.HandleDisconnect("conn-unknown")
	assert.Empty(t, events)
	assert.Equal(t, 1, reg.Count())
}

func TestDisconnectedSubmitterShrinksThreshold(t *testing.T) {
	// With b gone after the card is drawn, the threshold recomputes
	// against the live player count: c alone now completes the round.
	reg, _, seats := threePlayerRoom(t, []string{"cat.png", "dog.png"})
	parent, b, c := seats[0], seats[1], seats[2]

	reg.DrawCard("room1", parent.ID)
	reg.HandleDisconnect(b.ID)

	events := reg.SubmitAnswer("room1", c.ID, "boing")
	assert.Len(t, eventsOf[SubmissionListEvent](events), 1)
}

func TestStaleSubmitterGetsNoPoints(t *testing.T) {
	// b submits, then disconnects before the choice. The stale id in
	// the group resolves to no player, so only c scores.
	reg, room, seats := threePlayerRoom(t, []string{"cat.png", "dog.png"})
	parent, b, c := seats[0], seats[1], seats[2]

	reg.DrawCard("room1", parent.ID)
	reg.SubmitAnswer("room1", b.ID, "boing")
	reg.SubmitAnswer("room1", c.ID, "boing")
	reg.HandleDisconnect(b.ID)

	events := reg.ChooseAnswer("room1", "boing")
	chosen := eventsOf[AnswerChosenEvent](events)
	require.Len(t, chosen, 1)
	assert.Equal(t, []string{c.Name}, chosen[0].ChosenNames)

	for _, p := range room.Players() {
		if p.ID == c.ID {
			assert.Equal(t, 1, p.Points)
		} else {
			assert.Equal(t, 0, p.Points)
		}
	}
}

func TestStartGameParentDistribution(t *testing.T) {
	// Over many fresh rooms every seat gets picked as first parent.
	counts := map[int]int{}
	for seed := int64(0); seed < 40; seed++ {
		logger := log.New(io.Discard)
		reg := NewRegistry(stubProvider{decks: map[string][]string{"d": {"x.png"}}}, randutil.New(seed), logger)

		room, _, err := reg.CreateRoom("r", "conn-a", "a", "d")
		require.NoError(t, err)
		_, _, err = reg.JoinRoom("r", "b", "conn-b")
		require.NoError(t, err)
		_, _, err = reg.JoinRoom("r", "c", "conn-c")
		require.NoError(t, err)

		reg.StartGame("r")
		counts[room.TurnIndex()]++
	}

	for seat := 0; seat < 3; seat++ {
		assert.Greater(t, counts[seat], 0, "seat %d never chosen as first parent", seat)
	}
}
