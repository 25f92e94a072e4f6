package game

import (
	rand "math/rand/v2"
	"sync"

	"github.com/NicoPieee/onomatoparty2-server-clean/internal/audit"
	"github.com/NicoPieee/onomatoparty2-server-clean/internal/deck"
)

// State identifies where a room is in its turn cycle.
type State string

const (
	StateLobby               State = "lobby"
	StateTurnStart           State = "turn_start"
	StateAwaitingSubmissions State = "awaiting_submissions"
	StateAwaitingChoice      State = "awaiting_choice"
	StateGameOver            State = "game_over"
)

// Player is a seated participant. ID is the opaque connection
// identifier; Name is unique within the room at join time.
type Player struct {
	ID     string
	Name   string
	Points int
}

// submissionGroup collects the players who submitted the same answer
// text this round. Submitter IDs are an ordered set: a player appears
// at most once no matter how often they repeat the text.
type submissionGroup struct {
	answer     string
	submitters []string
}

// answerUsage is one entry of a player's lifetime usage counter. Kept
// as an ordered slice so the first-seen answer wins count ties at game
// end.
type answerUsage struct {
	answer string
	count  int
}

// Room is an isolated game session. All exported operations lock the
// room, so events against one room are serialized while unrelated
// rooms stay independent. Operations return the notifications to
// deliver and whether the game just ended; the registry deletes ended
// rooms.
type Room struct {
	mu sync.Mutex

	id          string
	deckName    string
	deck        *deck.Deck
	players     []*Player
	turnIndex   int
	currentCard string
	round       int
	state       State
	groups      []submissionGroup
	usage       map[string][]answerUsage
	rng         *rand.Rand
}

func newRoom(id, deckName string, cards []string, creator Player, rng *rand.Rand) *Room {
	return &Room{
		id:       id,
		deckName: deckName,
		deck:     deck.New(cards, rng),
		players:  []*Player{{ID: creator.ID, Name: creator.Name}},
		round:    1,
		state:    StateLobby,
		usage:    make(map[string][]answerUsage),
		rng:      rng,
	}
}

// ID returns the room's registry key.
func (r *Room) ID() string { return r.id }

// DeckName returns the name of the source deck.
func (r *Room) DeckName() string { return r.deckName }

// State returns the room's current phase.
func (r *Room) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Round returns the 1-based round counter.
func (r *Room) Round() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.round
}

// TurnIndex returns the current parent's index into the player list.
func (r *Room) TurnIndex() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.turnIndex
}

// CurrentCard returns the revealed card, or "" before a draw.
func (r *Room) CurrentCard() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentCard
}

// DeckRemaining returns the number of undrawn cards.
func (r *Room) DeckRemaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deck.Remaining()
}

// Players returns a snapshot of the player list in join order.
func (r *Room) Players() []PlayerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playerInfosLocked()
}

func (r *Room) playerInfosLocked() []PlayerInfo {
	infos := make([]PlayerInfo, len(r.players))
	for i, p := range r.players {
		infos[i] = PlayerInfo{ID: p.ID, Name: p.Name, Points: p.Points}
	}
	return infos
}

// parentLocked returns the current parent. The turn index is read
// modulo the player count: a disconnect can shrink the slice under the
// index, and turn state is deliberately left uncorrected.
func (r *Room) parentLocked() *Player {
	if len(r.players) == 0 {
		return nil
	}
	return r.players[r.turnIndex%len(r.players)]
}

func (r *Room) playerByIDLocked(id string) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// join appends a new player. Fails with ErrNameTaken if the name is in
// use.
func (r *Room) join(name, connID string) (*Player, []Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.players {
		if p.Name == name {
			return nil, nil, ErrNameTaken
		}
	}

	player := &Player{ID: connID, Name: name}
	r.players = append(r.players, player)

	return player, []Event{
		PlayersUpdateEvent{RoomID: r.id, Players: r.playerInfosLocked()},
		RoomInfoEvent{RoomID: r.id, DeckName: r.deckName},
	}, nil
}

// StartGame picks the first parent uniformly at random and announces
// them along with the deck name. No card is drawn yet.
func (r *Room) StartGame() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.players) == 0 {
		return nil
	}

	r.turnIndex = r.rng.IntN(len(r.players))
	r.state = StateTurnStart
	parent := r.players[r.turnIndex]

	return []Event{
		GameStartedEvent{RoomID: r.id, Parent: PlayerInfo{ID: parent.ID, Name: parent.Name, Points: parent.Points}},
		RoomInfoEvent{RoomID: r.id, DeckName: r.deckName},
	}
}

// DrawCard reveals the next card. Ignored unless the requester is the
// current parent. Drawing from an exhausted deck ends the game instead.
func (r *Room) DrawCard(requesterID string) (events []Event, over bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent := r.parentLocked()
	if parent == nil || parent.ID != requesterID {
		return nil, false
	}

	card, ok := r.deck.Draw()
	if !ok {
		return r.endGameLocked(), true
	}

	r.currentCard = card
	r.state = StateAwaitingSubmissions

	return []Event{CardDrawnEvent{RoomID: r.id, CardID: card}}, false
}

// SubmitAnswer records one submission. Usage stats count every
// submission; the round's grouping counts each player once per text.
// When every non-parent player has contributed to at least one group
// the full list goes to the parent, exactly once per round.
func (r *Room) SubmitAnswer(submitterID, text string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bumpUsageLocked(submitterID, text)

	group := r.findGroupLocked(text)
	if group == nil {
		r.groups = append(r.groups, submissionGroup{answer: text})
		group = &r.groups[len(r.groups)-1]
	}
	if !contains(group.submitters, submitterID) {
		group.submitters = append(group.submitters, submitterID)
	}

	var submitterName string
	if p := r.playerByIDLocked(submitterID); p != nil {
		submitterName = p.Name
	}

	events := []Event{
		SubmissionRecordedEvent{Record: audit.SubmissionRecord{
			RoomID:     r.id,
			Round:      r.round,
			CardID:     r.currentCard,
			PlayerID:   submitterID,
			PlayerName: submitterName,
			Answer:     text,
		}},
	}

	// The threshold is every current player except the parent. It is
	// recomputed against the live player count, so a disconnect can
	// leave a round permanently one short or complete it retroactively.
	if r.state != StateAwaitingChoice && r.state != StateGameOver &&
		r.totalSubmittersLocked() == len(r.players)-1 {
		r.state = StateAwaitingChoice
		parent := r.parentLocked()
		if parent != nil {
			events = append(events, SubmissionListEvent{
				RoomID:   r.id,
				ParentID: parent.ID,
				Groups:   r.groupInfosLocked(),
			})
		}
	}

	return events
}

// ChooseAnswer awards a point to everyone in the chosen group and
// advances the turn. An unmatched text awards nothing but the round
// still advances.
func (r *Room) ChooseAnswer(text string) (events []Event, over bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var chosenNames []string
	if group := r.findGroupLocked(text); group != nil {
		for _, id := range group.submitters {
			if p := r.playerByIDLocked(id); p != nil {
				p.Points++
				chosenNames = append(chosenNames, p.Name)
			}
		}
	}

	events = []Event{
		ChoiceRecordedEvent{Record: audit.ChoiceRecord{
			RoomID:      r.id,
			Round:       r.round,
			CardID:      r.currentCard,
			Answer:      text,
			ChosenNames: chosenNames,
		}},
		AnswerChosenEvent{RoomID: r.id, ChosenNames: chosenNames, Players: r.playerInfosLocked()},
	}

	r.groups = nil

	if r.deck.IsEmpty() {
		return append(events, r.endGameLocked()...), true
	}

	return append(events, r.advanceTurnLocked()...), false
}

// ForceNextTurn abandons the current round and rotates the parent,
// regardless of submission state.
func (r *Room) ForceNextTurn() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.groups = nil
	return r.advanceTurnLocked()
}

// removePlayer drops the player with the given connection id. Returns
// whether a player was removed and whether the room is now empty. Turn
// state is not touched.
func (r *Room) removePlayer(connID string) (removed, empty bool, events []Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, p := range r.players {
		if p.ID == connID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, len(r.players) == 0, nil
	}

	r.players = append(r.players[:idx], r.players[idx+1:]...)

	if len(r.players) == 0 {
		return true, true, nil
	}

	return true, false, []Event{
		PlayersUpdateEvent{RoomID: r.id, Players: r.playerInfosLocked()},
	}
}

func (r *Room) advanceTurnLocked() []Event {
	if len(r.players) == 0 {
		return nil
	}

	r.turnIndex = (r.turnIndex + 1) % len(r.players)
	r.round++
	r.currentCard = ""
	r.state = StateTurnStart
	parent := r.players[r.turnIndex]

	return []Event{NewTurnEvent{
		RoomID: r.id,
		Parent: PlayerInfo{ID: parent.ID, Name: parent.Name, Points: parent.Points},
		Round:  r.round,
	}}
}

// endGameLocked computes winners and per-player top answers. The
// registry removes the room as soon as the caller reports over=true.
func (r *Room) endGameLocked() []Event {
	r.state = StateGameOver

	maxPoints := 0
	for _, p := range r.players {
		if p.Points > maxPoints {
			maxPoints = p.Points
		}
	}

	var winners []PlayerInfo
	for _, p := range r.players {
		if p.Points == maxPoints {
			winners = append(winners, PlayerInfo{ID: p.ID, Name: p.Name, Points: p.Points})
		}
	}

	summaries := make([]PlayerSummary, len(r.players))
	for i, p := range r.players {
		summary := PlayerSummary{ID: p.ID, Name: p.Name, Points: p.Points}
		// First-seen answer wins ties: entries are in first-use order
		// and only a strictly greater count replaces the current best.
		for _, u := range r.usage[p.ID] {
			if u.count > summary.TopCount {
				summary.TopAnswer = u.answer
				summary.TopCount = u.count
			}
		}
		summaries[i] = summary
	}

	return []Event{GameOverEvent{RoomID: r.id, Winners: winners, Players: summaries}}
}

func (r *Room) bumpUsageLocked(playerID, text string) {
	entries := r.usage[playerID]
	for i := range entries {
		if entries[i].answer == text {
			entries[i].count++
			return
		}
	}
	r.usage[playerID] = append(entries, answerUsage{answer: text, count: 1})
}

func (r *Room) findGroupLocked(text string) *submissionGroup {
	for i := range r.groups {
		if r.groups[i].answer == text {
			return &r.groups[i]
		}
	}
	return nil
}

func (r *Room) totalSubmittersLocked() int {
	total := 0
	for _, g := range r.groups {
		total += len(g.submitters)
	}
	return total
}

func (r *Room) groupInfosLocked() []GroupInfo {
	infos := make([]GroupInfo, len(r.groups))
	for i, g := range r.groups {
		info := GroupInfo{
			Answer:       g.answer,
			SubmitterIDs: append([]string(nil), g.submitters...),
		}
		for _, id := range g.submitters {
			if p := r.playerByIDLocked(id); p != nil {
				info.SubmitterNames = append(info.SubmitterNames, p.Name)
			}
		}
		infos[i] = info
	}
	return infos
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
