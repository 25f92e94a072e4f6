package game

import (
	"fmt"
	rand "math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/NicoPieee/onomatoparty2-server-clean/internal/assets"
	"github.com/NicoPieee/onomatoparty2-server-clean/internal/randutil"
)

// Registry owns every room in the process, keyed by room ID. The
// registry's own lock only guards the map and creation order; gameplay
// within a room runs under that room's lock, so no operation ever
// serializes two unrelated rooms against each other.
type Registry struct {
	mu       sync.Mutex
	rooms    map[string]*Room
	order    []string
	provider assets.Provider
	rng      *rand.Rand
	logger   *log.Logger
}

// NewRegistry creates an empty registry. The rng seeds per-room
// generators, so a fixed seed reproduces shuffles and parent picks.
func NewRegistry(provider assets.Provider, rng *rand.Rand, logger *log.Logger) *Registry {
	return &Registry{
		rooms:    make(map[string]*Room),
		provider: provider,
		rng:      rng,
		logger:   logger.WithPrefix("registry"),
	}
}

// CreateRoom builds a room with the creator as its sole player. The
// deck is resolved through the asset provider and shuffled once.
func (reg *Registry) CreateRoom(roomID, creatorID, creatorName, deckName string) (*Room, []Event, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, exists := reg.rooms[roomID]; exists {
		return nil, nil, ErrRoomExists
	}

	cards, err := reg.provider.DeckCards(deckName)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrAssetLookup, err)
	}

	roomRNG := randutil.New(reg.rng.Int64())
	room := newRoom(roomID, deckName, cards, Player{ID: creatorID, Name: creatorName}, roomRNG)
	reg.rooms[roomID] = room
	reg.order = append(reg.order, roomID)

	reg.logger.Info("room created", "room", roomID, "deck", deckName, "cards", len(cards), "creator", creatorName)

	events := []Event{
		RoomsListEvent{RoomIDs: reg.roomIDsLocked()},
		PlayersUpdateEvent{RoomID: roomID, Players: room.Players()},
		RoomInfoEvent{RoomID: roomID, DeckName: deckName},
	}
	return room, events, nil
}

// JoinRoom seats a new player at the end of the room's player list.
func (reg *Registry) JoinRoom(roomID, name, connID string) (*Player, []Event, error) {
	room, ok := reg.Room(roomID)
	if !ok {
		return nil, nil, ErrRoomNotFound
	}

	player, events, err := room.join(name, connID)
	if err != nil {
		return nil, nil, err
	}

	reg.logger.Info("player joined", "room", roomID, "player", name)
	return player, events, nil
}

// Room looks up a room by ID.
func (reg *Registry) Room(roomID string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[roomID]
	return room, ok
}

// RoomIDs returns all room IDs in creation order.
func (reg *Registry) RoomIDs() []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.roomIDsLocked()
}

func (reg *Registry) roomIDsLocked() []string {
	return append([]string(nil), reg.order...)
}

// StartGame starts the game in a room. A missing room is a silent
// no-op, as for every room-addressed event other than join.
func (reg *Registry) StartGame(roomID string) []Event {
	room, ok := reg.Room(roomID)
	if !ok {
		return nil
	}
	return room.StartGame()
}

// DrawCard asks the room to reveal the next card. Ends the game (and
// deletes the room) when the deck is already exhausted.
func (reg *Registry) DrawCard(roomID, requesterID string) []Event {
	room, ok := reg.Room(roomID)
	if !ok {
		return nil
	}

	events, over := room.DrawCard(requesterID)
	if over {
		reg.deleteRoom(roomID)
		events = append(events, RoomsListEvent{RoomIDs: reg.RoomIDs()})
	}
	return events
}

// SubmitAnswer records a submission in the room.
func (reg *Registry) SubmitAnswer(roomID, submitterID, text string) []Event {
	room, ok := reg.Room(roomID)
	if !ok {
		return nil
	}
	return room.SubmitAnswer(submitterID, text)
}

// ChooseAnswer applies the parent's pick. Deletes the room when the
// deck ran out and the game ended.
func (reg *Registry) ChooseAnswer(roomID, text string) []Event {
	room, ok := reg.Room(roomID)
	if !ok {
		return nil
	}

	events, over := room.ChooseAnswer(text)
	if over {
		reg.deleteRoom(roomID)
		events = append(events, RoomsListEvent{RoomIDs: reg.RoomIDs()})
	}
	return events
}

// ForceNextTurn rotates the parent without waiting for submissions.
func (reg *Registry) ForceNextTurn(roomID string) []Event {
	room, ok := reg.Room(roomID)
	if !ok {
		return nil
	}
	return room.ForceNextTurn()
}

// HandleDisconnect removes the connection's player from every room
// holding it. Emptied rooms are deleted and the new room list is
// announced; otherwise the room's player list is. Turn state stays
// untouched even when the parent leaves.
func (reg *Registry) HandleDisconnect(connID string) []Event {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var events []Event
	for _, roomID := range reg.roomIDsLocked() {
		room, ok := reg.rooms[roomID]
		if !ok {
			continue
		}

		removed, empty, roomEvents := room.removePlayer(connID)
		if !removed {
			continue
		}

		if empty {
			reg.deleteRoomLocked(roomID)
			reg.logger.Info("room deleted, last player disconnected", "room", roomID)
			events = append(events, RoomsListEvent{RoomIDs: reg.roomIDsLocked()})
			continue
		}

		reg.logger.Info("player disconnected", "room", roomID, "conn", connID)
		events = append(events, roomEvents...)
	}

	return events
}

// Count returns the number of live rooms.
func (reg *Registry) Count() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

func (reg *Registry) deleteRoom(roomID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.deleteRoomLocked(roomID)
}

func (reg *Registry) deleteRoomLocked(roomID string) {
	if _, ok := reg.rooms[roomID]; !ok {
		return
	}

	delete(reg.rooms, roomID)
	for i, id := range reg.order {
		if id == roomID {
			reg.order = append(reg.order[:i], reg.order[i+1:]...)
			break
		}
	}
}
