package game

import "github.com/NicoPieee/onomatoparty2-server-clean/internal/audit"

// Event is a notification produced by a room or registry operation.
// Operations mutate state and return the events to deliver; the session
// coordinator owns the fan-out, so the core never touches a socket.
type Event interface {
	EventType() string
}

// PlayerInfo is the outward-facing view of a player.
type PlayerInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// GroupInfo is one submission group: everyone who submitted the same
// answer text this round.
type GroupInfo struct {
	Answer         string   `json:"answer"`
	SubmitterIDs   []string `json:"submitterIds"`
	SubmitterNames []string `json:"submitterNames"`
}

// PlayerSummary extends PlayerInfo with the player's most-used answer,
// reported at game end.
type PlayerSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Points    int    `json:"points"`
	TopAnswer string `json:"topAnswer,omitempty"`
	TopCount  int    `json:"topCount,omitempty"`
}

// RoomsListEvent carries the full room ID list. Delivered to every
// connected client.
type RoomsListEvent struct {
	RoomIDs []string
}

func (RoomsListEvent) EventType() string { return "roomsList" }

// PlayersUpdateEvent carries the room's current player list.
type PlayersUpdateEvent struct {
	RoomID  string
	Players []PlayerInfo
}

func (PlayersUpdateEvent) EventType() string { return "updatePlayers" }

// RoomInfoEvent announces the room's deck name.
type RoomInfoEvent struct {
	RoomID   string
	DeckName string
}

func (RoomInfoEvent) EventType() string { return "updateRoomInfo" }

// GameStartedEvent announces the randomly chosen first parent.
type GameStartedEvent struct {
	RoomID string
	Parent PlayerInfo
}

func (GameStartedEvent) EventType() string { return "gameStarted" }

// CardDrawnEvent announces the card the parent revealed.
type CardDrawnEvent struct {
	RoomID string
	CardID string
}

func (CardDrawnEvent) EventType() string { return "cardDrawn" }

// SubmissionListEvent delivers the complete group list to the current
// parent's connection only. If that connection is gone the event is
// dropped, never retried.
type SubmissionListEvent struct {
	RoomID   string
	ParentID string
	Groups   []GroupInfo
}

func (SubmissionListEvent) EventType() string { return "onomatopoeiaList" }

// AnswerChosenEvent announces the round's winners and the updated
// player list.
type AnswerChosenEvent struct {
	RoomID      string
	ChosenNames []string
	Players     []PlayerInfo
}

func (AnswerChosenEvent) EventType() string { return "onomatopoeiaChosen" }

// NewTurnEvent announces the next round's parent.
type NewTurnEvent struct {
	RoomID string
	Parent PlayerInfo
	Round  int
}

func (NewTurnEvent) EventType() string { return "newTurn" }

// GameOverEvent carries the final standings and per-player usage
// summary. The room is gone from the registry by the time this event
// is delivered.
type GameOverEvent struct {
	RoomID  string
	Winners []PlayerInfo
	Players []PlayerSummary
}

func (GameOverEvent) EventType() string { return "gameOver" }

// SubmissionRecordedEvent asks the coordinator to append an audit
// record. Routed to the audit sink, never to a client.
type SubmissionRecordedEvent struct {
	Record audit.SubmissionRecord
}

func (SubmissionRecordedEvent) EventType() string { return "auditSubmission" }

// ChoiceRecordedEvent is the audit counterpart of a parent's choice.
type ChoiceRecordedEvent struct {
	Record audit.ChoiceRecord
}

func (ChoiceRecordedEvent) EventType() string { return "auditChoice" }
