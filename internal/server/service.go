package server

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/NicoPieee/onomatoparty2-server-clean/internal/audit"
	"github.com/NicoPieee/onomatoparty2-server-clean/internal/game"
)

const auditWriteTimeout = 5 * time.Second

// Transport delivers outbound messages to connected clients. *Server
// implements it; tests substitute a recording fake.
type Transport interface {
	BroadcastAll(msg *Message)
	BroadcastToRoom(roomID string, msg *Message)
	SendToConn(connID string, msg *Message) error
}

// Client is one connected player as the service sees it.
type Client interface {
	ID() string
	Room() string
	SetRoom(roomID string)
	SendMessage(msg *Message) error
}

// GameService is the session coordinator. It owns the only path
// between the transport and the game core: inbound messages become
// registry calls, and the events those calls return are fanned out to
// the right audience. Room-scoped events go to everyone in the room,
// the submission list goes to the current parent only, and audit
// events go to the sink without blocking gameplay.
type GameService struct {
	registry  *game.Registry
	transport Transport
	sink      audit.Sink
	logger    *log.Logger
}

// NewGameService creates a new game service. A nil sink disables
// auditing.
func NewGameService(registry *game.Registry, transport Transport, sink audit.Sink, logger *log.Logger) *GameService {
	if sink == nil {
		sink = audit.NopSink{}
	}

	return &GameService{
		registry:  registry,
		transport: transport,
		sink:      sink,
		logger:    logger.WithPrefix("game-service"),
	}
}

// HandleCreateRoom creates a room with the sender as its first player.
// Failures are reported to the sender only.
func (gs *GameService) HandleCreateRoom(c Client, data CreateRoomData) {
	_, events, err := gs.registry.CreateRoom(data.RoomID, c.ID(), data.PlayerName, data.DeckName)
	if err != nil {
		gs.logger.Info("create room rejected", "room", data.RoomID, "error", err)
		gs.sendError(c, createRoomErrorReason(err))
		return
	}

	c.SetRoom(data.RoomID)
	gs.logger.Info("room created", "room", data.RoomID, "deck", data.DeckName, "player", data.PlayerName)
	gs.dispatch(events)
}

// HandleJoinRoom adds the sender to an existing room.
func (gs *GameService) HandleJoinRoom(c Client, data JoinRoomData) {
	_, events, err := gs.registry.JoinRoom(data.RoomID, data.PlayerName, c.ID())
	if err != nil {
		gs.logger.Info("join room rejected", "room", data.RoomID, "error", err)
		gs.sendError(c, joinRoomErrorReason(err))
		return
	}

	c.SetRoom(data.RoomID)
	gs.logger.Info("player joined", "room", data.RoomID, "player", data.PlayerName)
	gs.dispatch(events)
}

// HandleStartGame begins play in the sender's room.
func (gs *GameService) HandleStartGame(c Client, data StartGameData) {
	gs.dispatch(gs.registry.StartGame(data.RoomID))
}

// HandleDrawCard reveals the next card. The registry drops the request
// silently when the sender is not the current parent.
func (gs *GameService) HandleDrawCard(c Client, data DrawCardData) {
	gs.dispatch(gs.registry.DrawCard(data.RoomID, c.ID()))
}

// HandleSubmit records the sender's answer for the current card.
func (gs *GameService) HandleSubmit(c Client, data SubmitData) {
	gs.dispatch(gs.registry.SubmitAnswer(data.RoomID, c.ID(), data.Text))
}

// HandleChoose applies the parent's pick and advances the turn.
func (gs *GameService) HandleChoose(c Client, data ChooseData) {
	gs.dispatch(gs.registry.ChooseAnswer(data.RoomID, data.Text))
}

// HandleNextTurn skips the current round without awarding points.
func (gs *GameService) HandleNextTurn(c Client, data NextTurnData) {
	gs.dispatch(gs.registry.ForceNextTurn(data.RoomID))
}

// HandleGetRooms sends the current room list to the sender only.
func (gs *GameService) HandleGetRooms(c Client) {
	msg, err := NewMessage(MessageTypeRoomsList, RoomsListData{RoomIDs: gs.registry.RoomIDs()})
	if err != nil {
		gs.logger.Error("failed to create rooms list message", "error", err)
		return
	}

	if err := c.SendMessage(msg); err != nil {
		gs.logger.Debug("failed to send rooms list", "conn", c.ID(), "error", err)
	}
}

// HandleDisconnect removes the connection's player from any room it
// was in.
func (gs *GameService) HandleDisconnect(connID string) {
	gs.dispatch(gs.registry.HandleDisconnect(connID))
}

// dispatch fans a batch of game events out to their audiences.
func (gs *GameService) dispatch(events []game.Event) {
	for _, ev := range events {
		switch e := ev.(type) {
		case game.RoomsListEvent:
			gs.broadcastAll(MessageTypeRoomsList, RoomsListData{RoomIDs: e.RoomIDs})

		case game.PlayersUpdateEvent:
			gs.broadcastRoom(e.RoomID, MessageTypePlayers, PlayersData{RoomID: e.RoomID, Players: e.Players})

		case game.RoomInfoEvent:
			gs.broadcastRoom(e.RoomID, MessageTypeRoomInfo, RoomInfoData{RoomID: e.RoomID, DeckName: e.DeckName})

		case game.GameStartedEvent:
			gs.broadcastRoom(e.RoomID, MessageTypeGameStarted, GameStartedData{RoomID: e.RoomID, Parent: e.Parent})

		case game.CardDrawnEvent:
			gs.broadcastRoom(e.RoomID, MessageTypeCardDrawn, CardDrawnData{RoomID: e.RoomID, CardID: e.CardID})

		case game.SubmissionListEvent:
			gs.sendSubmissionList(e)

		case game.AnswerChosenEvent:
			gs.broadcastRoom(e.RoomID, MessageTypeAnswerChosen, AnswerChosenData{
				RoomID:      e.RoomID,
				ChosenNames: e.ChosenNames,
				Players:     e.Players,
			})

		case game.NewTurnEvent:
			gs.broadcastRoom(e.RoomID, MessageTypeNewTurn, NewTurnData{RoomID: e.RoomID, Parent: e.Parent, Round: e.Round})

		case game.GameOverEvent:
			gs.broadcastRoom(e.RoomID, MessageTypeGameOver, GameOverData{
				RoomID:  e.RoomID,
				Winners: e.Winners,
				Players: e.Players,
			})

		case game.SubmissionRecordedEvent:
			go gs.recordSubmission(e.Record)

		case game.ChoiceRecordedEvent:
			go gs.recordChoice(e.Record)

		default:
			gs.logger.Warn("unroutable game event", "type", ev.EventType())
		}
	}
}

// sendSubmissionList delivers the grouped answers to the current
// parent's connection only. A missing connection means the event is
// dropped; the round stalls until the parent reconnects or the room
// empties.
func (gs *GameService) sendSubmissionList(e game.SubmissionListEvent) {
	msg, err := NewMessage(MessageTypeAnswerList, AnswerListData{RoomID: e.RoomID, Groups: e.Groups})
	if err != nil {
		gs.logger.Error("failed to create answer list message", "error", err)
		return
	}

	if err := gs.transport.SendToConn(e.ParentID, msg); err != nil {
		gs.logger.Warn("parent unreachable, dropping answer list", "room", e.RoomID, "parent", e.ParentID)
	}
}

func (gs *GameService) broadcastAll(messageType MessageType, data any) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		gs.logger.Error("failed to create message", "type", messageType, "error", err)
		return
	}

	gs.transport.BroadcastAll(msg)
}

func (gs *GameService) broadcastRoom(roomID string, messageType MessageType, data any) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		gs.logger.Error("failed to create message", "type", messageType, "error", err)
		return
	}

	gs.transport.BroadcastToRoom(roomID, msg)
}

func (gs *GameService) recordSubmission(rec audit.SubmissionRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	if err := gs.sink.RecordSubmission(ctx, rec); err != nil {
		gs.logger.Error("failed to record submission", "room", rec.RoomID, "error", err)
	}
}

func (gs *GameService) recordChoice(rec audit.ChoiceRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	if err := gs.sink.RecordChoice(ctx, rec); err != nil {
		gs.logger.Error("failed to record choice", "room", rec.RoomID, "error", err)
	}
}

func (gs *GameService) sendError(c Client, reason string) {
	msg, err := NewMessage(MessageTypeError, ErrorData{Reason: reason})
	if err != nil {
		gs.logger.Error("failed to create error message", "error", err)
		return
	}

	if err := c.SendMessage(msg); err != nil {
		gs.logger.Debug("failed to send error", "conn", c.ID(), "error", err)
	}
}

func createRoomErrorReason(err error) string {
	switch {
	case errors.Is(err, game.ErrRoomExists):
		return "a room with that ID already exists"
	case errors.Is(err, game.ErrAssetLookup):
		return "unknown deck"
	default:
		return "could not create room"
	}
}

func joinRoomErrorReason(err error) string {
	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		return "room not found"
	case errors.Is(err, game.ErrNameTaken):
		return "that name is already taken in this room"
	default:
		return "could not join room"
	}
}
