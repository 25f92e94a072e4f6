package server

import (
	"encoding/json"
	"time"

	"github.com/NicoPieee/onomatoparty2-server-clean/internal/game"
)

// MessageType names a wire event. Inbound and outbound events share
// the envelope; the type field selects the payload shape.
type MessageType string

const (
	// Client → server
	MessageTypeCreateRoom MessageType = "createRoom"
	MessageTypeJoinRoom   MessageType = "joinRoom"
	MessageTypeStartGame  MessageType = "startGame"
	MessageTypeDrawCard   MessageType = "drawCard"
	MessageTypeSubmit     MessageType = "submitOnomatopoeia"
	MessageTypeChoose     MessageType = "chooseOnomatopoeia"
	MessageTypeNextTurn   MessageType = "nextTurn"
	MessageTypeGetRooms   MessageType = "getRooms"

	// Server → client
	MessageTypeRoomsList    MessageType = "roomsList"
	MessageTypePlayers      MessageType = "updatePlayers"
	MessageTypeRoomInfo     MessageType = "updateRoomInfo"
	MessageTypeGameStarted  MessageType = "gameStarted"
	MessageTypeCardDrawn    MessageType = "cardDrawn"
	MessageTypeAnswerList   MessageType = "onomatopoeiaList"
	MessageTypeAnswerChosen MessageType = "onomatopoeiaChosen"
	MessageTypeNewTurn      MessageType = "newTurn"
	MessageTypeGameOver     MessageType = "gameOver"
	MessageTypeError        MessageType = "error"
)

// Message is the websocket envelope shared by both directions.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage wraps a payload in an envelope with the current timestamp.
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → server payloads

type CreateRoomData struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
	DeckName   string `json:"deckName"`
}

type JoinRoomData struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

type StartGameData struct {
	RoomID string `json:"roomId"`
}

type DrawCardData struct {
	RoomID string `json:"roomId"`
}

type SubmitData struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

type ChooseData struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

type NextTurnData struct {
	RoomID string `json:"roomId"`
}

// Server → client payloads

type RoomsListData struct {
	RoomIDs []string `json:"roomIds"`
}

type PlayersData struct {
	RoomID  string            `json:"roomId"`
	Players []game.PlayerInfo `json:"players"`
}

type RoomInfoData struct {
	RoomID   string `json:"roomId"`
	DeckName string `json:"deckName"`
}

type GameStartedData struct {
	RoomID string          `json:"roomId"`
	Parent game.PlayerInfo `json:"parent"`
}

type CardDrawnData struct {
	RoomID string `json:"roomId"`
	CardID string `json:"cardId"`
}

type AnswerListData struct {
	RoomID string           `json:"roomId"`
	Groups []game.GroupInfo `json:"groups"`
}

type AnswerChosenData struct {
	RoomID      string            `json:"roomId"`
	ChosenNames []string          `json:"chosenNames"`
	Players     []game.PlayerInfo `json:"players"`
}

type NewTurnData struct {
	RoomID string          `json:"roomId"`
	Parent game.PlayerInfo `json:"parent"`
	Round  int             `json:"round"`
}

type GameOverData struct {
	RoomID  string               `json:"roomId"`
	Winners []game.PlayerInfo    `json:"winners"`
	Players []game.PlayerSummary `json:"players"`
}

type ErrorData struct {
	Reason string `json:"reason"`
}
