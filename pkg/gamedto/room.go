package gamedto

import "time"

// PlayerView is one seat as exposed to clients.
type PlayerView struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	IsReady     bool   `json:"isReady"`
	Symbol      string `json:"symbol,omitempty"`
}

// MoveView is one move of a room or match history.
type MoveView struct {
	UserID    string    `json:"userId"`
	CellIndex int       `json:"cellIndex"`
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomView is the client-facing room snapshot.
type RoomView struct {
	Code          string       `json:"code"`
	HostID        string       `json:"hostId"`
	Players       []PlayerView `json:"players"`
	Status        string       `json:"status"`
	CurrentTurnID string       `json:"currentTurnId,omitempty"`
	Board         []string     `json:"board"`
	WinnerID      string       `json:"winnerId,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// RoomEvent wraps a room snapshot pushed over a subscription. Deleted is set
// on the final event of a removed room.
type RoomEvent struct {
	Room    *RoomView `json:"room,omitempty"`
	Deleted bool      `json:"deleted,omitempty"`
}

// CreateRoomResponse returns the shareable code of a fresh room.
type CreateRoomResponse struct {
	Code string    `json:"code"`
	Room *RoomView `json:"room"`
}

// MoveRequest is the body of a move submission.
type MoveRequest struct {
	CellIndex int `json:"cellIndex"`
}
