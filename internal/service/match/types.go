package match

import "time"

type Entry struct {
	UserID     int64     `json:"userId"`
	Nickname   string    `json:"nickname"`
	Avatar     string    `json:"avatar"`
	MMR        int       `json:"mmr"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

type QueueStatus string

const (
	QueueStatusIdle    QueueStatus = "idle"
	QueueStatusQueued  QueueStatus = "queued"
	QueueStatusMatched QueueStatus = "matched"
)

type StatusResult struct {
	Status   QueueStatus `json:"status"`
	RoomID   string      `json:"roomId,omitempty"`
	Code     string      `json:"code,omitempty"`
	JoinedAt *time.Time  `json:"joinedAt,omitempty"`
}

// MatchedRoom reports one room formed by a grouping pass so the caller can
// bind transport sessions to it.
type MatchedRoom struct {
	RoomID  string
	Code    string
	Players []Entry
}

type matchNotifyPayload struct {
	RoomID string `json:"roomId"`
	Code   string `json:"code"`
}
