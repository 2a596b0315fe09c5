package model

import "time"

// MessageDTO はメッセージのワイヤ表現。送信後は不変で、
// 並び順のキーはSentAtの昇順。MessageIDとSentAtはサーバーが採番する。
type MessageDTO struct {
	MessageID  int64  `json:"messageId,omitempty"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	ListingID  int64  `json:"listingId"`
	Content    string `json:"content"`
	SentAt     string `json:"sentAt,omitempty"`
	IsRead     bool   `json:"isRead,omitempty"`
}

// sentAtLayouts はバックエンドが返す送信時刻の書式。
// タイムゾーン付きRFC3339とゾーンなしのLocalDateTime表現の両方を受け付ける。
var sentAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// SentTime はSentAtをパースして返す。空または解釈不能な場合はokがfalseになる。
func (m *MessageDTO) SentTime() (time.Time, bool) {
	return ParseSentAt(m.SentAt)
}

// ParseSentAt は送信時刻文字列をパースする。
func ParseSentAt(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range sentAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Conversation は1つの出品と1人の相手との間のスレッドから導出される要約。
// 永続化されない。キーは(ListingID, CounterpartID)で、一覧内で一意である。
type Conversation struct {
	ListingID       int64  `json:"listingId"`
	ListingTitle    string `json:"listingTitle"`
	CounterpartID   string `json:"otherParticipantId"`
	CounterpartName string `json:"otherParticipantName"`
	LastMessage     string `json:"lastMessage,omitempty"`
	LastMessageAt   string `json:"lastMessageAt,omitempty"`
	ListingImageURL string `json:"listingImageUrl,omitempty"`
}

// LastMessageTime はLastMessageAtをパースして返す。
func (c *Conversation) LastMessageTime() (time.Time, bool) {
	return ParseSentAt(c.LastMessageAt)
}
