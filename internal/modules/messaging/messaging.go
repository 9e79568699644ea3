package messaging

import "time"

// PageSize is the number of conversations per page.
const PageSize = 20

// Push events sent on the recipient's user channel.
const (
	EventNewMessage  = "new-message"
	EventUnreadCount = "unread-count"
)

// Message is one internal message. Only IsRead changes after creation.
type Message struct {
	ID              string    `db:"id"`
	Seq             int64     `db:"seq"`
	SenderID        string    `db:"sender_id"`
	RecipientID     string    `db:"recipient_id"`
	Subject         string    `db:"subject"`
	Content         string    `db:"content"`
	IsRead          bool      `db:"is_read"`
	ParentMessageID *string   `db:"parent_message_id"`
	ConversationID  *string   `db:"conversation_id"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// Participant is the public card of a sender or recipient.
type Participant struct {
	ID        string `db:"id"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Email     string `db:"email"`
	Role      string `db:"role"`
}

// MessageView is a message with both participants resolved.
type MessageView struct {
	Message
	Sender    Participant `db:"sender"`
	Recipient Participant `db:"recipient"`
}

// ConversationSummary is the latest message of a conversation with the
// thread counters, as seen by one user.
type ConversationSummary struct {
	MessageView
	ThreadCount    int `db:"thread_count"`
	UnreadInThread int `db:"unread_in_thread"`
}

// Box narrows a listing to one side of the exchange.
type Box string

const (
	BoxAll   Box = "all"
	BoxInbox Box = "inbox"
	BoxSent  Box = "sent"
)

// ArchiveFilter decides how archived conversations are treated in a listing.
type ArchiveFilter string

const (
	ArchivedExclude ArchiveFilter = "exclude"
	ArchivedInclude ArchiveFilter = "include"
	ArchivedOnly    ArchiveFilter = "only"
)

type ConversationFilter struct {
	Box      Box
	Archived ArchiveFilter
	Page     int
}

func (f ConversationFilter) offset() uint64 {
	if f.Page < 1 {
		return 0
	}
	return uint64((f.Page - 1) * PageSize)
}

// MessageDTO is the wire shape of a message, used by the API and by push events.
type MessageDTO struct {
	ID             string         `json:"id"`
	Sender         ParticipantDTO `json:"senderUser"`
	Recipient      ParticipantDTO `json:"recipientUser"`
	Subject        string         `json:"subject"`
	Content        string         `json:"content"`
	IsRead         bool           `json:"isRead"`
	ParentMessage  *string        `json:"parentMessage"`
	ConversationID *string        `json:"conversationId"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

type ParticipantDTO struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

func (p Participant) dto() ParticipantDTO {
	return ParticipantDTO{ID: p.ID, FirstName: p.FirstName, LastName: p.LastName, Email: p.Email, Role: p.Role}
}

func (v MessageView) DTO() MessageDTO {
	return MessageDTO{
		ID:             v.ID,
		Sender:         v.Sender.dto(),
		Recipient:      v.Recipient.dto(),
		Subject:        v.Subject,
		Content:        v.Content,
		IsRead:         v.IsRead,
		ParentMessage:  v.ParentMessageID,
		ConversationID: v.ConversationID,
		CreatedAt:      v.CreatedAt,
		UpdatedAt:      v.UpdatedAt,
	}
}
