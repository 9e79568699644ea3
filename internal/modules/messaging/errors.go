package messaging

import "github.com/Jyok1m/ipseis-backend/internal/apperror"

const module = "messaging"

var (
	ErrMessageNotFound      = apperror.NotFound(module, "ErrMessageNotFound", "message not found")
	ErrRecipientNotFound    = apperror.NotFound(module, "ErrRecipientNotFound", "recipient not found")
	ErrParentNotFound       = apperror.NotFound(module, "ErrParentNotFound", "parent message not found")
	ErrConversationNotFound = apperror.NotFound(module, "ErrConversationNotFound", "conversation not found")
	ErrNotRecipient         = apperror.Forbidden(module, "ErrNotRecipient", "only the recipient can mark this message as read")
	ErrNotParticipant       = apperror.Forbidden(module, "ErrNotParticipant", "you are not a participant of this conversation")
)
