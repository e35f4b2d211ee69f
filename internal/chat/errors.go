package chat

import "errors"

// Operation failures. The backend cause is wrapped alongside, so both
// errors.Is(err, ErrSendFailed) and errors.Is(err, cause) hold.
var (
	ErrCreateFailed       = errors.New("chat session creation failed")
	ErrFetchFailed        = errors.New("chat session fetch failed")
	ErrSendFailed         = errors.New("chat message send failed")
	ErrStatusUpdateFailed = errors.New("chat status update failed")
)

var (
	ErrSessionNotFound = errors.New("chat session not found")
	ErrSessionClosed   = errors.New("chat session is closed")
	ErrStatusConflict  = errors.New("chat session status changed concurrently")
	ErrDealerRequired  = errors.New("dealer is required to activate a chat session")
	ErrInvalidSender   = errors.New("invalid sender")
	ErrInvalidArgument = errors.New("invalid argument")
)
