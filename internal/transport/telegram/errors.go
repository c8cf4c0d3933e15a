package telegram

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/gotd/td/tgerr"

	apperrors "github.com/reshetovitsme/tg-chat-archive/internal/shared/errors"
)

// Source-side RPC errors that no amount of retrying fixes.
var accessErrors = []string{
	"CHANNEL_PRIVATE",
	"CHANNEL_INVALID",
	"CHAT_FORBIDDEN",
	"PEER_ID_INVALID",
	"USERNAME_INVALID",
	"USERNAME_NOT_OCCUPIED",
	"AUTH_KEY_UNREGISTERED",
	"SESSION_REVOKED",
	"USER_DEACTIVATED",
}

// classify maps an MTProto failure onto the archive error taxonomy.
// Unrecognised errors are tagged with transient.
func classify(err, transient error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, apperrors.ErrSourceNotConnected) ||
		errors.Is(err, apperrors.ErrFatalAuth) {
		return err
	}
	if d, ok := tgerr.AsFloodWait(err); ok {
		return &apperrors.ThrottleError{RetryAfter: d, Err: err}
	}
	if tgerr.Is(err, accessErrors...) {
		return apperrors.Mark(err, apperrors.ErrFatalAuth)
	}
	if rpc, ok := tgerr.As(err); ok && rpc.Code == 401 {
		return apperrors.Mark(err, apperrors.ErrFatalAuth)
	}
	return apperrors.Mark(err, transient)
}
