package telegram

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/gotd/contrib/middleware/floodwait"
	"github.com/gotd/contrib/middleware/ratelimit"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/message/peer"
	"github.com/gotd/td/tg"
	"golang.org/x/time/rate"

	apperrors "github.com/reshetovitsme/tg-chat-archive/internal/shared/errors"
)

// ClientConfig carries the source account credentials. Nothing in the
// client reads them from the environment.
type ClientConfig struct {
	AppID       int
	AppHash     string
	Phone       string
	Password    string
	SessionPath string
	// Chat is a @username, t.me link, numeric id, or "me".
	Chat string
	// CodePrompt supplies the login code on first sign-in. Defaults to
	// reading a line from stdin.
	CodePrompt func(ctx context.Context) (string, error)
}

// Client is an MTProto user session bound to a single source chat. The
// Source and MediaFetcher it hands out only work inside Run.
type Client struct {
	cfg    ClientConfig
	client *telegram.Client
	waiter *floodwait.Waiter
	logger *slog.Logger

	mu   sync.RWMutex
	api  *tg.Client
	peer tg.InputPeerClass
}

func NewClient(cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	if cfg.AppID == 0 || cfg.AppHash == "" {
		return nil, errors.Wrap(apperrors.ErrInvalidConfig, "telegram app id and hash are required")
	}
	if cfg.SessionPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.SessionPath), 0o700); err != nil {
			return nil, errors.Wrap(err, "create session dir")
		}
	}

	c := &Client{cfg: cfg, logger: logger}

	c.waiter = floodwait.NewWaiter().
		WithMaxRetries(3).
		WithCallback(func(ctx context.Context, wait floodwait.FloodWait) {
			logger.Warn("throttled",
				slog.String("stage", "mtproto"),
				slog.Duration("delay", wait.Duration),
			)
		})

	c.client = telegram.NewClient(cfg.AppID, cfg.AppHash, telegram.Options{
		SessionStorage: &telegram.FileSessionStorage{Path: cfg.SessionPath},
		Middlewares: []telegram.Middleware{
			c.waiter,
			ratelimit.New(rate.Every(100*time.Millisecond), 5),
		},
	})
	return c, nil
}

// Run connects, signs in if the session is new, resolves the source chat
// and calls f. The connection closes when f returns.
func (c *Client) Run(ctx context.Context, f func(ctx context.Context) error) error {
	return c.waiter.Run(ctx, func(ctx context.Context) error {
		return c.client.Run(ctx, func(ctx context.Context) error {
			if err := c.authenticate(ctx); err != nil {
				return apperrors.Mark(errors.Wrap(err, "auth"), apperrors.ErrFatalAuth)
			}

			api := c.client.API()
			p, err := resolvePeer(ctx, api, c.cfg.Chat)
			if err != nil {
				return classify(errors.Wrapf(err, "resolve %q", c.cfg.Chat), apperrors.ErrTransientFetch)
			}

			c.mu.Lock()
			c.api, c.peer = api, p
			c.mu.Unlock()
			defer func() {
				c.mu.Lock()
				c.api, c.peer = nil, nil
				c.mu.Unlock()
			}()

			c.logger.Info("source connected", slog.String("chat", c.cfg.Chat))
			return f(ctx)
		})
	})
}

func (c *Client) authenticate(ctx context.Context) error {
	status, err := c.client.Auth().Status(ctx)
	if err != nil {
		return errors.Wrap(err, "auth status")
	}
	if status.Authorized {
		return nil
	}
	if c.cfg.Phone == "" {
		return errors.New("session is not authorized and no phone number is configured")
	}

	prompt := c.cfg.CodePrompt
	if prompt == nil {
		prompt = stdinPrompt(os.Stdin, os.Stdout)
	}
	codeAuth := auth.CodeAuthenticatorFunc(func(ctx context.Context, _ *tg.AuthSentCode) (string, error) {
		return prompt(ctx)
	})

	flow := auth.NewFlow(auth.Constant(c.cfg.Phone, c.cfg.Password, codeAuth), auth.SendCodeOptions{})
	return c.client.Auth().IfNecessary(ctx, flow)
}

func (c *Client) session() (*tg.Client, tg.InputPeerClass, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.api == nil {
		return nil, nil, apperrors.ErrSourceNotConnected
	}
	return c.api, c.peer, nil
}

func stdinPrompt(in io.Reader, out io.Writer) func(ctx context.Context) (string, error) {
	return func(context.Context) (string, error) {
		fmt.Fprint(out, "Enter the login code: ")
		code, err := bufio.NewReader(in).ReadString('\n')
		if err != nil {
			return "", errors.Wrap(err, "read login code")
		}
		return strings.TrimSpace(code), nil
	}
}

// resolvePeer turns a configured chat reference into an input peer.
func resolvePeer(ctx context.Context, api *tg.Client, chat string) (tg.InputPeerClass, error) {
	ref := normalizeChat(chat)
	switch {
	case ref == "":
		return nil, errors.Wrap(apperrors.ErrMissingSource, "empty chat reference")
	case ref == "me" || ref == "self":
		return &tg.InputPeerSelf{}, nil
	}

	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return peer.Plain(api).ResolveDomain(ctx, ref)
	}
	return findDialog(ctx, api, id)
}

// normalizeChat strips the forms a chat reference may be written in:
// "@name", "https://t.me/name", "t.me/name".
func normalizeChat(chat string) string {
	ref := strings.TrimSpace(chat)
	for _, prefix := range []string{"https://", "http://", "t.me/", "telegram.me/"} {
		ref = strings.TrimPrefix(ref, prefix)
	}
	ref = strings.TrimPrefix(ref, "@")
	if i := strings.IndexByte(ref, '/'); i >= 0 {
		ref = ref[:i]
	}
	return ref
}

// dialogPageSize is the largest page messages.getDialogs serves;
// maxDialogPages caps a lookup at 5000 dialogs.
const (
	dialogPageSize = 100
	maxDialogPages = 50
)

// findDialog looks a numeric chat id up among the account's dialogs, which
// is the only place its access hash is known. Bot API style ids
// (-100<channel>, -<chat>) are accepted. Dialogs are paged through until the
// chat turns up or the list ends.
func findDialog(ctx context.Context, api *tg.Client, id int64) (tg.InputPeerClass, error) {
	raw := id
	if s := strconv.FormatInt(id, 10); strings.HasPrefix(s, "-100") {
		raw, _ = strconv.ParseInt(s[4:], 10, 64)
	} else if id < 0 {
		raw = -id
	}

	req := &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      dialogPageSize,
	}
	for range maxDialogPages {
		res, err := api.MessagesGetDialogs(ctx, req)
		if err != nil {
			return nil, errors.Wrap(err, "get dialogs")
		}
		dialogs, ok := res.AsModified()
		if !ok {
			break
		}

		if p, ok := matchDialogPeer(dialogs.GetChats(), dialogs.GetUsers(), raw); ok {
			return p, nil
		}

		list := dialogs.GetDialogs()
		if _, slice := res.(*tg.MessagesDialogsSlice); !slice || len(list) < dialogPageSize {
			break
		}
		next, ok := nextDialogPage(dialogs, list[len(list)-1])
		if !ok {
			break
		}
		req.OffsetPeer, req.OffsetID, req.OffsetDate = next.OffsetPeer, next.OffsetID, next.OffsetDate
	}
	return nil, errors.Errorf("chat %d not found among dialogs", id)
}

func matchDialogPeer(chats []tg.ChatClass, users []tg.UserClass, raw int64) (tg.InputPeerClass, bool) {
	for _, ch := range chats {
		switch ch := ch.(type) {
		case *tg.Channel:
			if ch.ID == raw {
				return &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}, true
			}
		case *tg.Chat:
			if ch.ID == raw {
				return &tg.InputPeerChat{ChatID: ch.ID}, true
			}
		}
	}
	for _, u := range users {
		if u, ok := u.(*tg.User); ok && u.ID == raw {
			return &tg.InputPeerUser{UserID: u.ID, AccessHash: u.AccessHash}, true
		}
	}
	return nil, false
}

// nextDialogPage builds the offsets of the page after last: its peer, its
// top message id and that message's date.
func nextDialogPage(dialogs tg.ModifiedMessagesDialogs, last tg.DialogClass) (*tg.MessagesGetDialogsRequest, bool) {
	next := &tg.MessagesGetDialogsRequest{OffsetID: last.GetTopMessage()}

	switch p := last.GetPeer().(type) {
	case *tg.PeerChannel:
		for _, ch := range dialogs.GetChats() {
			if ch, ok := ch.(*tg.Channel); ok && ch.ID == p.ChannelID {
				next.OffsetPeer = &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}
			}
		}
	case *tg.PeerChat:
		next.OffsetPeer = &tg.InputPeerChat{ChatID: p.ChatID}
	case *tg.PeerUser:
		for _, u := range dialogs.GetUsers() {
			if u, ok := u.(*tg.User); ok && u.ID == p.UserID {
				next.OffsetPeer = &tg.InputPeerUser{UserID: u.ID, AccessHash: u.AccessHash}
			}
		}
	}
	if next.OffsetPeer == nil {
		return nil, false
	}

	for _, m := range dialogs.GetMessages() {
		msg, ok := m.AsNotEmpty()
		if ok && msg.GetID() == next.OffsetID && samePeer(msg.GetPeerID(), last.GetPeer()) {
			next.OffsetDate = msg.GetDate()
			break
		}
	}
	return next, true
}

func samePeer(a, b tg.PeerClass) bool {
	switch a := a.(type) {
	case *tg.PeerChannel:
		b, ok := b.(*tg.PeerChannel)
		return ok && a.ChannelID == b.ChannelID
	case *tg.PeerChat:
		b, ok := b.(*tg.PeerChat)
		return ok && a.ChatID == b.ChatID
	case *tg.PeerUser:
		b, ok := b.(*tg.PeerUser)
		return ok && a.UserID == b.UserID
	}
	return false
}
