package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"testing"

	"github.com/gotd/td/bin"
	"github.com/gotd/td/tg"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/message/domain"
)

// invokerFunc answers raw RPC calls; results are round-tripped through the
// wire encoding, as the real connection would.
type invokerFunc func(ctx context.Context, input bin.Encoder) (bin.Encoder, error)

func (f invokerFunc) Invoke(ctx context.Context, input bin.Encoder, output bin.Decoder) error {
	res, err := f(ctx, input)
	if err != nil {
		return err
	}
	var b bin.Buffer
	if err := res.Encode(&b); err != nil {
		return err
	}
	return output.Decode(&b)
}

var historyPeer = &tg.PeerChannel{ChannelID: 1}

// fakeHistory serves messages.getHistory over ids 1..last of a channel.
// Ids up to service are service messages.
type fakeHistory struct {
	last     int
	service  int
	requests []tg.MessagesGetHistoryRequest
}

func (h *fakeHistory) invoke(_ context.Context, input bin.Encoder) (bin.Encoder, error) {
	req, ok := input.(*tg.MessagesGetHistoryRequest)
	if !ok {
		return nil, fmt.Errorf("unexpected request %T", input)
	}
	h.requests = append(h.requests, *req)

	// The server answers newest first: the limit ids right above min_id.
	var msgs []tg.MessageClass
	for id := req.MinID + 1; id <= h.last && len(msgs) < req.Limit; id++ {
		if id <= h.service {
			msgs = append([]tg.MessageClass{&tg.MessageService{ID: id, PeerID: historyPeer, Action: &tg.MessageActionPinMessage{}}}, msgs...)
			continue
		}
		msgs = append([]tg.MessageClass{&tg.Message{ID: id, PeerID: historyPeer, Message: fmt.Sprintf("post %d", id)}}, msgs...)
	}
	return &tg.MessagesMessagesSlice{
		Count:    h.last,
		Messages: msgs,
		Chats:    []tg.ChatClass{&tg.Channel{ID: 1, Title: "History", Photo: &tg.ChatPhotoEmpty{}}},
	}, nil
}

func newTestSource(inv tg.Invoker) *Source {
	c := &Client{
		logger: slog.New(slog.DiscardHandler),
		api:    tg.NewClient(inv),
		peer:   &tg.InputPeerChannel{ChannelID: 1, AccessHash: 99},
	}
	return c.Source()
}

func pageIDs(p domain.Page) []int64 {
	ids := make([]int64, 0, len(p.Messages))
	for _, m := range p.Messages {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestFetchPage(t *testing.T) {
	tests := []struct {
		name      string
		history   fakeHistory
		after     int64
		limit     int
		want      []int64
		hasMore   bool
		nextAfter int64
		requests  int
	}{
		{
			name:      "full page",
			history:   fakeHistory{last: 20},
			after:     10,
			limit:     3,
			want:      []int64{11, 12, 13},
			hasMore:   true,
			nextAfter: 13,
			requests:  1,
		},
		{
			name:      "short last page",
			history:   fakeHistory{last: 12},
			after:     10,
			limit:     3,
			want:      []int64{11, 12},
			hasMore:   false,
			nextAfter: 12,
			requests:  1,
		},
		{
			name:      "nothing after the cursor",
			history:   fakeHistory{last: 10},
			after:     10,
			limit:     3,
			want:      []int64{},
			hasMore:   false,
			nextAfter: 10,
			requests:  1,
		},
		{
			name:      "service pages are skipped",
			history:   fakeHistory{last: 20, service: 6},
			after:     0,
			limit:     2,
			want:      []int64{7, 8},
			hasMore:   true,
			nextAfter: 8,
			requests:  4,
		},
		{
			name:      "too many service pages",
			history:   fakeHistory{last: 40, service: 30},
			after:     0,
			limit:     2,
			want:      []int64{},
			hasMore:   true,
			nextAfter: 2 * maxSkippedPages,
			requests:  maxSkippedPages,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.history
			src := newTestSource(invokerFunc(h.invoke))

			page, err := src.FetchPage(context.Background(), tt.after, tt.limit)
			if err != nil {
				t.Fatalf("FetchPage() error = %v", err)
			}
			if got := pageIDs(page); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
			if page.HasMore != tt.hasMore {
				t.Errorf("HasMore = %v, want %v", page.HasMore, tt.hasMore)
			}
			if page.NextAfter != tt.nextAfter {
				t.Errorf("NextAfter = %d, want %d", page.NextAfter, tt.nextAfter)
			}
			if len(h.requests) != tt.requests {
				t.Errorf("requests = %d, want %d", len(h.requests), tt.requests)
			}

			first := h.requests[0]
			if first.MinID != int(tt.after) || first.OffsetID != int(tt.after)+1 || first.AddOffset != -tt.limit || first.Limit != tt.limit {
				t.Errorf("first request = min_id %d offset_id %d add_offset %d limit %d",
					first.MinID, first.OffsetID, first.AddOffset, first.Limit)
			}
		})
	}
}

func TestFetchPageResumesPastServiceStretch(t *testing.T) {
	h := &fakeHistory{last: 33, service: 30}
	src := newTestSource(invokerFunc(h.invoke))
	ctx := context.Background()

	var got []int64
	after := int64(0)
	for range 10 {
		page, err := src.FetchPage(ctx, after, 2)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, pageIDs(page)...)
		if !page.HasMore {
			break
		}
		if page.NextAfter <= after {
			t.Fatalf("page after %d made no progress", after)
		}
		after = page.NextAfter
	}

	if want := []int64{31, 32, 33}; !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
}

func TestFetchPageConvertsMessages(t *testing.T) {
	h := &fakeHistory{last: 1}
	src := newTestSource(invokerFunc(h.invoke))

	page, err := src.FetchPage(context.Background(), 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Messages) != 1 {
		t.Fatalf("got %d messages", len(page.Messages))
	}
	m := page.Messages[0]
	if m.Sender != "History" || m.Text() != "post 1" {
		t.Errorf("message = %+v", m)
	}
}

func TestFetchPageNotConnected(t *testing.T) {
	src := (&Client{logger: slog.New(slog.DiscardHandler)}).Source()
	if _, err := src.FetchPage(context.Background(), 0, 10); err == nil {
		t.Fatal("FetchPage() succeeded without a session")
	}
}

// fakeDialogs serves messages.getDialogs: a first full page of basic groups
// 1..100 and a second page holding channel 777.
type fakeDialogs struct {
	requests []tg.MessagesGetDialogsRequest
}

func (d *fakeDialogs) invoke(_ context.Context, input bin.Encoder) (bin.Encoder, error) {
	req, ok := input.(*tg.MessagesGetDialogsRequest)
	if !ok {
		return nil, fmt.Errorf("unexpected request %T", input)
	}
	d.requests = append(d.requests, *req)

	if _, first := req.OffsetPeer.(*tg.InputPeerEmpty); first {
		res := &tg.MessagesDialogsSlice{Count: dialogPageSize + 1}
		for i := 1; i <= dialogPageSize; i++ {
			peer := &tg.PeerChat{ChatID: int64(i)}
			res.Dialogs = append(res.Dialogs, &tg.Dialog{Peer: peer, TopMessage: 1000 + i})
			res.Messages = append(res.Messages, &tg.Message{ID: 1000 + i, PeerID: peer, Date: 5000 - i})
			res.Chats = append(res.Chats, &tg.Chat{ID: int64(i), Title: fmt.Sprintf("group %d", i), Photo: &tg.ChatPhotoEmpty{}})
		}
		return res, nil
	}

	peer := &tg.PeerChannel{ChannelID: 777}
	return &tg.MessagesDialogsSlice{
		Count:    dialogPageSize + 1,
		Dialogs:  []tg.DialogClass{&tg.Dialog{Peer: peer, TopMessage: 7}},
		Messages: []tg.MessageClass{&tg.Message{ID: 7, PeerID: peer, Date: 100}},
		Chats:    []tg.ChatClass{&tg.Channel{ID: 777, AccessHash: 42, Title: "old channel", Photo: &tg.ChatPhotoEmpty{}}},
	}, nil
}

func TestFindDialogPagesThroughDialogs(t *testing.T) {
	d := &fakeDialogs{}
	api := tg.NewClient(invokerFunc(d.invoke))

	got, err := findDialog(context.Background(), api, -100777)
	if err != nil {
		t.Fatalf("findDialog() error = %v", err)
	}
	want := &tg.InputPeerChannel{ChannelID: 777, AccessHash: 42}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("findDialog() = %#v, want %#v", got, want)
	}

	if len(d.requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(d.requests))
	}
	second := d.requests[1]
	if p, ok := second.OffsetPeer.(*tg.InputPeerChat); !ok || p.ChatID != dialogPageSize {
		t.Errorf("second offset peer = %#v", second.OffsetPeer)
	}
	if second.OffsetID != 1000+dialogPageSize || second.OffsetDate != 5000-dialogPageSize {
		t.Errorf("second offset = id %d date %d", second.OffsetID, second.OffsetDate)
	}
}

func TestFindDialogOnFirstPageAndMissing(t *testing.T) {
	d := &fakeDialogs{}
	api := tg.NewClient(invokerFunc(d.invoke))

	got, err := findDialog(context.Background(), api, -5)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, &tg.InputPeerChat{ChatID: 5}) {
		t.Errorf("findDialog(-5) = %#v", got)
	}
	if len(d.requests) != 1 {
		t.Errorf("requests = %d, want 1", len(d.requests))
	}

	if _, err := findDialog(context.Background(), api, 123456); err == nil {
		t.Error("findDialog() found a chat the account never joined")
	}
}
