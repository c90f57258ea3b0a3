package service

import (
	"log/slog"
	"sync"
	"time"
)

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notice is a user-visible notification.
type Notice struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Variant     Variant   `json:"variant"`
	At          time.Time `json:"at"`
}

// Notifier surfaces notices to the shopper.
type Notifier interface {
	Notify(n Notice)
}

// Info builds a default notice.
func Info(title, desc string) Notice {
	return Notice{Title: title, Description: desc, Variant: VariantDefault}
}

// Failure builds a destructive notice.
func Failure(title, desc string) Notice {
	return Notice{Title: title, Description: desc, Variant: VariantDestructive}
}

// maxPendingNotices bounds the board when nobody drains it.
const maxPendingNotices = 50

// NoticeBoard queues notices until the UI drains them and fans them out to
// live subscribers.
type NoticeBoard struct {
	mu          sync.Mutex
	pending     []Notice
	subscribers []func(Notice)
}

func NewNoticeBoard() *NoticeBoard {
	return &NoticeBoard{}
}

func (b *NoticeBoard) Notify(n Notice) {
	if n.At.IsZero() {
		n.At = time.Now()
	}
	if n.Variant == VariantDestructive {
		slog.Warn("Notice", "title", n.Title, "description", n.Description)
	} else {
		slog.Info("Notice", "title", n.Title, "description", n.Description)
	}

	b.mu.Lock()
	b.pending = append(b.pending, n)
	if len(b.pending) > maxPendingNotices {
		b.pending = b.pending[len(b.pending)-maxPendingNotices:]
	}
	subs := append([]func(Notice){}, b.subscribers...)
	b.mu.Unlock()

	for _, fn := range subs {
		fn(n)
	}
}

// Drain returns and forgets all pending notices.
func (b *NoticeBoard) Drain() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending
	b.pending = nil
	return out
}

// Subscribe registers fn to receive every future notice.
func (b *NoticeBoard) Subscribe(fn func(Notice)) {
	b.mu.Lock()
	b.subscribers = append(b.subscribers, fn)
	b.mu.Unlock()
}
