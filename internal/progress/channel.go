package progress

import "sync/atomic"

// MessageKind selects the Tracker operation a Message performs.
type MessageKind uint8

const (
	MsgSetProgress MessageKind = iota
	MsgSetHiddenProgress
	MsgSetTotal
	MsgSetDone
	MsgSetHiddenTotal
	MsgSetHiddenDone
	MsgAddProgress
	MsgAddHiddenProgress
	MsgAddTotal
	MsgAddDone
	MsgAddHiddenTotal
	MsgAddHiddenDone
)

var messageKindNames = [...]string{
	MsgSetProgress:       "set_progress",
	MsgSetHiddenProgress: "set_hidden_progress",
	MsgSetTotal:          "set_total",
	MsgSetDone:           "set_done",
	MsgSetHiddenTotal:    "set_hidden_total",
	MsgSetHiddenDone:     "set_hidden_done",
	MsgAddProgress:       "add_progress",
	MsgAddHiddenProgress: "add_hidden_progress",
	MsgAddTotal:          "add_total",
	MsgAddDone:           "add_done",
	MsgAddHiddenTotal:    "add_hidden_total",
	MsgAddHiddenDone:     "add_hidden_done",
}

func (k MessageKind) String() string {
	if int(k) < len(messageKindNames) {
		return messageKindNames[k]
	}
	return "unknown"
}

// Message is one queued update. Single-field kinds use only the matching
// field (Done or Total).
type Message struct {
	ID    EntryID
	Kind  MessageKind
	Done  uint32
	Total uint32
}

// Apply performs the update on t.
func (m Message) Apply(t *Tracker) {
	switch m.Kind {
	case MsgSetProgress:
		t.SetProgress(m.ID, m.Done, m.Total)
	case MsgSetHiddenProgress:
		t.SetHiddenProgress(m.ID, m.Done, m.Total)
	case MsgSetTotal:
		t.SetTotal(m.ID, m.Total)
	case MsgSetDone:
		t.SetDone(m.ID, m.Done)
	case MsgSetHiddenTotal:
		t.SetHiddenTotal(m.ID, m.Total)
	case MsgSetHiddenDone:
		t.SetHiddenDone(m.ID, m.Done)
	case MsgAddProgress:
		t.AddProgress(m.ID, m.Done, m.Total)
	case MsgAddHiddenProgress:
		t.AddHiddenProgress(m.ID, m.Done, m.Total)
	case MsgAddTotal:
		t.AddTotal(m.ID, m.Total)
	case MsgAddDone:
		t.AddDone(m.ID, m.Done)
	case MsgAddHiddenTotal:
		t.AddHiddenTotal(m.ID, m.Total)
	case MsgAddHiddenDone:
		t.AddHiddenDone(m.ID, m.Done)
	}
}

// DefaultChannelCapacity is used when NewChannel is given a non-positive size.
const DefaultChannelCapacity = 1024

// Channel carries updates from goroutines outside the tick loop. Any number
// of Senders may write; one consumer calls Drain once per tick.
type Channel struct {
	queue   chan Message
	dropped atomic.Uint64
}

func NewChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultChannelCapacity
	}
	return &Channel{queue: make(chan Message, capacity)}
}

// NewSender mints a new EntryID and returns a Sender bound to it.
func (c *Channel) NewSender() Sender {
	return Sender{id: NewEntryID(), ch: c}
}

// SenderFor returns a Sender for an entry that already exists, e.g. one the
// caller seeded directly on the Tracker before handing work to a goroutine.
func (c *Channel) SenderFor(id EntryID) Sender {
	return Sender{id: id, ch: c}
}

// Dropped returns how many messages were discarded because the queue was full.
func (c *Channel) Dropped() uint64 {
	return c.dropped.Load()
}

// Pending returns the number of queued messages.
func (c *Channel) Pending() int {
	return len(c.queue)
}

// send never blocks. A full queue drops the message.
func (c *Channel) send(m Message) {
	select {
	case c.queue <- m:
	default:
		c.dropped.Add(1)
	}
}

// Drain applies every message queued at the time of the call in FIFO order
// and returns how many were applied. Messages sent while draining are left
// for the next call.
func (c *Channel) Drain(t *Tracker) int {
	n := len(c.queue)
	for i := 0; i < n; i++ {
		select {
		case m := <-c.queue:
			m.Apply(t)
		default:
			return i
		}
	}
	return n
}

// Sender reports progress for one entry through a Channel. It is a small
// value; copy it freely, including across goroutines. The zero Sender
// discards everything.
type Sender struct {
	id EntryID
	ch *Channel
}

func (s Sender) ID() EntryID { return s.id }

func (s Sender) msg(kind MessageKind, done, total uint32) {
	if s.ch == nil {
		return
	}
	s.ch.send(Message{ID: s.id, Kind: kind, Done: done, Total: total})
}

func (s Sender) SetProgress(done, total uint32) { s.msg(MsgSetProgress, done, total) }

func (s Sender) SetHiddenProgress(done, total uint32) { s.msg(MsgSetHiddenProgress, done, total) }

func (s Sender) SetTotal(total uint32) { s.msg(MsgSetTotal, 0, total) }

func (s Sender) SetDone(done uint32) { s.msg(MsgSetDone, done, 0) }

func (s Sender) SetHiddenTotal(total uint32) { s.msg(MsgSetHiddenTotal, 0, total) }

func (s Sender) SetHiddenDone(done uint32) { s.msg(MsgSetHiddenDone, done, 0) }

func (s Sender) AddProgress(done, total uint32) { s.msg(MsgAddProgress, done, total) }

func (s Sender) AddHiddenProgress(done, total uint32) { s.msg(MsgAddHiddenProgress, done, total) }

func (s Sender) AddTotal(total uint32) { s.msg(MsgAddTotal, 0, total) }

func (s Sender) AddDone(done uint32) { s.msg(MsgAddDone, done, 0) }

func (s Sender) AddHiddenTotal(total uint32) { s.msg(MsgAddHiddenTotal, 0, total) }

func (s Sender) AddHiddenDone(done uint32) { s.msg(MsgAddHiddenDone, done, 0) }

// Report sends a Contribution as the matching Set messages.
func (s Sender) Report(c Contribution) {
	switch v := c.(type) {
	case Progress:
		s.SetProgress(v.Done, v.Total)
	case HiddenProgress:
		s.SetHiddenProgress(v.Done, v.Total)
	case Both:
		s.SetProgress(v.Visible.Done, v.Visible.Total)
		s.SetHiddenProgress(v.Hidden.Done, v.Hidden.Total)
	}
}
