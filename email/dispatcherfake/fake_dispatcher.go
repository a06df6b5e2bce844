package dispatcherfake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-credential-service/email"
)

var _ email.Dispatcher = (*FakeDispatcher)(nil)

// Sent records a single dispatched email.
type Sent struct {
	To      string
	Body    string
	Subject string
}

// FakeDispatcher records sends in memory. SendErr, when set, is returned
// by SendEmail to exercise rollback paths.
type FakeDispatcher struct {
	sent []Sent
	lock sync.Mutex

	SendErr error
}

func NewFakeDispatcher() *FakeDispatcher {
	return &FakeDispatcher{}
}

func (d *FakeDispatcher) SendEmail(_ context.Context, to, body, subject string) error {
	if d.SendErr != nil {
		return d.SendErr
	}

	d.lock.Lock()
	defer d.lock.Unlock()
	d.sent = append(d.sent, Sent{To: to, Body: body, Subject: subject})
	return nil
}

// SentEmails returns a copy of everything dispatched so far.
func (d *FakeDispatcher) SentEmails() []Sent {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]Sent(nil), d.sent...)
}
