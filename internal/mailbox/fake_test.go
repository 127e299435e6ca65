package mailbox

import (
	"context"
	"errors"
)

type fakeSession struct {
	connected  bool
	loggedOut  int
	openErr    error
	folder     *fakeFolder
	openedName string
}

func (s *fakeSession) Connected(context.Context) bool { return s.connected }

func (s *fakeSession) OpenReadOnly(_ context.Context, name string) (Folder, error) {
	s.openedName = name
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.folder, nil
}

func (s *fakeSession) Logout(context.Context) error {
	s.loggedOut++
	s.connected = false
	return nil
}

type fakeFolder struct {
	name   string
	count  uint32
	closed int
}

func (f *fakeFolder) Name() string  { return f.name }
func (f *fakeFolder) Count() uint32 { return f.count }

func (f *fakeFolder) Fetch(context.Context, uint32, uint32) ([]RawMessage, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeFolder) Close(context.Context) error {
	f.closed++
	return nil
}

type fakeDialer struct {
	sessions []*fakeSession
	err      error
	calls    int
}

func (d *fakeDialer) Dial(context.Context) (Session, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	if len(d.sessions) == 0 {
		return nil, errors.New("no more sessions")
	}
	s := d.sessions[0]
	d.sessions = d.sessions[1:]
	return s, nil
}
