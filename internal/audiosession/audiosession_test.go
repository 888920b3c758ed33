package audiosession

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSession struct {
	startErr error
	started  chan struct{}
}

func (f *fakeSession) Start(ctx context.Context) error {
	close(f.started)
	if f.startErr != nil {
		return f.startErr
	}
	<-ctx.Done()
	return nil
}

type recordingConversation struct {
	mu       sync.Mutex
	attached int
	detached int
}

func (c *recordingConversation) AttachAudioSession(s Session) {
	c.mu.Lock()
	c.attached++
	c.mu.Unlock()
}

func (c *recordingConversation) DetachAudioSession() {
	c.mu.Lock()
	c.detached++
	c.mu.Unlock()
}

func TestManagerAttachesOnConnect(t *testing.T) {
	conv := &recordingConversation{}
	session := &fakeSession{started: make(chan struct{})}
	factory := func(ctx context.Context) (Session, error) { return session, nil }

	ctx, cancel := context.WithCancel(context.Background())
	m := New(factory, conv, nil)

	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	select {
	case <-session.started:
	case <-time.After(time.Second):
		t.Fatal("session never started")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("manager did not exit after context cancellation")
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()
	if conv.attached != 1 {
		t.Fatalf("expected exactly one attach, got %d", conv.attached)
	}
}

func TestManagerRestartsOnCrashAndDetaches(t *testing.T) {
	origInitial, origMax := initialReconnectDelay, maxReconnectDelay
	setTestDelays(5*time.Millisecond, 20*time.Millisecond)
	defer setTestDelays(origInitial, origMax)

	conv := &recordingConversation{}
	var attempt int32

	factory := func(ctx context.Context) (Session, error) {
		n := atomic.AddInt32(&attempt, 1)
		if n < 3 {
			return &fakeSession{startErr: errors.New("crash"), started: make(chan struct{})}, nil
		}
		return &fakeSession{started: make(chan struct{})}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := New(factory, conv, nil)
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(&attempt) >= 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if atomic.LoadInt32(&attempt) < 3 {
		t.Fatal("expected at least 3 factory calls after crashes")
	}

	cancel()
	<-done

	conv.mu.Lock()
	defer conv.mu.Unlock()
	if conv.detached < 2 {
		t.Fatalf("expected at least 2 detaches after crashes, got %d", conv.detached)
	}
}

func setTestDelays(initial, max time.Duration) {
	initialReconnectDelay = initial
	maxReconnectDelay = max
}
