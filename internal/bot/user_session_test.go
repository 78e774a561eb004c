package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler logs "<type>:<text>" for every message it handles. A text
// listed in gates blocks until its channel is closed; "boom" panics.
type recordingHandler struct {
	mu      sync.Mutex
	handled []string
	gates   map[string]chan struct{}
	entered chan string
}

func newRecordingHandler(gated ...string) *recordingHandler {
	h := &recordingHandler{
		gates:   make(map[string]chan struct{}),
		entered: make(chan string, 16),
	}
	for _, text := range gated {
		h.gates[text] = make(chan struct{})
	}
	return h
}

func (h *recordingHandler) HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage) {
	h.mu.Lock()
	h.handled = append(h.handled, msg.Type+":"+msg.Text)
	gate := h.gates[msg.Text]
	h.mu.Unlock()

	h.entered <- msg.Text
	if msg.Text == "boom" {
		panic("handler failure")
	}
	if gate != nil {
		<-gate
	}
}

func (h *recordingHandler) log() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.handled...)
}

func (h *recordingHandler) release(text string) {
	close(h.gates[text])
}

func startSession(t *testing.T, userID int64, h MessageHandler) *UserSession {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	s := &UserSession{
		userId: userID,
		inbox:  make(chan SessionMessage, 10),
		ctx:    ctx,
		cancel: cancel,
	}
	s.SetHandler(h)
	s.StartWorker()
	return s
}

func waitEntered(t *testing.T, h *recordingHandler, text string) {
	t.Helper()
	for {
		select {
		case got := <-h.entered:
			if got == text {
				return
			}
		case <-time.After(time.Second):
			t.Fatalf("handler never reached %q", text)
		}
	}
}

func TestSession_BuildCompletionQueuesBehindUserMessages(t *testing.T) {
	h := newRecordingHandler()
	session := startSession(t, 10, h)
	defer session.Stop()

	session.Send(SessionMessage{Type: "document", Text: "products.csv"})
	session.Send(SessionMessage{Type: "text", Text: "/build"})
	session.Send(SessionMessage{Type: "build_complete", Text: "b1"})
	session.SendSync(SessionMessage{Type: "text", Text: "/status"})

	assert.Equal(t, []string{
		"document:products.csv",
		"text:/build",
		"build_complete:b1",
		"text:/status",
	}, h.log())
}

func TestSession_WorkerSurvivesHandlerPanic(t *testing.T) {
	h := newRecordingHandler()
	session := startSession(t, 10, h)
	defer session.Stop()

	session.SendSync(SessionMessage{Type: "text", Text: "boom"})
	session.SendSync(SessionMessage{Type: "text", Text: "/help"})

	assert.Equal(t, []string{"text:boom", "text:/help"}, h.log())
}

func TestSession_SlowUserDoesNotBlockOthers(t *testing.T) {
	slow := newRecordingHandler("/build")
	slowSession := startSession(t, 1, slow)
	defer slowSession.Stop()

	fast := newRecordingHandler()
	fastSession := startSession(t, 2, fast)
	defer fastSession.Stop()

	slowSession.Send(SessionMessage{Type: "text", Text: "/build"})
	slowSession.Send(SessionMessage{Type: "text", Text: "/history"})
	waitEntered(t, slow, "/build")

	fastSession.SendSync(SessionMessage{Type: "text", Text: "/depth 2"})

	assert.Equal(t, []string{"text:/depth 2"}, fast.log())
	assert.Equal(t, []string{"text:/build"}, slow.log(), "second message waits for the first")

	slow.release("/build")
	slowSession.SendSync(SessionMessage{Type: "text", Text: "barrier"})
	assert.Equal(t, []string{"text:/build", "text:/history", "text:barrier"}, slow.log())
}

func TestSession_StopReleasesQueuedSyncCallers(t *testing.T) {
	h := newRecordingHandler("first")
	session := startSession(t, 3, h)

	session.Send(SessionMessage{Type: "text", Text: "first"})
	waitEntered(t, h, "first")

	var waiters sync.WaitGroup
	for i := 0; i < 3; i++ {
		waiters.Add(1)
		go func() {
			defer waiters.Done()
			session.SendSync(SessionMessage{Type: "text", Text: "queued"})
		}()
	}

	require.Eventually(t, func() bool { return len(session.inbox) == 3 }, time.Second, 5*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		session.Stop()
		close(stopped)
	}()

	// Stop waits for the handler in progress
	h.release("first")

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}

	released := make(chan struct{})
	go func() {
		waiters.Wait()
		close(released)
	}()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("SendSync callers still blocked after Stop")
	}
}

func TestSession_SendAfterStopDoesNotBlock(t *testing.T) {
	h := newRecordingHandler()
	session := startSession(t, 4, h)
	session.Stop()

	done := make(chan struct{})
	go func() {
		session.SendSync(SessionMessage{Type: "build_complete", Text: "late"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SendSync blocked on a stopped session")
	}
	assert.Empty(t, h.log())
}

func TestSession_FinishBuild(t *testing.T) {
	session := startSession(t, 5, newRecordingHandler())
	defer session.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	session.setBuild(&activeBuild{id: "current", cancel: cancel, startedAt: time.Now()})
	require.True(t, session.IsBuilding())

	assert.False(t, session.finishBuild("superseded"), "result of an older build")
	assert.True(t, session.IsBuilding())
	assert.NoError(t, ctx.Err())

	assert.True(t, session.finishBuild("current"))
	assert.False(t, session.IsBuilding())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	assert.False(t, session.finishBuild("current"), "a result is accepted once")
}

func TestSession_StopCancelsBuild(t *testing.T) {
	session := startSession(t, 6, newRecordingHandler())

	ctx, cancel := context.WithCancel(context.Background())
	session.setBuild(&activeBuild{id: "b", cancel: cancel, startedAt: time.Now()})

	session.Stop()

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.False(t, session.IsBuilding())
}
