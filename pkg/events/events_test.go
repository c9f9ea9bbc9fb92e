package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syntor/forge/pkg/gateway"
	"github.com/syntor/forge/pkg/logging"
	"github.com/syntor/forge/pkg/models"
	"github.com/syntor/forge/pkg/pipeline"
	"github.com/syntor/forge/pkg/profile"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(KafkaConfig{Topic: DefaultTopic}, w, logging.NewNop())

	e := NewEvent(TypeEntryAppended, "session-1")
	e.RunID = "run-1"
	e.Mode = models.ModeChatbot
	e.Role = models.RoleSynthesizer
	e.Text = "```js\nbot()\n```"
	require.NoError(t, p.Publish(context.Background(), e))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "run-1", string(msg.Key))
	assert.Equal(t, "entry_appended", header(msg, "event_type"))
	assert.Equal(t, "chatbot", header(msg, "mode"))

	decoded, err := FromJSON(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, e.ID, decoded.ID)
	assert.Equal(t, e.Text, decoded.Text)
	assert.Equal(t, models.RoleSynthesizer, decoded.Role)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
	assert.ErrorIs(t, p.Publish(context.Background(), e), ErrClosed)
	require.NoError(t, p.Close())
}

func TestKafkaPublisherWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newKafkaPublisher(KafkaConfig{Topic: DefaultTopic}, w, logging.NewNop())
	err := p.Publish(context.Background(), NewEvent(TypeStateChanged, "s"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestNewKafkaPublisher(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{}, nil)
	assert.Error(t, err)

	p, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopic, p.config.Topic)
	assert.Equal(t, DefaultProducerConfig(), p.config.Producer)
	require.NoError(t, p.Close())
}

func TestEventKey(t *testing.T) {
	e := NewEvent(TypeConsoleLine, "session")
	assert.Equal(t, "session", e.Key())
	e.RunID = "run"
	assert.Equal(t, "run", e.Key())
}

func TestCodecMapping(t *testing.T) {
	assert.Equal(t, kafka.Gzip, compressionCodec("gzip"))
	assert.Equal(t, kafka.Zstd, compressionCodec("zstd"))
	assert.Equal(t, kafka.Compression(0), compressionCodec("none"))
	assert.Equal(t, kafka.RequireNone, requiredAcks("0"))
	assert.Equal(t, kafka.RequireOne, requiredAcks("1"))
	assert.Equal(t, kafka.RequireAll, requiredAcks("all"))
}

func TestObserverTranslatesNotifications(t *testing.T) {
	rec := &Recorder{}
	o := NewObserver(rec, nil)

	role := models.RoleMechanic
	o.StateChanged(models.PipelineState{Phase: models.PhaseRunning, Running: true, CurrentRole: &role, Mode: models.ModeWebsite, RunID: "run-7"})
	o.EntryAppended(models.TranscriptEntry{ID: "e1", Role: role, Content: "flow", Mode: models.ModeWebsite})
	o.WorkspaceChanged([]models.VirtualFile{{Name: "index.html"}, {Name: "style.css"}}, "index.html")
	o.ConsoleLine(models.ConsoleLine{Kind: models.LineInfo, Text: "hello"})
	require.NoError(t, o.Close())

	got := rec.Events()
	require.Len(t, got, 4)
	for _, e := range got {
		assert.Equal(t, o.SessionID(), e.SessionID)
		assert.Equal(t, "run-7", e.RunID)
	}
	assert.Equal(t, models.PhaseRunning, got[0].Phase)
	assert.Equal(t, models.RoleMechanic, got[0].Role)
	assert.Equal(t, "e1", got[1].EntryID)
	assert.Equal(t, []string{"index.html", "style.css"}, got[2].Files)
	assert.Equal(t, "index.html", got[2].Text)
	assert.Equal(t, models.LineInfo, got[3].Kind)

	// notifications after close are ignored
	o.ConsoleLine(models.ConsoleLine{Text: "late"})
	assert.Len(t, rec.Events(), 4)
}

type blockingPublisher struct {
	release chan struct{}
	Recorder
}

func (b *blockingPublisher) Publish(ctx context.Context, e Event) error {
	<-b.release
	return b.Recorder.Publish(ctx, e)
}

func TestObserverNeverBlocks(t *testing.T) {
	pub := &blockingPublisher{release: make(chan struct{})}
	o := NewObserver(pub, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultBuffer+50; i++ {
			o.ConsoleLine(models.ConsoleLine{Text: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("observer blocked the caller")
	}
	assert.Positive(t, o.Dropped())

	close(pub.release)
	require.NoError(t, o.Close())
}

type stubGateway struct{}

func (stubGateway) Ready() error { return nil }

func (stubGateway) GenerateQuestions(context.Context, string, []models.Attachment) ([]string, error) {
	return nil, nil
}

func (stubGateway) ImprovePrompt(_ context.Context, idea string, _ []gateway.QA) (string, error) {
	return idea, nil
}

func (stubGateway) RunStep(_ context.Context, req gateway.StepRequest) (string, error) {
	return "```\ncode for " + string(req.Role) + "\n```", nil
}

func TestObserverWithSession(t *testing.T) {
	rec := &Recorder{}
	o := NewObserver(rec, nil)
	s := pipeline.NewSession(stubGateway{}, pipeline.Config{Mode: models.ModePromptRefiner, Observer: o})
	s.SetIdea("tighten this prompt")

	_, err := s.Start(context.Background())
	require.NoError(t, err)
	require.NoError(t, o.Close())

	appended := rec.OfType(TypeEntryAppended)
	require.Len(t, appended, len(profile.Sequence()))
	runID := s.State().RunID
	require.NotEmpty(t, runID)
	for i, e := range appended {
		assert.Equal(t, profile.Sequence()[i], e.Role)
		assert.Equal(t, runID, e.RunID)
		assert.Equal(t, models.ModePromptRefiner, e.Mode)
	}

	states := rec.OfType(TypeStateChanged)
	require.NotEmpty(t, states)
	assert.Equal(t, models.PhaseFinished, states[len(states)-1].Phase)
	assert.NotEmpty(t, rec.OfType(TypeWorkspaceChanged))
}
