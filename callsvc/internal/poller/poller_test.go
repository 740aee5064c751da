package poller

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callflow-systems/callflow-stack/callsvc/internal/telephony"
	"github.com/callflow-systems/callflow-stack/common/logging"
	"github.com/callflow-systems/callflow-stack/common/messaging"
	"github.com/callflow-systems/callflow-stack/common/messaging/memory"
	"github.com/callflow-systems/callflow-stack/common/models"
)

type fakePlatform struct {
	queues    []telephony.Extension
	queuesErr error
	logs      map[string][]models.CallEvent
	logErrs   map[string]error
}

func (f *fakePlatform) CallQueues(ctx context.Context) ([]telephony.Extension, error) {
	return f.queues, f.queuesErr
}

func (f *fakePlatform) CallLog(ctx context.Context, extensionID string, since time.Time) ([]models.CallEvent, error) {
	if err := f.logErrs[extensionID]; err != nil {
		return nil, err
	}
	return f.logs[extensionID], nil
}

func call(id string) models.CallEvent {
	return models.CallEvent{
		ID:        id,
		StartTime: time.Now(),
		Direction: models.DirectionInbound,
		Result:    models.ResultCompleted,
		From:      models.PhoneInfo{PhoneNumber: "+15551234567"},
	}
}

func newTestPoller(t *testing.T, platform Platform) (*Poller, *[]*messaging.CallLoggedData) {
	t.Helper()

	bus := memory.New(slog.Default())
	require.NoError(t, bus.Connect(context.Background()))

	var received []*messaging.CallLoggedData
	require.NoError(t, bus.Subscribe(messaging.TopicCallLogged, func(ctx context.Context, env *messaging.Envelope) error {
		data, err := env.CallLogged()
		require.NoError(t, err)
		received = append(received, data)
		return nil
	}))

	return New(platform, bus, logging.Default(), time.Minute, 1), &received
}

func TestPollPublishesNewCalls(t *testing.T) {
	platform := &fakePlatform{
		queues: []telephony.Extension{{ID: "ext-1", Type: "CallQueue"}},
		logs:   map[string][]models.CallEvent{"ext-1": {call("call-1"), call("call-2")}},
	}
	p, received := newTestPoller(t, platform)

	n, err := p.PollOnce(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, *received, 2)
	assert.Equal(t, "call-1", (*received)[0].Call.ID)
	assert.Equal(t, "ext-1", (*received)[0].ExtensionID)
}

func TestPollSkipsAlreadySeenCalls(t *testing.T) {
	platform := &fakePlatform{
		queues: []telephony.Extension{{ID: "ext-1", Type: "CallQueue"}},
		logs:   map[string][]models.CallEvent{"ext-1": {call("call-1")}},
	}
	p, received := newTestPoller(t, platform)

	for i := 0; i < 3; i++ {
		_, err := p.PollOnce(context.Background(), 1)
		require.NoError(t, err)
	}
	assert.Len(t, *received, 1)
}

func TestPollContinuesPastFailingExtension(t *testing.T) {
	platform := &fakePlatform{
		queues: []telephony.Extension{
			{ID: "ext-bad", Type: "CallQueue"},
			{ID: "ext-good", Type: "CallQueue"},
		},
		logs:    map[string][]models.CallEvent{"ext-good": {call("call-1")}},
		logErrs: map[string]error{"ext-bad": errors.New("platform timeout")},
	}
	p, received := newTestPoller(t, platform)

	n, err := p.PollOnce(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, *received, 1)
}

func TestPollFailsWhenQueueListingFails(t *testing.T) {
	platform := &fakePlatform{queuesErr: errors.New("unauthorized")}
	p, received := newTestPoller(t, platform)

	_, err := p.PollOnce(context.Background(), 1)
	require.Error(t, err)
	assert.Empty(t, *received)
}

func TestFailedPublishIsRetriedNextPoll(t *testing.T) {
	platform := &fakePlatform{
		queues: []telephony.Extension{{ID: "ext-1", Type: "CallQueue"}},
		logs:   map[string][]models.CallEvent{"ext-1": {call("call-1")}},
	}

	// A disconnected bus makes every publish fail.
	bus := memory.New(slog.Default())
	p := New(platform, bus, logging.Default(), time.Minute, 1)

	n, err := p.PollOnce(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// After the bus recovers the same call goes out.
	require.NoError(t, bus.Connect(context.Background()))
	n, err = p.PollOnce(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
