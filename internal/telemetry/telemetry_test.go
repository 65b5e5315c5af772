package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/five82/inkreader/internal/session"
	"github.com/five82/inkreader/internal/state"
)

type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu           sync.Mutex
	connects     int
	disconnected bool
	messages     []published
	failWith     error
}

func (c *fakeClient) Connect() mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
	return doneToken{}
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return doneToken{err: c.failWith}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

func (c *fakeClient) snapshot() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.messages...)
}

func TestPublisherPublishesRetainedSnapshot(t *testing.T) {
	store := &state.Store{}
	sess := session.Fresh()
	sess.CurrentPage = 3
	sess.PageCount = 7
	store.Update(&sess, 2, nil)

	client := &fakeClient{}
	p, err := newPublisher(client, PublisherOptions{Prefix: "/lab/", DeviceID: "dev-9", Store: store}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "lab/dev-9/status", p.Topic())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	p.Notify()
	p.Notify()
	require.Eventually(t, func() bool { return len(client.snapshot()) >= 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	msgs := client.snapshot()
	msg := msgs[0]
	assert.Equal(t, "lab/dev-9/status", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.True(t, msg.retained)

	var view state.View
	require.NoError(t, msgpack.Unmarshal(msg.payload, &view))
	assert.Equal(t, 3, view.CurrentPage)
	assert.Equal(t, 7, view.PageCount)
	assert.Equal(t, 2, view.CachedPages)

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Equal(t, 1, client.connects)
	assert.True(t, client.disconnected)
}

func TestPublisherReportsPublishError(t *testing.T) {
	client := &fakeClient{failWith: errors.New("not authorized")}
	p, err := newPublisher(client, PublisherOptions{DeviceID: "d", Store: &state.Store{}}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "inkreader/d/status", p.Topic())
	assert.ErrorContains(t, p.publish(), "not authorized")
}

func TestNewPublisherValidation(t *testing.T) {
	_, err := NewPublisher(PublisherOptions{})
	assert.Error(t, err)
	_, err = newPublisher(&fakeClient{}, PublisherOptions{DeviceID: "d"}, testLogger())
	assert.Error(t, err)
	_, err = newPublisher(&fakeClient{}, PublisherOptions{Store: &state.Store{}}, testLogger())
	assert.Error(t, err)
}

func TestProberReportsLatestResult(t *testing.T) {
	var mu sync.Mutex
	answers := []bool{false, true}
	calls := 0
	p, err := NewProber(ProberOptions{
		Host:     "gateway.local",
		Interval: 10 * time.Millisecond,
		Ping: func(_ context.Context, host string, _ time.Duration) (bool, error) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, "gateway.local", host)
			up := answers[min(calls, len(answers)-1)]
			calls++
			return up, nil
		},
	})
	require.NoError(t, err)

	_, ok := p.Poll()
	assert.False(t, ok, "nothing before Start")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	p.Start(ctx)

	require.Eventually(t, func() bool {
		up, ok := p.Poll()
		return ok && up
	}, 2*time.Second, 5*time.Millisecond)
}

func TestProberTreatsErrorsAsDown(t *testing.T) {
	p, err := NewProber(ProberOptions{
		Host: "gateway.local",
		Ping: func(context.Context, string, time.Duration) (bool, error) {
			return true, errors.New("permission denied")
		},
	})
	require.NoError(t, err)

	p.probe(context.Background())
	up, ok := p.Poll()
	assert.True(t, ok)
	assert.False(t, up)
}

func TestNewProberRequiresHost(t *testing.T) {
	_, err := NewProber(ProberOptions{})
	assert.Error(t, err)
}

func TestProberRunReturnsOnCancel(t *testing.T) {
	p, err := NewProber(ProberOptions{
		Host:     "gateway.local",
		Interval: time.Millisecond,
		Ping: func(context.Context, string, time.Duration) (bool, error) {
			return true, nil
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := p.Poll()
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
