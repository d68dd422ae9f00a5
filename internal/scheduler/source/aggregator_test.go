package source

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	sourceType SourceType
	name       string
	tasks      chan *TaskEvent
	startErr   error
	started    bool
	stopped    bool
	acked      []*TaskEvent
	nacked     []*TaskEvent
}

func newFakeSource(sourceType SourceType, name string) *fakeSource {
	return &fakeSource{sourceType: sourceType, name: name, tasks: make(chan *TaskEvent, 10)}
}

func (s *fakeSource) Type() SourceType { return s.sourceType }
func (s *fakeSource) Name() string     { return s.name }
func (s *fakeSource) Start(ctx context.Context) error {
	s.started = true
	return s.startErr
}
func (s *fakeSource) Stop() error {
	s.stopped = true
	close(s.tasks)
	return nil
}
func (s *fakeSource) Tasks() <-chan *TaskEvent { return s.tasks }
func (s *fakeSource) Ack(ctx context.Context, event *TaskEvent) error {
	s.acked = append(s.acked, event)
	return nil
}
func (s *fakeSource) Nack(ctx context.Context, event *TaskEvent, reason string) error {
	s.nacked = append(s.nacked, event)
	return nil
}
func (s *fakeSource) HealthCheck(ctx context.Context) error { return nil }

func TestAggregator_StartForwardsEvents(t *testing.T) {
	src := newFakeSource("database", "primary")
	agg := NewAggregator([]TaskSource{src}, 0, nil)

	require.NoError(t, agg.Start(context.Background()))
	assert.True(t, src.started)

	src.tasks <- &TaskEvent{ID: "evt-1"}

	select {
	case event := <-agg.Tasks():
		assert.Equal(t, "evt-1", event.ID)
		assert.Equal(t, SourceType("database"), event.SourceType)
		assert.Equal(t, "primary", event.SourceName)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for forwarded event")
	}

	require.NoError(t, agg.Stop())
	assert.True(t, src.stopped)
}

func TestAggregator_GetSource(t *testing.T) {
	src := newFakeSource("kafka", "audit-runs")
	agg := NewAggregator([]TaskSource{src}, 0, nil)

	assert.Same(t, TaskSource(src), agg.GetSource("kafka", "audit-runs"))
	assert.Nil(t, agg.GetSource("kafka", "missing"))
	assert.Equal(t, 1, agg.SourceCount())
}

func TestAggregator_AckAndNack_DelegateToSource(t *testing.T) {
	src := newFakeSource("http", "inbound")
	agg := NewAggregator([]TaskSource{src}, 0, nil)

	event := &TaskEvent{ID: "evt-2", SourceType: "http", SourceName: "inbound"}
	require.NoError(t, agg.Ack(context.Background(), event))
	require.NoError(t, agg.Nack(context.Background(), event, "boom"))

	assert.Len(t, src.acked, 1)
	assert.Len(t, src.nacked, 1)
}

func TestAggregator_Ack_UnknownSource(t *testing.T) {
	agg := NewAggregator(nil, 0, nil)
	event := &TaskEvent{ID: "evt-3", SourceType: "http", SourceName: "unknown"}
	assert.NoError(t, agg.Ack(context.Background(), event))
}

func TestAggregator_HealthCheck(t *testing.T) {
	src := newFakeSource("database", "primary")
	agg := NewAggregator([]TaskSource{src}, 0, nil)
	assert.NoError(t, agg.HealthCheck(context.Background()))
}

func TestAggregator_Start_Idempotent(t *testing.T) {
	src := newFakeSource("database", "primary")
	agg := NewAggregator([]TaskSource{src}, 0, nil)

	require.NoError(t, agg.Start(context.Background()))
	require.NoError(t, agg.Start(context.Background()))

	require.NoError(t, agg.Stop())
}
