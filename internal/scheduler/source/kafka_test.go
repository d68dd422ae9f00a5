package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perf-analysis/pkg/model"
	"github.com/perf-analysis/pkg/utils"
)

func TestNewKafkaSource_OptionsFromConfig(t *testing.T) {
	src, err := NewKafkaSource(&SourceConfig{
		Name: "audit-runs",
		Options: map[string]interface{}{
			"brokers": []interface{}{"kafka-1:9092", "kafka-2:9092"},
			"topic":   "runs",
		},
	})
	require.NoError(t, err)

	kafkaSrc := src.(*KafkaSource)
	assert.Equal(t, "audit-runs", kafkaSrc.Name())
	assert.Equal(t, SourceTypeKafka, kafkaSrc.Type())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, kafkaSrc.options.Brokers)
	assert.Equal(t, "runs", kafkaSrc.options.Topic)
}

func TestKafkaSource_ParseMessage(t *testing.T) {
	src := NewKafkaSourceWithOptions("audit-runs", DefaultKafkaOptions(), &utils.NullLogger{})

	run, err := src.parseMessage([]byte(`{"task":{"rid":"run-1"}}`))
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "run-1", run.RunUUID)
}

func TestKafkaSource_ParseMessage_InvalidJSON(t *testing.T) {
	src := NewKafkaSourceWithOptions("audit-runs", DefaultKafkaOptions(), &utils.NullLogger{})
	_, err := src.parseMessage([]byte(`not json`))
	require.Error(t, err)
}

func TestKafkaSource_StartStop(t *testing.T) {
	src := NewKafkaSourceWithOptions("audit-runs", DefaultKafkaOptions(), &utils.NullLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, src.Start(ctx))
	require.NoError(t, src.HealthCheck(ctx))
	require.NoError(t, src.Stop())
}

func TestKafkaSource_AckNack(t *testing.T) {
	src := NewKafkaSourceWithOptions("audit-runs", DefaultKafkaOptions(), &utils.NullLogger{})
	event := &TaskEvent{ID: "run-1", Run: &model.AuditRun{RunUUID: "run-1"}}

	assert.NoError(t, src.Ack(context.Background(), event))
	assert.NoError(t, src.Nack(context.Background(), event, "boom"))
}
