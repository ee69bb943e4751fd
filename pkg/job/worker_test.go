package job

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskArgsKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "filebox:task", taskArgs{}.Kind())
}

// All tasks share one kind, so River's uniqueness hash must see the task
// name and key. If these tags go missing, the first unique insert within a
// window silently shadows every other task of every file.
func TestTaskArgsUniquenessTags(t *testing.T) {
	t.Parallel()

	typ := reflect.TypeOf(taskArgs{})

	name, ok := typ.FieldByName("TaskName")
	require.True(t, ok)
	assert.Equal(t, "unique", name.Tag.Get("river"))

	key, ok := typ.FieldByName("UniqueKey")
	require.True(t, ok)
	assert.Equal(t, "unique", key.Tag.Get("river"))

	// Payloads carry volatile fields (correlation ids, timestamps) and
	// must stay out of the hash.
	payload, ok := typ.FieldByName("Payload")
	require.True(t, ok)
	assert.Empty(t, payload.Tag.Get("river"))
}

func TestBuildJobArgs(t *testing.T) {
	t.Parallel()

	t.Run("nil payload stays empty", func(t *testing.T) {
		t.Parallel()

		args, opts, err := buildJobArgs("validate", nil)
		require.NoError(t, err)
		assert.Equal(t, "validate", args.TaskName)
		assert.Empty(t, args.Payload)
		require.NotNil(t, opts)
	})

	t.Run("payload round-trips through JSON", func(t *testing.T) {
		t.Parallel()

		in := filePayload{FileID: "f-9", Size: 512}
		args, _, err := buildJobArgs("generate-checksum", in)
		require.NoError(t, err)

		var out filePayload
		require.NoError(t, json.Unmarshal(args.Payload, &out))
		assert.Equal(t, in, out)
	})

	t.Run("unmarshalable payload is rejected", func(t *testing.T) {
		t.Parallel()

		_, _, err := buildJobArgs("validate", func() {})
		require.Error(t, err)
	})

	t.Run("options map onto insert opts", func(t *testing.T) {
		t.Parallel()

		when := time.Now().Add(time.Hour)
		args, opts, err := buildJobArgs("generate-thumbnail", nil,
			InQueue("media"),
			ScheduledAt(when),
			MaxAttempts(3),
			Priority(2),
			Tags("pipeline"),
			UniqueFor(time.Hour),
			UniqueKey("f-9:generate-thumbnail"),
		)
		require.NoError(t, err)
		assert.Equal(t, "media", opts.Queue)
		assert.Equal(t, when, opts.ScheduledAt)
		assert.Equal(t, 3, opts.MaxAttempts)
		assert.Equal(t, 2, opts.Priority)
		assert.Equal(t, []string{"pipeline"}, opts.Tags)
		assert.Equal(t, time.Hour, opts.UniqueOpts.ByPeriod)
		assert.True(t, opts.UniqueOpts.ByArgs)
		assert.Equal(t, "f-9:generate-thumbnail", args.UniqueKey)
	})

	t.Run("unique key ignored without a window", func(t *testing.T) {
		t.Parallel()

		args, opts, err := buildJobArgs("validate", nil, UniqueKey("orphan"))
		require.NoError(t, err)
		assert.Empty(t, args.UniqueKey)
		assert.Zero(t, opts.UniqueOpts.ByPeriod)
		assert.False(t, opts.UniqueOpts.ByArgs)
	})

	t.Run("non-positive knobs fall through to defaults", func(t *testing.T) {
		t.Parallel()

		_, opts, err := buildJobArgs("validate", nil, MaxAttempts(0), MaxAttempts(-1), InQueue(""))
		require.NoError(t, err)
		assert.Zero(t, opts.MaxAttempts)
		assert.Empty(t, opts.Queue)
	})
}

func TestScheduledTaskExecutor(t *testing.T) {
	t.Parallel()

	t.Run("runs the handler and ignores any payload", func(t *testing.T) {
		t.Parallel()

		ran := false
		exec := &scheduledTaskExecutor{handler: func(ctx context.Context) error {
			ran = true
			return nil
		}}

		require.NoError(t, exec.Execute(context.Background(), []byte(`{"ignored":true}`)))
		assert.True(t, ran)
	})

	t.Run("handler errors propagate", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("sweep failed")
		exec := &scheduledTaskExecutor{handler: func(ctx context.Context) error { return boom }}
		require.ErrorIs(t, exec.Execute(context.Background(), nil), boom)
	})
}

func TestParseCronSchedule(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{
		"* * * * *",
		"*/10 * * * *",
		"0 0 * * *",
		"30 14 * * 0",
	} {
		schedule, err := parseCronSchedule(expr)
		require.NoError(t, err, "expr %q", expr)

		now := time.Now()
		assert.True(t, schedule.Next(now).After(now), "expr %q should yield a future time", expr)
	}

	for _, expr := range []string{
		"",
		"not a cron",
		"* * * * * *",
		"61 * * * *",
	} {
		_, err := parseCronSchedule(expr)
		require.Error(t, err, "expr %q", expr)
	}
}
