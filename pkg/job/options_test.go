package job

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sweepTask struct {
	ran bool
}

func (t *sweepTask) Name() string     { return "sweep-stale-uploads" }
func (t *sweepTask) Schedule() string { return "*/10 * * * *" }
func (t *sweepTask) Handle(ctx context.Context) error {
	t.ran = true
	return nil
}

func TestConfigOptions(t *testing.T) {
	t.Parallel()

	t.Run("WithTask registers under the task's name", func(t *testing.T) {
		t.Parallel()

		cfg := newConfig()
		WithTask(&recordingTask{name: "validate"})(cfg)

		_, ok := cfg.registry.get("validate")
		assert.True(t, ok)
	})

	t.Run("WithScheduledTask captures name, schedule, and handler", func(t *testing.T) {
		t.Parallel()

		task := &sweepTask{}
		cfg := newConfig()
		WithScheduledTask(task)(cfg)

		require.Len(t, cfg.schedules, 1)
		sched := cfg.schedules[0]
		assert.Equal(t, "sweep-stale-uploads", sched.name)
		assert.Equal(t, "*/10 * * * *", sched.schedule)

		require.NoError(t, sched.handler(context.Background()))
		assert.True(t, task.ran)
	})

	t.Run("WithQueue keeps positive worker counts only", func(t *testing.T) {
		t.Parallel()

		cfg := newConfig()
		WithQueue("media", 2)(cfg)
		WithQueue("ignored", 0)(cfg)
		WithQueue("also-ignored", -3)(cfg)

		assert.Equal(t, map[string]int{"media": 2}, cfg.queues)
	})

	t.Run("WithLogger ignores nil", func(t *testing.T) {
		t.Parallel()

		cfg := newConfig()
		WithLogger(nil)(cfg)
		assert.Nil(t, cfg.logger)

		log := slog.Default()
		WithLogger(log)(cfg)
		assert.Same(t, log, cfg.logger)
	})

	t.Run("WithMaxWorkers ignores non-positive values", func(t *testing.T) {
		t.Parallel()

		cfg := newConfig()
		WithMaxWorkers(0)(cfg)
		WithMaxWorkers(-5)(cfg)
		assert.Zero(t, cfg.maxWorkers)

		WithMaxWorkers(50)(cfg)
		assert.Equal(t, 50, cfg.maxWorkers)
	})
}

func TestNewManager_NilPool(t *testing.T) {
	t.Parallel()

	_, err := NewManager(nil)
	require.ErrorIs(t, err, ErrPoolRequired)

	_, err = NewEnqueuer(nil)
	require.ErrorIs(t, err, ErrPoolRequired)
}
