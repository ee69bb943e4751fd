package job

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHealthcheck(t *testing.T) {
	t.Parallel()

	t.Run("nil manager", func(t *testing.T) {
		t.Parallel()

		err := Healthcheck(nil)(context.Background())
		require.ErrorIs(t, err, ErrHealthcheckFailed)
	})

	t.Run("manager not started", func(t *testing.T) {
		t.Parallel()

		m := &Manager{}
		err := Healthcheck(m)(context.Background())
		require.ErrorIs(t, err, ErrHealthcheckFailed)
		require.ErrorIs(t, err, errManagerNotStarted)
	})
}
