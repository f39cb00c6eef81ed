package scheduler_test

import (
	"context"
	"testing"
	"time"

	"marketplace-sync/core/scheduler"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestScheduler_Add(t *testing.T) {
	s := scheduler.New(scheduler.Config{}, zap.NewNop())

	err := s.Add("stale-sync", "0 */15 * * * *", func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	err = s.Add("broken", "every now and then", func(ctx context.Context) error { return nil })
	assert.ErrorContains(t, err, "invalid schedule")
	assert.Equal(t, 1, s.Len())
}

func TestScheduler_RunsJob(t *testing.T) {
	s := scheduler.New(scheduler.Config{TimeoutSeconds: 5}, zap.NewNop())

	ran := make(chan struct{}, 1)
	err := s.Add("tick", "* * * * * *", func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})
	assert.NoError(t, err)

	s.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	}()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}
