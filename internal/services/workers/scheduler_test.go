package workers

import (
	"context"
	"testing"
	"time"

	"github.com/ateesdalejr/podlistener/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_EnqueuesPollOnStartup(t *testing.T) {
	e := newEnv(t)
	s := NewScheduler(e.jobs, time.Hour, 7)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Len(t, e.jobsForTask(t, models.TaskPollAllFeeds), 1)
}

func TestScheduler_DefaultsPollInterval(t *testing.T) {
	s := NewScheduler(nil, 0, 7)
	assert.Equal(t, 15*time.Minute, s.pollInterval)
}
