package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler(t *testing.T) {
	t.Run("add returns an id and a future run time", func(t *testing.T) {
		s := NewScheduler()
		id, next, err := s.Add("retrain", "0 2 * * *", func() {})
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.True(t, next.After(time.Now()))
	})

	t.Run("invalid expression", func(t *testing.T) {
		s := NewScheduler()
		_, _, err := s.Add("retrain", "not a cron", func() {})
		assert.Error(t, err)
	})

	t.Run("remove unschedules", func(t *testing.T) {
		s := NewScheduler()
		id, _, err := s.Add("retrain", "@hourly", func() {})
		require.NoError(t, err)

		s.Remove(id)
		assert.Empty(t, s.jobs)
		// Removing twice is a no-op.
		s.Remove(id)
	})

	t.Run("start and stop", func(t *testing.T) {
		s := NewScheduler()
		s.Start()
		s.Stop()
	})
}
