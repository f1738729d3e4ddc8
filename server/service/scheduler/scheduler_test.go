package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/daybrief/daybrief/synthesis"
)

func TestNewValidation(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	_, err = New(Config{Orchestrator: &synthesis.Orchestrator{}})
	require.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	s, err := New(Config{
		Orchestrator: &synthesis.Orchestrator{},
		Users:        func(context.Context) ([]string, error) { return nil, nil },
	})
	require.NoError(t, err)
	require.Equal(t, 15*time.Minute, s.interval)
}
