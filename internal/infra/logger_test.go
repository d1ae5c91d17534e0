package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		log, err := NewLogger(env)
		require.NoError(t, err, env)
		assert.NotNil(t, log)
		_ = log.Sync()
	}
}
