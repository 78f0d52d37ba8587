package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpersSafeBeforeInitialize(t *testing.T) {
	require.NotNil(t, Default())

	assert.NotPanics(t, func() {
		Info("startup")
		Warn("startup")
		Debug("startup")
		Error(nil)
		ErrorCtx(context.Background(), nil)
		InfoCtx(nil, "startup")
	})
}

func TestInitializeWithoutSentry(t *testing.T) {
	require.NoError(t, Initialize(Config{Debug: true}))
	assert.NotNil(t, Default())
	assert.NotNil(t, FromContext(context.Background()))
}
