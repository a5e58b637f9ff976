package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupParsesLevel(t *testing.T) {
	require.NoError(t, Setup("debug", false, "gateway-mesh"))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Setup("not-a-level", false, "gateway-mesh"))
}
