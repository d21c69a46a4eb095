package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectWithEmptyURLIsDisabledNoOp(t *testing.T) {
	bus, err := Connect("")
	require.NoError(t, err)
	require.NotNil(t, bus)

	assert.NotPanics(t, func() {
		bus.PublishStateTransition("STOPPED", "RUNNING")
		bus.PublishPluginLoaded("p1", "NATIVE")
		bus.PublishPluginUnloaded("p1", "NATIVE")
		bus.PublishOverrun(1000, 2000)
		bus.Close()
	})
}

func TestNilBusIsSafeNoOp(t *testing.T) {
	var bus *Bus
	assert.NotPanics(t, func() {
		bus.PublishStateTransition("STOPPED", "RUNNING")
		bus.Close()
	})
}
