package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectOverSocket(t *testing.T) {
	// unix socket paths are length limited, keep it short
	dir, err := os.MkdirTemp("", "nyr")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	socket := filepath.Join(dir, "i.sock")

	c, _ := startCore(t)
	c.AddRouter(3, "amqp:/_topo/0/router3")
	c.MapDestination(3, "M0queue")

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		served <- ServeIPC(ctx, c, socket)
	}()

	var out string
	require.Eventually(t, func() bool {
		out, err = IPCGet(socket)
		return err == nil
	}, testTimeout, pollInterval)

	assert.Contains(t, out, " - 3 Rrouter3 nh=- ctl=- data=- origins=[] refs=4")
	assert.Contains(t, out, " - M0queue balanced routers=[3] subs=0")
	assert.Contains(t, out, " - Tqdrouter flood routers=[3] subs=0")
	assert.NotContains(t, out, "\x00")

	cancel()
	require.NoError(t, <-served)
	_, err = os.Stat(socket)
	assert.True(t, os.IsNotExist(err))
}
