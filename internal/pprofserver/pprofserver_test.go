package pprofserver_test

import (
	"context"
	"github.com/myrjola/casebook/internal/pprofserver"
	"github.com/myrjola/casebook/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"testing"
	"time"
)

func TestLaunch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done, err := pprofserver.Launch(ctx, "127.0.0.1:0", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pprof server did not shut down")
	}

	_, err = pprofserver.Launch(context.Background(), "not an address", testhelpers.NewLogger(io.Discard))
	require.Error(t, err)
}
