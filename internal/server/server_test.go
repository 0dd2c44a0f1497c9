package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletter-gate/internal/common/errors"
)

func TestServerStartServeShutdown(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	})

	srv := New(handler, "0", "", "")
	require.NoError(t, srv.Start())
	require.NotEmpty(t, srv.Addr)

	_, port, err := net.SplitHostPort(srv.Addr)
	require.NoError(t, err)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://127.0.0.1:" + port + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}

func TestServerStartReportsBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()

	_, port, _ := net.SplitHostPort(ln.Addr().String())
	srv := New(http.NotFoundHandler(), port, "", "")

	err = srv.Start()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConnection))
}
