//go:build !windows

package supervisor

import (
	"context"
	"net"
	"os"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportImportSharesSocket(t *testing.T) {
	h, err := Listen(context.Background(), "127.0.0.1:0")
	require.NoError(t, err)
	defer h.Close()
	assert.False(t, h.Inherited())

	f, err := h.Export()
	require.NoError(t, err)

	imported, err := Import(f)
	require.NoError(t, err)
	defer imported.Close()
	assert.True(t, imported.Inherited())
	assert.Equal(t, h.Addr().String(), imported.Addr().String())

	// Closing the original copy leaves the socket open for the import.
	require.NoError(t, h.Close())

	accepted := make(chan error, 1)
	go func() {
		c, err := imported.Listener().Accept()
		if err == nil {
			c.Close()
		}
		accepted <- err
	}()

	conn, err := net.DialTimeout("tcp", imported.Addr().String(), time.Second)
	require.NoError(t, err)
	conn.Close()
	assert.NoError(t, <-accepted)
}

type plainListener struct{ net.Listener }

func TestExportWithoutDescriptor(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, err = NewSocketHandle(plainListener{ln}).Export()
	assert.True(t, IsSocketHandoffFailed(err))
}

func TestImportNil(t *testing.T) {
	_, err := Import(nil)
	assert.True(t, IsSocketHandoffFailed(err))
}

func TestImportNotASocket(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "notasocket")
	require.NoError(t, err)

	_, err = Import(f)
	assert.True(t, IsSocketHandoffFailed(err))
}

func TestInherit(t *testing.T) {
	t.Run("not activated", func(t *testing.T) {
		t.Setenv(EnvListenFDs, "")
		h, err := Inherit()
		assert.NoError(t, err)
		assert.Nil(t, h)
	})

	t.Run("other process", func(t *testing.T) {
		t.Setenv(EnvListenFDs, "1")
		t.Setenv(EnvListenPID, strconv.Itoa(os.Getpid()+1))
		h, err := Inherit()
		assert.NoError(t, err)
		assert.Nil(t, h)
	})

	t.Run("invalid count", func(t *testing.T) {
		t.Setenv(EnvListenFDs, "zero")
		t.Setenv(EnvListenPID, "")
		_, err := Inherit()
		assert.True(t, IsSocketHandoffFailed(err))
		_, set := syscall.Getenv(EnvListenFDs)
		assert.False(t, set, "activation variables are cleared")
	})
}

func TestManifestEncoding(t *testing.T) {
	m := Manifest{Generation: 12, ParentPID: 4321, Addr: "127.0.0.1:3000"}
	s, err := m.Encode()
	require.NoError(t, err)
	assert.NotContains(t, s, "=")

	got, err := DecodeManifest(s)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	_, err = DecodeManifest("!!")
	assert.Error(t, err)
}

func TestResumeFromEnv(t *testing.T) {
	t.Setenv(EnvHandoff, "")
	r, err := ResumeFromEnv()
	assert.NoError(t, err)
	assert.Nil(t, r)

	t.Setenv(EnvHandoff, "%%%")
	_, err = ResumeFromEnv()
	assert.Error(t, err)
}

func TestChildEnvDropsStaleActivation(t *testing.T) {
	t.Setenv(EnvListenFDs, "3")
	t.Setenv(EnvHandoff, "stale")
	t.Setenv("HXSSR_KEEP", "yes")

	env := childEnv(EnvListenFDs + "=1")
	assert.Contains(t, env, "HXSSR_KEEP=yes")
	assert.Contains(t, env, EnvListenFDs+"=1")
	assert.NotContains(t, env, EnvListenFDs+"=3")
	assert.NotContains(t, env, EnvHandoff+"=stale")
}
