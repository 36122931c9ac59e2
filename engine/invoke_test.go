package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/flanksource/transmute/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyHandle(t *testing.T, eng *fakeEngine) (*Manager, *Handle) {
	t.Helper()
	m := NewManager(staticLoader(eng))
	h, err := m.EnsureReady(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m, h
}

func TestInvokeSuccessCleansUp(t *testing.T) {
	eng := newFakeEngine()
	m, h := readyHandle(t, eng)

	out, err := Invoke(context.Background(), h, []byte("pixels"), "png", "jpeg")
	require.NoError(t, err)
	assert.Equal(t, "converted:pixels", string(out))

	assert.Empty(t, m.Tracked())
	assert.Empty(t, eng.names())
}

func TestInvokeWriteFailed(t *testing.T) {
	eng := newFakeEngine()
	eng.failWrite = errors.New("out of memory")
	m, h := readyHandle(t, eng)

	_, err := Invoke(context.Background(), h, []byte("x"), "png", "jpeg")
	assert.ErrorIs(t, err, api.ErrWriteFailed)
	assert.Empty(t, m.Tracked())
}

func TestInvokeConversionFailedCarriesDiagnostic(t *testing.T) {
	eng := newFakeEngine()
	eng.failExec = &diagError{text: "Invalid data found when processing input"}
	m, h := readyHandle(t, eng)

	_, err := Invoke(context.Background(), h, []byte("x"), "png", "jpeg")
	require.ErrorIs(t, err, api.ErrConversionFailed)

	var e *api.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "Invalid data found when processing input", e.Diagnostic)

	// the input was written and must still be cleaned up
	assert.Empty(t, m.Tracked())
	assert.Empty(t, eng.names())
}

func TestInvokeReadFailed(t *testing.T) {
	eng := newFakeEngine()
	eng.failRead = errors.New("short read")
	m, h := readyHandle(t, eng)

	_, err := Invoke(context.Background(), h, []byte("x"), "png", "jpeg")
	assert.ErrorIs(t, err, api.ErrReadFailed)
	assert.Empty(t, m.Tracked())
	assert.Empty(t, eng.names())
}

func TestInvokeMissingOutputIsReadFailed(t *testing.T) {
	eng := newFakeEngine()
	eng.skipOutput = true
	m, h := readyHandle(t, eng)

	_, err := Invoke(context.Background(), h, []byte("x"), "png", "jpeg")
	assert.ErrorIs(t, err, api.ErrReadFailed)
	assert.Empty(t, m.Tracked())
}

func TestInvokeRemovalFailureDoesNotMaskResult(t *testing.T) {
	eng := newFakeEngine()
	m, h := readyHandle(t, eng)
	eng.failRemove = errors.New("EBUSY")

	out, err := Invoke(context.Background(), h, []byte("x"), "png", "jpeg")
	require.NoError(t, err)
	assert.Equal(t, "converted:x", string(out))

	// the files stay tracked so shutdown can retry them
	assert.Len(t, m.Tracked(), 2)
}

func TestInvokeRepeatedFailuresDoNotGrowTracker(t *testing.T) {
	eng := newFakeEngine()
	eng.failExec = errors.New("unsupported codec")
	m, h := readyHandle(t, eng)

	for i := 0; i < 10; i++ {
		_, err := Invoke(context.Background(), h, []byte("x"), "tga", "png")
		assert.ErrorIs(t, err, api.ErrConversionFailed)
	}
	assert.Empty(t, m.Tracked())
}

func TestInvokeAfterShutdown(t *testing.T) {
	eng := newFakeEngine()
	m, h := readyHandle(t, eng)
	require.NoError(t, m.Shutdown(context.Background()))

	_, err := Invoke(context.Background(), h, []byte("x"), "png", "jpeg")
	assert.ErrorIs(t, err, api.ErrEngineNotReady)
	assert.Empty(t, m.Tracked())
}

func TestInvokeConcurrentCallsUseDistinctIdentifiers(t *testing.T) {
	eng := newFakeEngine()
	m, h := readyHandle(t, eng)

	const n = 16
	var wg sync.WaitGroup
	outs := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := Invoke(context.Background(), h, []byte{byte('a' + i)}, "png", "gif")
			assert.NoError(t, err)
			outs[i] = string(out)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		assert.Equal(t, "converted:"+string(rune('a'+i)), outs[i])
	}
	assert.Empty(t, m.Tracked())
	assert.Empty(t, eng.names())
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, "input-abc.png", identifier("input", "abc", ".PNG"))
	assert.Equal(t, "output-abc", identifier("output", "abc", ""))
	assert.True(t, strings.HasPrefix(Args("in", "out")[0], "-i"))
}
