package media_test

import (
	"context"
	"io"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/media"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/require"
)

func newRunner() *media.Runner {
	return media.NewRunner(log.NewStdLogger(io.Discard))
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestRunnerCollectsStdout(t *testing.T) {
	skipWithoutShell(t)

	out, err := newRunner().Run(context.Background(), "sh", []string{"-c", "printf 'hello'"})
	require.NoError(t, err)
	require.Equal(t, "hello", string(out))
}

func TestRunnerNonZeroExitCarriesStderr(t *testing.T) {
	skipWithoutShell(t)

	_, err := newRunner().Run(context.Background(), "sh", []string{"-c", "echo boom >&2; exit 3"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}

func TestRunnerCancelKillsProcess(t *testing.T) {
	skipWithoutShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newRunner().Run(ctx, "sh", []string{"-c", "sleep 30"})
	require.Error(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestRunnerStreamsStdoutToHandler(t *testing.T) {
	skipWithoutShell(t)

	var lines []string
	err := newRunner().RunWithStdout(context.Background(), "sh", []string{"-c", "printf 'a\\nb\\nc\\n'"}, func(r io.Reader) error {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		lines = strings.Split(strings.TrimSpace(string(data)), "\n")
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, lines)
}
