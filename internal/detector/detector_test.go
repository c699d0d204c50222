package detector

import (
	"bytes"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires Unix-like environment")
	}
}

// startSleep starts a sleep child and reaps it on cleanup.
func startSleep(t *testing.T) *exec.Cmd {
	t.Helper()
	// #nosec G204
	cmd := exec.Command("sleep", "5")
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})
	return cmd
}

func TestParsePIDs(t *testing.T) {
	assert.Equal(t, []int{42, 7, 42}, ParsePIDs("42 7 42\n"))
	assert.Equal(t, []int{12}, ParsePIDs("0 -3 abc 12 1.5"))
	assert.Empty(t, ParsePIDs(""))
	assert.Empty(t, ParsePIDs("\n\n"))
}

func TestProbeAlive(t *testing.T) {
	requireUnix(t)
	var p Probe
	assert.True(t, p.Alive(os.Getpid()))
	assert.False(t, p.Alive(0))
	assert.False(t, p.Alive(-1))

	cmd := startSleep(t)
	pid := cmd.Process.Pid
	assert.True(t, p.Alive(pid))
	_ = cmd.Process.Kill()
	_ = cmd.Wait()
	assert.False(t, p.Alive(pid), "reaped child must fail the probe")
}

func TestNewScanner(t *testing.T) {
	s, err := NewScanner(KindPidof, nil)
	require.NoError(t, err)
	assert.Equal(t, "pidof", s.Describe())

	s, err = NewScanner(KindProcTable, nil)
	require.NoError(t, err)
	assert.Equal(t, "proctable", s.Describe())

	s, err = NewScanner("", nil)
	require.NoError(t, err)
	_, lookErr := exec.LookPath("pidof")
	if lookErr == nil {
		assert.Equal(t, "pidof", s.Describe())
	} else {
		assert.Equal(t, "proctable", s.Describe())
	}

	_, err = NewScanner("ps", nil)
	assert.Error(t, err)
}

func TestPidofScanner_MissingBinaryDegradesToEmpty(t *testing.T) {
	var buf bytes.Buffer
	s := &PidofScanner{
		Binary: filepath.Join(t.TempDir(), "no-such-pidof"),
		Log:    slog.New(slog.NewTextHandler(&buf, nil)),
	}
	assert.Empty(t, s.Lookup("anything"))
	assert.Contains(t, buf.String(), "failed to execute pidof")
}

func TestPidofScanner_FakeTool(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	fake := filepath.Join(dir, "pidof")
	script := "#!/bin/sh\nif [ \"$1\" = svc ]; then echo '301 0 bogus 302'; exit 0; fi\nexit 1\n"
	require.NoError(t, os.WriteFile(fake, []byte(script), 0o755))

	var buf bytes.Buffer
	s := &PidofScanner{Binary: fake, Log: slog.New(slog.NewTextHandler(&buf, nil))}
	assert.Equal(t, []int{301, 302}, s.Lookup("svc"))
	assert.Empty(t, s.Lookup("other"))
	assert.Empty(t, buf.String(), "exit status 1 is a normal miss, not a failure")
}

func TestPidofScanner_Timeout(t *testing.T) {
	requireUnix(t)
	fake := filepath.Join(t.TempDir(), "pidof")
	require.NoError(t, os.WriteFile(fake, []byte("#!/bin/sh\nexec sleep 5\n"), 0o755))

	var buf bytes.Buffer
	s := &PidofScanner{Binary: fake, Timeout: 100 * time.Millisecond, Log: slog.New(slog.NewTextHandler(&buf, nil))}
	start := time.Now()
	assert.Empty(t, s.Lookup("svc"))
	assert.Less(t, time.Since(start), 4*time.Second)
	assert.Contains(t, buf.String(), "failed to execute pidof")
}

func TestPidofScanner_RealTool(t *testing.T) {
	requireUnix(t)
	if _, err := exec.LookPath("pidof"); err != nil {
		t.Skip("pidof not installed")
	}
	cmd := startSleep(t)
	s := &PidofScanner{}
	assert.True(t, slices.Contains(s.Lookup("sleep"), cmd.Process.Pid))
	assert.Empty(t, s.Lookup("procguard-definitely-not-running"))
}

func TestProcTableScanner(t *testing.T) {
	requireUnix(t)
	cmd := startSleep(t)
	s := &ProcTableScanner{}
	require.Eventually(t, func() bool {
		return slices.Contains(s.Lookup("sleep"), cmd.Process.Pid)
	}, 2*time.Second, 20*time.Millisecond)
	assert.Empty(t, s.Lookup("procguard-definitely-not-running"))
	for _, pid := range s.Lookup("sleep") {
		assert.Positive(t, pid)
	}
}
