package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liangyou/mcversion/internal/autostart"
	"github.com/liangyou/mcversion/internal/installer"
	"github.com/liangyou/mcversion/internal/notify"
	"github.com/liangyou/mcversion/pkg/models"
)

type recordingNotifier struct {
	mu    sync.Mutex
	notes []notify.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
	return nil
}

func (r *recordingNotifier) Close() error { return nil }

type fakeRegistrar struct {
	registered   string
	unregistered bool
}

func (f *fakeRegistrar) Register(exePath string) error {
	f.registered = exePath
	return nil
}

func (f *fakeRegistrar) Unregister() error {
	f.unregistered = true
	return nil
}

func (f *fakeRegistrar) Location() (string, error) { return "fake", nil }

type fakeLauncher struct{ launched []string }

func (f *fakeLauncher) Launch(path string) error {
	f.launched = append(f.launched, path)
	return nil
}

type fakePrompter struct {
	dir   string
	ok    bool
	calls int
}

func (f *fakePrompter) SelectDir(defaultDir string) (string, bool, error) {
	f.calls++
	return f.dir, f.ok, nil
}

type allowAll struct{}

func (allowAll) Validate(string) error { return nil }

func versionServer(t *testing.T, versions ...string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/versions" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(versions)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestApp(t *testing.T, buf *bytes.Buffer, opts ...Option) *App {
	t.Helper()
	home := t.TempDir()
	base := []Option{
		WithHomeDir(func() (string, error) { return home, nil }),
		WithNotifierFactory(func(string) notify.Notifier { return &recordingNotifier{} }),
	}
	return NewApp(buf, "test", append(base, opts...)...)
}

func execute(cmd *cobra.Command, args ...string) error {
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	app := newTestApp(t, buf)

	require.NoError(t, execute(app.WatcherCommand(), "version"))
	assert.Equal(t, "mcversion version test\n", buf.String())
}

func TestKnownBeforeSeeding(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	app := newTestApp(t, buf)
	path := filepath.Join(t.TempDir(), "known.txt")

	require.NoError(t, execute(app.WatcherCommand(), "known", "--known-file", path))
	assert.Contains(t, buf.String(), "No known versions yet.")
}

func TestKnownListsSortedVersions(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	app := newTestApp(t, buf)
	path := filepath.Join(t.TempDir(), "known.txt")
	require.NoError(t, os.WriteFile(path, []byte("1.21\n1.20\n"), 0o644))

	require.NoError(t, execute(app.WatcherCommand(), "known", "--known-file", path))
	assert.Equal(t, "Known versions:\n  1.20\n  1.21\n", buf.String())
}

func TestRemoteListsVersions(t *testing.T) {
	t.Parallel()

	server := versionServer(t, "b", "a")
	buf := &bytes.Buffer{}
	app := newTestApp(t, buf)

	require.NoError(t, execute(app.WatcherCommand(), "remote", "--endpoint", server.URL))
	assert.Equal(t, "Remote versions:\n  a\n  b\n", buf.String())
}

func TestRemoteReportsServerFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	app := newTestApp(t, &bytes.Buffer{})
	assert.Error(t, execute(app.WatcherCommand(), "remote", "--endpoint", server.URL))
}

func TestCheckNotifiesAndAppendsNewVersions(t *testing.T) {
	t.Parallel()

	server := versionServer(t, "1.20", "1.21")
	path := filepath.Join(t.TempDir(), "known.txt")
	require.NoError(t, os.WriteFile(path, []byte("1.20\n"), 0o644))

	notifier := &recordingNotifier{}
	buf := &bytes.Buffer{}
	app := newTestApp(t, buf, WithNotifierFactory(func(string) notify.Notifier { return notifier }))

	require.NoError(t, execute(app.WatcherCommand(), "check", "--endpoint", server.URL, "--known-file", path))

	assert.Equal(t, "New versions:\n  1.21\n", buf.String())
	require.Len(t, notifier.notes, 1)
	assert.Contains(t, notifier.notes[0].Body, "1.21")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1.20\n1.21\n", string(data))
}

func TestCheckSeedsOnFirstRun(t *testing.T) {
	t.Parallel()

	server := versionServer(t, "1.20", "1.21")
	path := filepath.Join(t.TempDir(), "known.txt")

	notifier := &recordingNotifier{}
	buf := &bytes.Buffer{}
	app := newTestApp(t, buf, WithNotifierFactory(func(string) notify.Notifier { return notifier }))

	require.NoError(t, execute(app.WatcherCommand(), "check", "--endpoint", server.URL, "--known-file", path))

	assert.Contains(t, buf.String(), "No new versions (2 known).")
	assert.Empty(t, notifier.notes)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1.20\n1.21\n", string(data))
}

func TestWatchStopsOnCancel(t *testing.T) {
	t.Parallel()

	server := versionServer(t, "1.20")
	app := newTestApp(t, &bytes.Buffer{})
	cfg := models.Config{
		Endpoint:    server.URL,
		Interval:    time.Hour,
		KnownFile:   filepath.Join(t.TempDir(), "known.txt"),
		HTTPTimeout: time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.watch(ctx, cfg) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(cfg.KnownFile)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestWatchKeepsPollingWhenCompanionCannotBind(t *testing.T) {
	t.Parallel()

	// 端口已被一个正常工作的版本服务占用
	server := versionServer(t, "1.20", "1.21")

	app := newTestApp(t, &bytes.Buffer{})
	cfg := models.Config{
		Endpoint:    server.URL,
		Interval:    20 * time.Millisecond,
		KnownFile:   filepath.Join(t.TempDir(), "known.txt"),
		HTTPTimeout: time.Second,
		Companion: models.CompanionConfig{
			Enabled: true,
			Listen:  strings.TrimPrefix(server.URL, "http://"),
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.watch(ctx, cfg) }()

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(cfg.KnownFile)
		return err == nil && string(data) == "1.20\n1.21\n"
	}, 5*time.Second, 10*time.Millisecond)

	select {
	case err := <-done:
		t.Fatalf("watch stopped early: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestInstallWithFlags(t *testing.T) {
	t.Parallel()

	payload := []byte("binary")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	registrar := &fakeRegistrar{}
	launcher := &fakeLauncher{}
	prompter := &fakePrompter{}
	buf := &bytes.Buffer{}
	app := newTestApp(t, buf,
		WithRegistrarFactory(func(mode, name string) (autostart.Registrar, error) {
			assert.Equal(t, autostart.ModeService, mode)
			return registrar, nil
		}),
		WithLauncher(launcher),
		WithPrompter(prompter),
		WithDirChecker(allowAll{}),
	)

	dir := filepath.Join(t.TempDir(), "bin")
	require.NoError(t, execute(app.InstallerCommand(),
		"install", "--dir", dir, "--download-url", server.URL, "--autostart", "service"))

	assert.Zero(t, prompter.calls, "wizard must not run when --dir is given")
	require.Len(t, launcher.launched, 1)
	assert.Equal(t, registrar.registered, launcher.launched[0])
	assert.Equal(t, dir, filepath.Dir(registrar.registered))

	data, err := os.ReadFile(registrar.registered)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Contains(t, buf.String(), "Installed ")
}

func TestInstallWizardUsesSelectedDir(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("binary"))
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "picked")
	registrar := &fakeRegistrar{}
	prompter := &fakePrompter{dir: dir, ok: true}
	app := newTestApp(t, &bytes.Buffer{},
		WithRegistrarFactory(func(string, string) (autostart.Registrar, error) { return registrar, nil }),
		WithLauncher(&fakeLauncher{}),
		WithPrompter(prompter),
		WithDirChecker(allowAll{}),
	)

	require.NoError(t, execute(app.InstallerCommand(), "--download-url", server.URL))
	assert.Equal(t, 1, prompter.calls)
	assert.Equal(t, dir, filepath.Dir(registrar.registered))
}

func TestInstallWizardCancelled(t *testing.T) {
	t.Parallel()

	registrar := &fakeRegistrar{}
	buf := &bytes.Buffer{}
	app := newTestApp(t, buf,
		WithRegistrarFactory(func(string, string) (autostart.Registrar, error) { return registrar, nil }),
		WithPrompter(&fakePrompter{ok: false}),
		WithDirChecker(allowAll{}),
	)

	require.NoError(t, execute(app.InstallerCommand(), "install"))
	assert.Contains(t, buf.String(), "Installation cancelled.")
	assert.Empty(t, registrar.registered)
}

func TestInstallAbortsOnDownloadFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	registrar := &fakeRegistrar{}
	launcher := &fakeLauncher{}
	app := newTestApp(t, &bytes.Buffer{},
		WithRegistrarFactory(func(string, string) (autostart.Registrar, error) { return registrar, nil }),
		WithLauncher(launcher),
		WithDirChecker(allowAll{}),
	)

	err := execute(app.InstallerCommand(), "install", "--dir", t.TempDir(), "--download-url", server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "installation failed")
	assert.Empty(t, registrar.registered)
	assert.Empty(t, launcher.launched)
}

func TestInstallWithoutDownloadURL(t *testing.T) {
	t.Parallel()

	registrar := &fakeRegistrar{}
	launcher := &fakeLauncher{}
	app := newTestApp(t, &bytes.Buffer{},
		WithRegistrarFactory(func(string, string) (autostart.Registrar, error) { return registrar, nil }),
		WithLauncher(launcher),
		WithDirChecker(allowAll{}),
	)

	err := execute(app.InstallerCommand(), "install", "--dir", t.TempDir(), "--download-url=")
	require.ErrorIs(t, err, installer.ErrNoDownloadURL)
	assert.Empty(t, registrar.registered)
	assert.Empty(t, launcher.launched)
}

func TestUninstallRemovesBinary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "mcversion-test")
	require.NoError(t, os.WriteFile(target, []byte("bin"), 0o755))

	registrar := &fakeRegistrar{}
	home := t.TempDir()
	root := filepath.Join(home, ".mcversion")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "config.yaml"),
		[]byte("install:\n  binary_name: mcversion-test\n"), 0o644))

	app := NewApp(&bytes.Buffer{}, "test",
		WithHomeDir(func() (string, error) { return home, nil }),
		WithRegistrarFactory(func(string, string) (autostart.Registrar, error) { return registrar, nil }),
	)

	require.NoError(t, execute(app.InstallerCommand(), "uninstall", "--dir", dir))
	assert.True(t, registrar.unregistered)
	_, err := os.Stat(target)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestProgramStopCancelsRun(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	prg := newProgram(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	prg.exit = func(int) { t.Error("exit must not be called on a clean stop") }

	require.NoError(t, prg.Start(nil))
	<-started
	require.NoError(t, prg.Stop(nil))
}

func TestProgramExitsWhenRunFails(t *testing.T) {
	t.Parallel()

	exited := make(chan int, 1)
	prg := newProgram(func(ctx context.Context) error { return errors.New("boom") })
	prg.exit = func(code int) { exited <- code }

	require.NoError(t, prg.Start(nil))
	select {
	case code := <-exited:
		assert.Equal(t, 1, code)
	case <-time.After(time.Second):
		t.Fatal("expected exit on failure")
	}
}
