package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebook/internal/domain"
)

func TestMain(m *testing.M) {
	color.NoColor = true

	os.Exit(m.Run())
}

var testBuild = BuildInfo{Version: "1.2.3", Commit: "abc123", BuildTime: "2026-01-02T03:04:05Z"}

type fixtureConfig struct {
	syncURL string // empty disables sync
	port    int
	extra   string
}

type fixture struct {
	t   *testing.T
	dir string
}

func newFixture(t *testing.T, fc fixtureConfig) *fixture {
	t.Helper()

	dir := t.TempDir()

	syncBlock := "sync:\n  enabled: false\n"
	if fc.syncURL != "" {
		syncBlock = fmt.Sprintf("sync:\n  enabled: true\n  base_url: %s\n  interval: 1h\n", fc.syncURL)
	}

	port := fc.port
	if port == 0 {
		port = 8080
	}

	base := fmt.Sprintf(`app:
  environment: test
log:
  level: debug
server:
  host: 127.0.0.1
  port: %d
storage:
  driver: diskv
  path: %s
client:
  timeout: 2s
  retry:
    max_attempts: 1
%s%s`, port, filepath.Join(dir, "data"), syncBlock, fc.extra)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(base), 0o600))

	return &fixture{t: t, dir: dir}
}

// executeCommand runs a fresh root command and returns its combined output.
func (f *fixture) executeCommand(ctx context.Context, args ...string) (string, error) {
	f.t.Helper()

	root := New(testBuild)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(append([]string{"--profile", "test", "--config-dir", f.dir}, args...))

	err := root.ExecuteContext(ctx)

	return buf.String(), err
}

func (f *fixture) run(args ...string) (string, error) {
	f.t.Helper()
	return f.executeCommand(context.Background(), args...)
}

type fakeRemote struct {
	*httptest.Server
	posts atomic.Int32
}

func newFakeRemote(t *testing.T, status int) *fakeRemote {
	t.Helper()

	r := &fakeRemote{}
	r.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}

		w.Header().Set("Content-Type", "application/json")

		switch req.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`[
				{"userId": 1, "id": 1, "title": "Remote wisdom.", "body": "b"},
				{"userId": 1, "id": 2, "title": "Remote patience.", "body": "b"}
			]`))
		case http.MethodPost:
			r.posts.Add(1)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": 101}`))
		}
	}))
	t.Cleanup(r.Close)

	return r
}

func TestVersion(t *testing.T) {
	f := newFixture(t, fixtureConfig{})

	out, err := f.run("version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3\n", out)

	out, err = f.run("version")
	require.NoError(t, err)
	assert.Contains(t, out, "abc123")
	assert.Contains(t, out, "2026-01-02T03:04:05Z")

	out, err = f.run("version", "--output", "json")
	require.NoError(t, err)

	var info versionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "1.2.3", info.Version)
	assert.NotEmpty(t, info.GoVersion)

	_, err = f.run("version", "--output", "yaml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestList_SeedsDefaults(t *testing.T) {
	f := newFixture(t, fixtureConfig{})

	out, err := f.run("list")
	require.NoError(t, err)

	assert.Contains(t, out, "Quotes - 3")
	assert.Contains(t, out, "CATEGORY")

	for _, q := range domain.DefaultQuotes() {
		assert.Contains(t, out, q.Category)
	}

	assert.Contains(t, out, "Don't let yesterday take up too much of today.")
}

func TestAdd_PersistsAcrossRuns(t *testing.T) {
	f := newFixture(t, fixtureConfig{})

	out, err := f.run("add", "Stay hungry.", "Wisdom")
	require.NoError(t, err)
	assert.Equal(t, "Quote added successfully!\n", out)

	out, err = f.run("list", "--category", "Wisdom")
	require.NoError(t, err)
	assert.Contains(t, out, "Quotes in Wisdom - 1")
	assert.Contains(t, out, "Stay hungry.")

	out, err = f.run("list", "-c", "Nothing")
	require.NoError(t, err)
	assert.Contains(t, out, "none")
}

func TestAdd_Rejected(t *testing.T) {
	f := newFixture(t, fixtureConfig{})

	_, err := f.run("add", "   ", "Wisdom")
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "please enter both quote text and category", domain.UserMessage(err))

	_, err = f.run("add", "only text")
	assert.Error(t, err)

	out, err := f.run("list")
	require.NoError(t, err)
	assert.Contains(t, out, "Quotes - 3")
}

func TestFilter_SelectsRandomAndCategories(t *testing.T) {
	f := newFixture(t, fixtureConfig{})

	out, err := f.run("filter")
	require.NoError(t, err)
	assert.Equal(t, "all\n", out)

	out, err = f.run("filter", "Life")
	require.NoError(t, err)
	assert.Equal(t, "Filter set to Life.\n", out)

	out, err = f.run("categories")
	require.NoError(t, err)
	assert.Contains(t, out, "* Life\n")
	assert.Contains(t, out, "  all\n")
	assert.Contains(t, out, "  Motivation\n")

	out, err = f.run("random")
	require.NoError(t, err)
	assert.Contains(t, out, `"Don't let yesterday take up too much of today."`)
	assert.Contains(t, out, "Category: Life")

	out, err = f.run("random", "--category", "Motivation")
	require.NoError(t, err)
	assert.Contains(t, out, "Category: Motivation")

	_, err = f.run("filter", " ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRandom_EmptyCategory(t *testing.T) {
	f := newFixture(t, fixtureConfig{})

	_, err := f.run("random", "-c", "Nope")
	require.ErrorIs(t, err, domain.ErrNoQuotes)
	assert.Equal(t, "no quotes in this category", domain.UserMessage(err))
}

func TestExportImport(t *testing.T) {
	f := newFixture(t, fixtureConfig{})
	out := t.TempDir()

	jsonPath := filepath.Join(out, "backup.json")
	msg, err := f.run("export", "--output", jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "Quotes exported to "+jsonPath+"\n", msg)

	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)

	var exported []domain.Quote
	require.NoError(t, json.Unmarshal(raw, &exported))
	assert.Equal(t, domain.DefaultQuotes(), exported)

	stdout, err := f.run("export", "-o", "-")
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), stdout)

	xlsxPath := filepath.Join(out, "backup.xlsx")
	_, err = f.run("export", "-o", xlsxPath)
	require.NoError(t, err)

	msg, err = f.run("import", xlsxPath)
	require.NoError(t, err)
	assert.Equal(t, "Quotes imported successfully! 0 added, 0 skipped.\n", msg, "duplicates are skipped by text")

	extra := filepath.Join(out, "extra.json")
	require.NoError(t, os.WriteFile(extra,
		[]byte(`[{"text":"Imported.","category":"File"},{"text":""},{"text":"Imported.","category":"Again"}]`), 0o600))

	msg, err = f.run("import", extra)
	require.NoError(t, err)
	assert.Equal(t, "Quotes imported successfully! 1 added, 1 skipped.\n", msg)

	list, err := f.run("list")
	require.NoError(t, err)
	assert.Contains(t, list, "Quotes - 4")
}

func TestExport_UnknownFormat(t *testing.T) {
	f := newFixture(t, fixtureConfig{})

	_, err := f.run("export", "--format", "csv")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestImport_Errors(t *testing.T) {
	f := newFixture(t, fixtureConfig{})
	dir := t.TempDir()

	_, err := f.run("import", filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "missing.json")

	notArray := filepath.Join(dir, "object.json")
	require.NoError(t, os.WriteFile(notArray, []byte(`{"text":"x","category":"y"}`), 0o600))

	_, err = f.run("import", notArray)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSync(t *testing.T) {
	remote := newFakeRemote(t, http.StatusOK)
	f := newFixture(t, fixtureConfig{syncURL: remote.URL})

	out, err := f.run("sync")
	require.NoError(t, err)
	assert.Equal(t, "Quotes synced with server! 2 new quote(s) added.\n", out)
	assert.Equal(t, int32(1), remote.posts.Load(), "latest local quote is posted")

	out, err = f.run("list", "-c", "Server")
	require.NoError(t, err)
	assert.Contains(t, out, "Quotes in Server - 2")
	assert.Contains(t, out, "Remote wisdom.")

	out, err = f.run("sync")
	require.NoError(t, err)
	assert.Equal(t, "Quotes are up to date with the server.\n", out)
}

func TestSync_RemoteDown(t *testing.T) {
	remote := newFakeRemote(t, http.StatusBadGateway)
	f := newFixture(t, fixtureConfig{syncURL: remote.URL})

	out, err := f.run("sync")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(out, "Sync failed: "), out)

	list, err := f.run("list")
	require.NoError(t, err)
	assert.Contains(t, list, "Quotes - 3")
}

func TestSync_Disabled(t *testing.T) {
	f := newFixture(t, fixtureConfig{})

	_, err := f.run("sync")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestStatus(t *testing.T) {
	remote := newFakeRemote(t, http.StatusOK)
	f := newFixture(t, fixtureConfig{syncURL: remote.URL})

	out, err := f.run("status")
	require.NoError(t, err)

	assert.Contains(t, out, "Quotes")
	assert.Contains(t, out, "diskv (")
	assert.Contains(t, out, remote.URL+"/posts")
	assert.Contains(t, out, "Health healthy")
	assert.Contains(t, out, "storage-diskv")
	assert.Contains(t, out, "quote-remote")
}

func TestInvalidConfig(t *testing.T) {
	f := newFixture(t, fixtureConfig{})
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "test.yaml"), []byte("storage:\n  driver: floppy\n"), 0o600))

	_, err := f.run("list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
	assert.Contains(t, err.Error(), "storage.driver")
}

func TestResolveProfile(t *testing.T) {
	t.Setenv("APP_ENVIRONMENT", "qa")

	assert.Equal(t, "qa", (&options{}).resolveProfile())
	assert.Equal(t, "prod", (&options{profile: "prod"}).resolveProfile(), "flag wins over the environment")

	t.Setenv("APP_ENVIRONMENT", "")
	assert.Equal(t, DefaultProfile, (&options{}).resolveProfile())
}

func freePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	return port
}

func TestServe_RunsUntilCancelled(t *testing.T) {
	remote := newFakeRemote(t, http.StatusOK)
	port := freePort(t)
	f := newFixture(t, fixtureConfig{syncURL: remote.URL, port: port})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() {
		_, err := f.executeCommand(ctx, "serve")
		done <- err
	}()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)

	// The first sync cycle runs at startup and merges both remote quotes.
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/api/v1/quotes")
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		var page struct {
			Total int `json:"total"`
		}

		return json.NewDecoder(resp.Body).Decode(&page) == nil && page.Total == 5
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get(base + "/-/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not stop after cancellation")
	}
}
