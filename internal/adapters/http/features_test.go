package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/quotebook/internal/adapters/clients"
	"github.com/jsamuelsen/quotebook/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotebook/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotebook/internal/adapters/storage"
	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// featureContext holds state shared across step definitions within a scenario.
type featureContext struct {
	remote *httptest.Server
	posts  []map[string]any
	down   bool

	store  *app.QuoteStore
	engine *gin.Engine

	status int
	body   []byte
}

// reset tears down the previous scenario's quotebook.
func (fc *featureContext) reset() {
	if fc.remote != nil {
		fc.remote.Close()
	}

	*fc = featureContext{}
}

func (fc *featureContext) aFreshQuotebook(ctx context.Context) error {
	fc.remote = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fc.down {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(fc.posts)
	}))
	fc.posts = []map[string]any{}

	client, err := clients.New(&clients.Config{
		BaseURL:     fc.remote.URL,
		ServiceName: "quote-remote",
		Timeout:     2 * time.Second,
		Retry:       config.RetryConfig{MaxAttempts: 1},
		Circuit:     config.CircuitBreakerConfig{MaxFailures: 5, Timeout: time.Second, HalfOpenLimit: 1},
		Logger:      discardLogger(),
	})
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	remote := acl.NewRemoteQuotes(acl.RemoteQuotesConfig{Client: client, Logger: discardLogger()})

	fc.store = app.NewQuoteStore(app.QuoteStoreConfig{
		Durable: storage.NewMemory(),
		Session: storage.NewMemory(),
		Rand:    rand.New(rand.NewPCG(7, 7)),
		Logger:  discardLogger(),
	})
	if err := fc.store.Load(ctx); err != nil {
		return fmt.Errorf("loading store: %w", err)
	}

	registry := ports.NewHealthRegistry()
	if err := registry.Register(remote); err != nil {
		return err
	}

	fc.engine = gin.New()
	SetupRouter(fc.engine, RouterConfig{
		ServiceName: "quotebook-features",
		Health:      handlers.NewHealthHandler(registry, handlers.BuildInfo{}, prometheus.NewRegistry()),
		Quotes:      handlers.NewQuoteHandler(fc.store),
		Transfer:    handlers.NewTransferHandler(app.NewTransfer(fc.store)),
		Sync: handlers.NewSyncHandler(app.NewSyncer(app.SyncerConfig{
			Store:  fc.store,
			Remote: remote,
			Logger: discardLogger(),
		})),
		Timeout: DefaultRequestTimeout,
	})

	return nil
}

func (fc *featureContext) theRemoteOffersQuotes(table *godog.Table) error {
	for i, row := range table.Rows[1:] {
		fc.posts = append(fc.posts, map[string]any{
			"userId": 1,
			"id":     i + 1,
			"title":  row.Cells[0].Value,
			"body":   "",
		})
	}

	return nil
}

func (fc *featureContext) theRemoteIsUnreachable() error {
	fc.down = true
	return nil
}

func (fc *featureContext) request(method, path string, body io.Reader) error {
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	fc.engine.ServeHTTP(w, req)

	fc.status = w.Code
	fc.body = w.Body.Bytes()

	return nil
}

func (fc *featureContext) iRequest(method, path string) error {
	return fc.request(method, path, nil)
}

func (fc *featureContext) iRequestWithBody(method, path string, doc *godog.DocString) error {
	return fc.request(method, path, strings.NewReader(doc.Content))
}

func (fc *featureContext) theResponseStatusShouldBe(code int) error {
	if fc.status != code {
		return fmt.Errorf("expected status %d, got %d. Body: %s", code, fc.status, fc.body)
	}

	return nil
}

func (fc *featureContext) theResponseShouldContain(text string) error {
	if !strings.Contains(string(fc.body), text) {
		return fmt.Errorf("response body does not contain %q.\nBody: %s", text, fc.body)
	}

	return nil
}

func (fc *featureContext) theResponseFieldShouldBe(field string, want int) error {
	var doc map[string]any
	if err := json.Unmarshal(fc.body, &doc); err != nil {
		return fmt.Errorf("response is not a JSON object: %w", err)
	}

	got, ok := doc[field].(float64)
	if !ok {
		return fmt.Errorf("field %q missing or not a number in %s", field, fc.body)
	}

	if int(got) != want {
		return fmt.Errorf("field %q: expected %d, got %v", field, want, got)
	}

	return nil
}

func (fc *featureContext) theStoreShouldHold(n int) error {
	if got := fc.store.Len(); got != n {
		return fmt.Errorf("expected %d quotes, store holds %d", n, got)
	}

	return nil
}

func initializeScenario(sc *godog.ScenarioContext) {
	fc := &featureContext{}

	sc.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		fc.reset()
		return ctx, nil
	})

	sc.Step(`^a fresh quotebook$`, fc.aFreshQuotebook)
	sc.Step(`^the remote offers quotes:$`, fc.theRemoteOffersQuotes)
	sc.Step(`^the remote is unreachable$`, fc.theRemoteIsUnreachable)
	sc.Step(`^I (GET|POST|PUT) "([^"]*)"$`, fc.iRequest)
	sc.Step(`^I (POST|PUT) "([^"]*)" with body:$`, fc.iRequestWithBody)
	sc.Step(`^the response status should be (\d+)$`, fc.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, fc.theResponseShouldContain)
	sc.Step(`^the response field "([^"]*)" should be (\d+)$`, fc.theResponseFieldShouldBe)
	sc.Step(`^the store should hold (\d+) quotes$`, fc.theStoreShouldHold)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"testdata/features"},
			TestingT: t,
			Tags:     os.Getenv("GODOG_TAGS"),
			Strict:   true,
		},
	}

	if status := suite.Run(); status != 0 {
		t.Fatal(errors.New("non-zero status returned, failed to run feature tests"))
	}
}
