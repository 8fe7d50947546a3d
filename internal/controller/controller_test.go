package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkingovr/companybook/api"
	"github.com/tkingovr/companybook/internal/company"
	"github.com/tkingovr/companybook/internal/filter"
	"github.com/tkingovr/companybook/internal/metrics"
	"github.com/tkingovr/companybook/internal/policy"
	"github.com/tkingovr/companybook/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeNotifier records notifications and optionally fails or panics.
type fakeNotifier struct {
	mu       sync.Mutex
	got      []*api.Notification
	err      error
	panicMsg string
	canPanic string
	disabled bool
	block    chan struct{}
}

func (f *fakeNotifier) Notify(ctx context.Context, n *api.Notification) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	f.got = append(f.got, n)
	f.mu.Unlock()
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.err
}

func (f *fakeNotifier) CanNotify() bool {
	if f.canPanic != "" {
		panic(f.canPanic)
	}
	return !f.disabled
}

func (f *fakeNotifier) notifications() []*api.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*api.Notification, len(f.got))
	copy(out, f.got)
	return out
}

// failingStore fails every insert after delegating reads to Memory.
type failingStore struct {
	*store.Memory
}

func (f failingStore) Insert(_ context.Context, _ string) (api.Company, error) {
	return api.Company{}, company.Persistence("insert company", errors.New("disk full"))
}

func newController(t *testing.T, n *fakeNotifier, opts ...Option) (*Controller, *store.Memory) {
	t.Helper()
	s := store.NewMemory()
	opts = append([]Option{WithLogger(testLogger())}, opts...)
	c := New(s, nil, n, opts...)
	t.Cleanup(func() {
		c.Close()
		s.Close()
	})
	return c, s
}

func recv(t *testing.T, ch <-chan api.Snapshot) api.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "subscription closed unexpectedly")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return api.Snapshot{}
}

func TestController_EndToEnd(t *testing.T) {
	n := &fakeNotifier{}
	c, _ := newController(t, n)
	ctx := context.Background()

	updates, cancel := c.ObserveAll(ctx)
	defer cancel()
	assert.Empty(t, recv(t, updates).Companies)

	_, err := c.Insert(ctx, "Acme Corp")
	require.NoError(t, err)
	assert.Equal(t, []api.Company{{ID: 1, Name: "Acme Corp"}}, recv(t, updates).Companies)

	_, err = c.Insert(ctx, "Bolt LLC")
	require.NoError(t, err)
	assert.Equal(t, []api.Company{{ID: 1, Name: "Acme Corp"}, {ID: 2, Name: "Bolt LLC"}}, recv(t, updates).Companies)
}

func TestController_InsertTrimsAndNotifiesOnce(t *testing.T) {
	n := &fakeNotifier{}
	c, _ := newController(t, n)

	rec, err := c.Insert(context.Background(), "  Acme  ")
	require.NoError(t, err)
	assert.Equal(t, "Acme", rec.Name)
	assert.NotZero(t, rec.ID)

	c.Close()
	got := n.notifications()
	require.Len(t, got, 1)
	assert.Equal(t, "New Company Added", got[0].Title)
	assert.Equal(t, "Company added: Acme", got[0].Body)
	require.NotNil(t, got[0].Company)
	assert.Equal(t, rec, *got[0].Company)
	assert.NotEmpty(t, got[0].ID)
}

func TestController_BlankNameRejected(t *testing.T) {
	n := &fakeNotifier{}
	c, _ := newController(t, n)
	ctx := context.Background()

	for _, input := range []string{"", "   ", "\t\n"} {
		_, err := c.Insert(ctx, input)
		require.Error(t, err)
		assert.True(t, errors.Is(err, company.ErrValidation), "input %q: %v", input, err)
		var verr *company.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, input, verr.Input)
	}

	snap, err := c.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Companies)

	c.Close()
	assert.Empty(t, n.notifications())
}

func TestController_AllIsRepeatable(t *testing.T) {
	c, _ := newController(t, &fakeNotifier{})
	ctx := context.Background()

	_, err := c.Insert(ctx, "Acme")
	require.NoError(t, err)

	first, err := c.All(ctx)
	require.NoError(t, err)
	second, err := c.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestController_InsertionOrder(t *testing.T) {
	c, _ := newController(t, &fakeNotifier{})
	ctx := context.Background()

	_, err := c.Insert(ctx, "Acme")
	require.NoError(t, err)
	_, err = c.Insert(ctx, "Bolt")
	require.NoError(t, err)

	snap, err := c.All(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Companies, 2)
	assert.Equal(t, "Acme", snap.Companies[0].Name)
	assert.Equal(t, "Bolt", snap.Companies[1].Name)
}

func TestController_ConcurrentInserts(t *testing.T) {
	n := &fakeNotifier{}
	c, _ := newController(t, n)
	ctx := context.Background()

	const count = 50
	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Insert(ctx, fmt.Sprintf("Company %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	snap, err := c.All(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Companies, count)

	ids := make(map[int64]bool)
	for _, co := range snap.Companies {
		ids[co.ID] = true
	}
	assert.Len(t, ids, count)

	c.Close()
	assert.Len(t, n.notifications(), count)
}

func TestController_FailingNotifier(t *testing.T) {
	n := &fakeNotifier{err: errors.New("notification service down")}
	c, _ := newController(t, n)
	ctx := context.Background()

	rec, err := c.Insert(ctx, "Acme")
	require.NoError(t, err)

	snap, err := c.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []api.Company{rec}, snap.Companies)
}

func TestController_PanickingNotifier(t *testing.T) {
	n := &fakeNotifier{panicMsg: "boom"}
	c, _ := newController(t, n)
	ctx := context.Background()

	_, err := c.Insert(ctx, "Acme")
	require.NoError(t, err)
	c.Close()

	snap, err := c.All(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Companies, 1)
}

func TestController_PanickingCapabilityCheck(t *testing.T) {
	m := metrics.New()
	n := &fakeNotifier{canPanic: "platform check failed"}
	c, _ := newController(t, n, WithMetrics(m))
	ctx := context.Background()

	var rec api.Company
	require.NotPanics(t, func() {
		var err error
		rec, err = c.Insert(ctx, "Globex")
		require.NoError(t, err)
	})
	assert.Equal(t, api.Company{ID: 1, Name: "Globex"}, rec)
	c.Close()

	snap, err := c.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []api.Company{{ID: 1, Name: "Globex"}}, snap.Companies)
	assert.Empty(t, n.notifications())
	assert.Contains(t, scrape(t, m), `companybook_notifications_total{outcome="error"} 1`)
}

func TestController_NotifierCannotNotify(t *testing.T) {
	n := &fakeNotifier{disabled: true}
	c, _ := newController(t, n)

	_, err := c.Insert(context.Background(), "Acme")
	require.NoError(t, err)
	c.Close()
	assert.Empty(t, n.notifications())
}

func TestController_NilNotifier(t *testing.T) {
	s := store.NewMemory()
	defer s.Close()
	c := New(s, nil, nil)
	defer c.Close()

	_, err := c.Insert(context.Background(), "Acme")
	require.NoError(t, err)
}

func TestController_InsertDoesNotWaitForNotifier(t *testing.T) {
	n := &fakeNotifier{block: make(chan struct{})}
	c, _ := newController(t, n)

	done := make(chan error, 1)
	go func() {
		_, err := c.Insert(context.Background(), "Acme")
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("insert blocked on notifier")
	}
	close(n.block)
}

func TestController_NotifyTimeout(t *testing.T) {
	n := &fakeNotifier{block: make(chan struct{})}
	c, _ := newController(t, n, WithNotifyTimeout(20*time.Millisecond))

	_, err := c.Insert(context.Background(), "Acme")
	require.NoError(t, err)

	closed := make(chan struct{})
	go func() {
		c.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not bounded by its timeout")
	}
	assert.Empty(t, n.notifications())
}

func TestController_StoreFailure(t *testing.T) {
	mem := store.NewMemory()
	defer mem.Close()
	n := &fakeNotifier{}
	c := New(failingStore{mem}, nil, n, WithLogger(testLogger()))

	_, err := c.Insert(context.Background(), "Acme")
	require.Error(t, err)
	assert.True(t, errors.Is(err, company.ErrPersistence))

	c.Close()
	assert.Empty(t, n.notifications())

	snap, err := c.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Companies)
}

func TestController_PolicyRejects(t *testing.T) {
	engine, err := policy.NewYAMLEngineFromPolicy(&policy.PolicyFile{
		Version:  1,
		Settings: policy.Settings{DefaultAction: api.VerdictAllow},
		Rules: []policy.Rule{{
			Name:    "block-placeholder",
			Match:   policy.RuleMatch{Exact: "test"},
			Action:  "deny",
			Message: "placeholder names are not allowed",
		}},
	})
	require.NoError(t, err)

	s := store.NewMemory()
	defer s.Close()
	n := &fakeNotifier{}
	chain := filter.BuildAdmissionChain(filter.ChainConfig{Engine: engine, Logger: testLogger()})
	c := New(s, chain, n, WithLogger(testLogger()))

	_, err = c.Insert(context.Background(), " Test ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, company.ErrRejected))
	var rej *company.RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "block-placeholder", rej.Rule)

	c.Close()
	assert.Empty(t, n.notifications())
	snap, _ := s.All(context.Background())
	assert.Empty(t, snap.Companies)
}

func TestController_RateLimited(t *testing.T) {
	s := store.NewMemory()
	defer s.Close()
	chain := filter.BuildAdmissionChain(filter.ChainConfig{
		Logger:    testLogger(),
		RateLimit: &filter.RateLimit{Max: 1, Window: time.Hour},
	})
	c := New(s, chain, nil)
	defer c.Close()

	_, err := c.Insert(context.Background(), "Acme")
	require.NoError(t, err)
	_, err = c.Insert(context.Background(), "Bolt")
	assert.True(t, errors.Is(err, company.ErrRejected))
}

func TestController_Metrics(t *testing.T) {
	m := metrics.New()
	c, _ := newController(t, &fakeNotifier{}, WithMetrics(m))
	ctx := context.Background()

	_, err := c.Insert(ctx, "Acme")
	require.NoError(t, err)
	_, err = c.Insert(ctx, " ")
	require.Error(t, err)
	c.Close()

	body := scrape(t, m)
	assert.Contains(t, body, `companybook_inserts_total{outcome="ok"} 1`)
	assert.Contains(t, body, `companybook_inserts_total{outcome="invalid"} 1`)
	assert.Contains(t, body, `companybook_notifications_total{outcome="ok"} 1`)
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
