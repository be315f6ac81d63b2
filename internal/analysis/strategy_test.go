package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/eoinhurrell/cfpaths/internal/index"
	"github.com/eoinhurrell/cfpaths/internal/rules"
	"github.com/eoinhurrell/cfpaths/internal/suggestion"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeRule struct {
	name     string
	priority int
	apply    func(ctx context.Context, path string) (*suggestion.Suggestion, error)

	mu    sync.Mutex
	calls []string
}

func (f *fakeRule) Name() string  { return f.name }
func (f *fakeRule) Priority() int { return f.priority }

func (f *fakeRule) Apply(ctx context.Context, path string) (*suggestion.Suggestion, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()
	if f.apply == nil {
		return nil, nil
	}
	return f.apply(ctx, path)
}

func (f *fakeRule) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func resolveWith(build func(path string) suggestion.Suggestion, paths ...string) func(context.Context, string) (*suggestion.Suggestion, error) {
	match := make(map[string]bool)
	for _, p := range paths {
		match[p] = true
	}
	return func(_ context.Context, path string) (*suggestion.Suggestion, error) {
		if !match[path] {
			return nil, nil
		}
		s := build(path)
		return &s, nil
	}
}

func publishFor(paths ...string) func(context.Context, string) (*suggestion.Suggestion, error) {
	return resolveWith(func(p string) suggestion.Suggestion { return suggestion.Publish(p, "") }, paths...)
}

func localeFor(paths ...string) func(context.Context, string) (*suggestion.Suggestion, error) {
	return resolveWith(func(p string) suggestion.Suggestion { return suggestion.Locale(p, p+"-en", "") }, paths...)
}

func failing(err error) func(context.Context, string) (*suggestion.Suggestion, error) {
	return func(context.Context, string) (*suggestion.Suggestion, error) { return nil, err }
}

func newObservedContext() (*RunContext, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &RunContext{RunID: "test-run", Logger: zap.New(core)}, logs
}

func records(suggestions []suggestion.Suggestion) []suggestion.Record {
	out := make([]suggestion.Record, len(suggestions))
	for i, s := range suggestions {
		out[i] = s.Record()
	}
	return out
}

func TestAnalyze_Scenario(t *testing.T) {
	publish := &fakeRule{name: "publish", priority: 1, apply: publishFor("/content/dam/test/broken1.jpg")}
	locale := &fakeRule{name: "locale", priority: 2, apply: localeFor("/content/dam/test/broken2")}
	similar := &fakeRule{name: "similar", priority: 3}

	rc, _ := newObservedContext()
	strategy := NewStrategy(rc, nil, index.New(), WithRules(similar, locale, publish))

	result := strategy.Analyze(context.Background(), []string{
		"/content/dam/test/broken1.jpg",
		"/content/dam/test/broken2.cfm.json",
	})

	require.Len(t, result, 2)
	assert.Equal(t, suggestion.TypePublish, result[0].Type())
	assert.Equal(t, "/content/dam/test/broken1.jpg", result[0].RequestedPath())
	assert.Equal(t, suggestion.TypeLocale, result[1].Type())
	assert.Equal(t, "/content/dam/test/broken2", result[1].RequestedPath())
	assert.Equal(t, 0, similar.callCount())
}

func TestAnalyze_EmptyInput(t *testing.T) {
	rule := &fakeRule{name: "publish", priority: 1}
	status := &countingSource{}
	strategy := NewStrategy(nil, nil, index.New(), WithRules(rule), WithStatusSource(status))

	result := strategy.Analyze(context.Background(), []string{})

	assert.NotNil(t, result)
	assert.Empty(t, result)
	assert.Equal(t, 0, rule.callCount())
	assert.Equal(t, 0, status.calls)
}

func TestAnalyze_FirstMatchWins(t *testing.T) {
	p1 := &fakeRule{name: "publish", priority: 1, apply: publishFor("/content/dam/a.jpg")}
	p2 := &fakeRule{name: "locale", priority: 2, apply: localeFor("/content/dam/a.jpg")}
	p3 := &fakeRule{name: "similar", priority: 3, apply: localeFor("/content/dam/a.jpg")}

	strategy := NewStrategy(nil, nil, index.New(), WithRules(p3, p2, p1))
	result := strategy.Analyze(context.Background(), []string{"/content/dam/a.jpg"})

	require.Len(t, result, 1)
	assert.Equal(t, suggestion.TypePublish, result[0].Type())
	assert.Equal(t, 1, p1.callCount())
	assert.Equal(t, 0, p2.callCount())
	assert.Equal(t, 0, p3.callCount())
}

func TestAnalyze_FallbackToNotFound(t *testing.T) {
	tests := []struct {
		name  string
		apply func(context.Context, string) (*suggestion.Suggestion, error)
	}{
		{"all rules decline", nil},
		{"all rules fail", failing(errors.New("boom"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := []rules.Rule{
				&fakeRule{name: "one", priority: 1, apply: tt.apply},
				&fakeRule{name: "two", priority: 2, apply: tt.apply},
				&fakeRule{name: "three", priority: 3, apply: tt.apply},
			}
			rc, logs := newObservedContext()
			strategy := NewStrategy(rc, nil, index.New(), WithRules(chain...))

			result := strategy.Analyze(context.Background(), []string{"/content/dam/a.jpg"})

			require.Len(t, result, 1)
			assert.Equal(t, suggestion.TypeNotFound, result[0].Type())
			assert.Empty(t, result[0].SuggestedPath())
			assert.Equal(t, 1, logs.FilterMessage("No rule resolved broken path").Len())
			for _, rule := range chain {
				assert.Equal(t, 1, rule.(*fakeRule).callCount())
			}
		})
	}
}

func TestAnalyze_ErrorIsolation(t *testing.T) {
	first := &fakeRule{name: "first", priority: 1, apply: func(ctx context.Context, path string) (*suggestion.Suggestion, error) {
		if path == "/content/dam/a.jpg" {
			return nil, errors.New("author timeout")
		}
		s := suggestion.Publish(path, "")
		return &s, nil
	}}
	second := &fakeRule{name: "second", priority: 2, apply: localeFor("/content/dam/a.jpg", "/content/dam/b.jpg")}

	rc, logs := newObservedContext()
	strategy := NewStrategy(rc, nil, index.New(), WithRules(first, second))
	result := strategy.Analyze(context.Background(), []string{"/content/dam/a.jpg", "/content/dam/b.jpg"})

	require.Len(t, result, 2)
	assert.Equal(t, suggestion.TypeLocale, result[0].Type())
	assert.Equal(t, suggestion.TypePublish, result[1].Type())
	assert.Equal(t, []string{"/content/dam/a.jpg"}, second.calls)

	failures := logs.FilterMessage("Rule failed, trying next rule").All()
	require.Len(t, failures, 1)
	assert.Equal(t, "first", failures[0].ContextMap()["rule"])
}

func TestAnalyze_RuleTimeoutIsSwallowed(t *testing.T) {
	slow := &fakeRule{name: "slow", priority: 1, apply: func(ctx context.Context, path string) (*suggestion.Suggestion, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	fast := &fakeRule{name: "fast", priority: 2, apply: localeFor("/content/dam/a.jpg")}

	strategy := NewStrategy(nil, nil, index.New(), WithRules(slow, fast), WithRuleTimeout(20*time.Millisecond))
	result := strategy.Analyze(context.Background(), []string{"/content/dam/a.jpg"})

	require.Len(t, result, 1)
	assert.Equal(t, suggestion.TypeLocale, result[0].Type())
}

func TestAnalyze_PanickingRuleIsSwallowed(t *testing.T) {
	broken := &fakeRule{name: "broken", priority: 1, apply: func(context.Context, string) (*suggestion.Suggestion, error) {
		panic("nil map")
	}}
	next := &fakeRule{name: "next", priority: 2, apply: publishFor("/content/dam/a.jpg")}

	strategy := NewStrategy(nil, nil, index.New(), WithRules(broken, next))
	result := strategy.Analyze(context.Background(), []string{"/content/dam/a.jpg"})

	require.Len(t, result, 1)
	assert.Equal(t, suggestion.TypePublish, result[0].Type())
}

func TestAnalyze_ConcurrentMatchesSequential(t *testing.T) {
	var paths, even []string
	for i := 0; i < 40; i++ {
		p := fmt.Sprintf("/content/dam/site/asset-%02d.jpg", i)
		paths = append(paths, p)
		if i%2 == 0 {
			even = append(even, p)
		}
	}

	build := func(concurrency int) ([]suggestion.Suggestion, *observer.ObservedLogs) {
		rc, logs := newObservedContext()
		strategy := NewStrategy(rc, nil, index.New(),
			WithRules(
				&fakeRule{name: "publish", priority: 1, apply: publishFor(even...)},
				&fakeRule{name: "never", priority: 2},
			),
			WithConcurrency(concurrency))
		return strategy.Analyze(context.Background(), paths), logs
	}

	sequential, seqLogs := build(1)
	parallel, parLogs := build(8)

	if diff := cmp.Diff(records(sequential), records(parallel)); diff != "" {
		t.Errorf("parallel analysis differs from sequential (-seq +par):\n%s", diff)
	}

	loggedPaths := func(logs *observer.ObservedLogs) []string {
		var out []string
		for _, entry := range logs.All() {
			out = append(out, entry.ContextMap()["path"].(string))
		}
		return out
	}
	assert.Equal(t, loggedPaths(seqLogs), loggedPaths(parLogs))
	assert.Equal(t, paths, loggedPaths(parLogs))
}

type countingSource struct {
	calls   int
	content map[string]index.Status
	err     error
}

func (c *countingSource) Lookup(ctx context.Context, path string) (*index.ContentPath, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	status, ok := c.content[path]
	if !ok {
		return nil, nil
	}
	return &index.ContentPath{Path: path, Status: status}, nil
}

func TestProcessSuggestions(t *testing.T) {
	idx := index.New()
	idx.InsertContentPath("/content/dam/draft.jpg", index.Metadata{"status": "DRAFT"})
	idx.InsertContentPath("/content/dam/live.jpg", index.Metadata{"status": "PUBLISHED"})
	idx.InsertContentPath("/content/dam/odd.jpg", index.Metadata{"status": "???"})

	strategy := NewStrategy(nil, nil, idx, WithRules())

	input := []suggestion.Suggestion{
		suggestion.Locale("/content/dam/fr/draft.jpg", "/content/dam/draft.jpg", "locale"),
		suggestion.Similar("/content/dam/drafts.jpg", "/content/dam/draft.jpg", "similar"),
		suggestion.Similar("/content/dam/lives.jpg", "/content/dam/live.jpg", "similar"),
		suggestion.Locale("/content/dam/fr/gone.jpg", "/content/dam/gone.jpg", "locale"),
		suggestion.Similar("/content/dam/odds.jpg", "/content/dam/odd.jpg", ""),
		suggestion.Publish("/content/dam/draft.jpg", "publish"),
		suggestion.NotFound("/content/dam/missing.jpg"),
	}

	want := []suggestion.Suggestion{
		suggestion.Locale("/content/dam/fr/draft.jpg", "/content/dam/draft.jpg", "Content is in DRAFT state. Suggest publishing."),
		suggestion.Similar("/content/dam/drafts.jpg", "/content/dam/draft.jpg", "Content is in DRAFT state. Suggest publishing."),
		suggestion.Similar("/content/dam/lives.jpg", "/content/dam/live.jpg", "similar"),
		suggestion.Locale("/content/dam/fr/gone.jpg", "/content/dam/gone.jpg", "locale"),
		suggestion.Similar("/content/dam/odds.jpg", "/content/dam/odd.jpg", "Content is in UNKNOWN state. Suggest publishing."),
		suggestion.Publish("/content/dam/draft.jpg", "publish"),
		suggestion.NotFound("/content/dam/missing.jpg"),
	}

	got := strategy.ProcessSuggestions(context.Background(), input)
	if diff := cmp.Diff(records(want), records(got)); diff != "" {
		t.Errorf("ProcessSuggestions mismatch (-want +got):\n%s", diff)
	}
}

type fakeClient map[string]index.Status

func (f fakeClient) Lookup(_ context.Context, path string) (*index.ContentPath, error) {
	status, ok := f[path]
	if !ok {
		return nil, nil
	}
	return &index.ContentPath{Path: path, Status: status}, nil
}

func (f fakeClient) ListChildren(context.Context, string) ([]index.ContentPath, error) {
	return nil, nil
}

func TestAnalyze_VerifiesAgainstClient(t *testing.T) {
	client := fakeClient{
		"/content/dam/site/en-US/a.jpg": index.StatusDraft,
		"/content/dam/site/en-US/b.jpg": index.StatusPublished,
	}
	strategy := NewStrategy(nil, client, index.New())

	got := strategy.Analyze(context.Background(), []string{
		"/content/dam/site/fr/a.jpg",
		"/content/dam/site/fr/b.jpg",
	})

	want := []suggestion.Suggestion{
		suggestion.Locale("/content/dam/site/fr/a.jpg", "/content/dam/site/en-US/a.jpg", "Content is in DRAFT state. Suggest publishing."),
		suggestion.Locale("/content/dam/site/fr/b.jpg", "/content/dam/site/en-US/b.jpg", "Content is available in fallback locale en-US."),
	}
	if diff := cmp.Diff(records(want), records(got)); diff != "" {
		t.Errorf("Analyze mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessSuggestions_SkipsLookupForPublishAndNotFound(t *testing.T) {
	status := &countingSource{}
	strategy := NewStrategy(nil, nil, index.New(), WithRules(), WithStatusSource(status))

	strategy.ProcessSuggestions(context.Background(), []suggestion.Suggestion{
		suggestion.Publish("/content/dam/a.jpg", ""),
		suggestion.NotFound("/content/dam/b.jpg"),
	})
	assert.Equal(t, 0, status.calls)
}

func TestProcessSuggestions_LookupFailureLeavesSuggestion(t *testing.T) {
	status := &countingSource{err: errors.New("connection reset")}
	rc, logs := newObservedContext()
	strategy := NewStrategy(rc, nil, index.New(), WithRules(), WithStatusSource(status))

	input := []suggestion.Suggestion{
		suggestion.Locale("/content/dam/fr/a.jpg", "/content/dam/a.jpg", "locale"),
		suggestion.Similar("/content/dam/b.jpg", "/content/dam/c.jpg", "similar"),
	}
	got := strategy.ProcessSuggestions(context.Background(), input)

	assert.Equal(t, input, got)
	assert.Equal(t, 2, status.calls)
	assert.Equal(t, 2, logs.FilterMessage("Could not verify suggested path").Len())
}

func TestAnalyze_DefaultRules(t *testing.T) {
	idx := index.New()
	idx.InsertContentPath("/content/dam/site/unpublished.jpg", index.Metadata{"status": "DRAFT"})
	idx.InsertContentPath("/content/dam/site/en/hero.jpg", index.Metadata{"status": "MODIFIED"})
	idx.InsertContentPath("/content/dam/site/product-shot.jpg", index.Metadata{"status": "PUBLISHED"})

	strategy := NewStrategy(NewRunContext(zap.NewNop()), nil, idx)
	result := strategy.Analyze(context.Background(), []string{
		"/content/dam/site/unpublished.jpg",
		"/content/dam/site/fr/hero.jpg",
		"/content/dam/site/product-shoot.jpg.cfm.json",
		"/content/dam/site/nothing-like-it.jpg",
	})

	require.Len(t, result, 4)
	assert.Equal(t, suggestion.TypePublish, result[0].Type())

	assert.Equal(t, suggestion.TypeLocale, result[1].Type())
	assert.Equal(t, "/content/dam/site/en/hero.jpg", result[1].SuggestedPath())
	assert.Equal(t, "Content is in MODIFIED state. Suggest publishing.", result[1].Reason())

	assert.Equal(t, suggestion.TypeSimilar, result[2].Type())
	assert.Equal(t, "/content/dam/site/product-shoot.jpg", result[2].RequestedPath())
	assert.Equal(t, "/content/dam/site/product-shot.jpg", result[2].SuggestedPath())

	assert.Equal(t, suggestion.TypeNotFound, result[3].Type())
}

func TestNewRunContext(t *testing.T) {
	rc := NewRunContext(nil)
	assert.NotEmpty(t, rc.RunID)
	assert.NotNil(t, rc.Logger)
	assert.NotEqual(t, rc.RunID, NewRunContext(nil).RunID)
}
