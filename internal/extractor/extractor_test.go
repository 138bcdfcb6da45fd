package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher() *Fetcher {
	return NewFetcher(FetcherConfig{
		Timeout:           5 * time.Second,
		RequestsPerSecond: 1000, // no throttling in tests
		Retries:           2,
	}, slog.Default())
}

func TestFetchRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", body)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchAllJoinsResultsInInputOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("page:" + r.URL.Path))
	}))
	defer srv.Close()

	urls := []string{srv.URL + "/a", srv.URL + "/b", srv.URL + "/c"}
	pages := newTestFetcher().FetchAll(context.Background(), urls, 2)

	require.Len(t, pages, 3)
	for i, p := range pages {
		assert.Equal(t, urls[i], p.URL)
		require.NoError(t, p.Err)
	}
	assert.Equal(t, "page:/a", pages[0].Body)
	assert.Equal(t, "page:/c", pages[2].Body)
}

func TestFetchAllConcurrentRotatesUserAgents(t *testing.T) {
	var agents sync.Map
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents.Store(r.Header.Get("User-Agent"), struct{}{})
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	urls := make([]string, 16)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/page/%d", srv.URL, i)
	}

	pages := newTestFetcher().FetchAll(context.Background(), urls, 8)
	require.Len(t, pages, len(urls))
	for _, p := range pages {
		require.NoError(t, p.Err)
	}

	var distinct int
	agents.Range(func(any, any) bool {
		distinct++
		return true
	})
	assert.Equal(t, len(userAgents), distinct, "a batch larger than the pool uses every agent")
}

func TestExtractAllRecoversFailedSources(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(bulletinHTML))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	ex := New(newTestFetcher(), clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)), slog.Default())
	obs, reports := ex.ExtractAll(context.Background(), []string{good.URL, bad.URL}, 2)

	require.Len(t, reports, 2)
	assert.True(t, reports[0].OK)
	assert.Equal(t, reports[0].Records, len(obs))
	assert.False(t, reports[1].OK)
	assert.NotEmpty(t, reports[1].Error)

	require.NotEmpty(t, obs, "the good source still contributes")
	assert.Equal(t, "广州市", obs[0].City)
	assert.Equal(t, good.URL, obs[0].SourceURL)
	assert.Equal(t, 2023, obs[0].Year, "year parsed from bulletin text")
}

func TestExtractAllIrrelevantPageIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div class="content">` +
			`<p>本页介绍地区生产总值核算方法，内容长度足够通过正文抽取的最小阈值要求。</p>` +
			`<p>这里没有我们关心的统计主题，仅用于测试相关性过滤逻辑是否正确工作。</p>` +
			`</div></body></html>`))
	}))
	defer srv.Close()

	ex := New(newTestFetcher(), clockwork.NewFakeClock(), slog.Default())
	obs, reports := ex.ExtractAll(context.Background(), []string{srv.URL}, 1)

	assert.Empty(t, obs)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].OK)
	assert.Zero(t, reports[0].Records)
}
