package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkrag/chunk"
	"linkrag/fetch"
	"linkrag/ingest"
	"linkrag/model"
	"linkrag/search"
	"linkrag/store"
	"linkrag/types"
)

type stubFetcher struct {
	pages map[string]*fetch.Page
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (*fetch.Page, error) {
	page, ok := f.pages[url]
	if !ok {
		return nil, &types.FetchError{URL: url, Err: assert.AnError}
	}
	return page, nil
}

type testEnv struct {
	app     *fiber.App
	store   *store.MemoryStore
	fetcher *stubFetcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, types.Config{SearchLimit: 10, SearchThreshold: 0.7})
}

func newTestEnvWithConfig(t *testing.T, cfg types.Config) *testEnv {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	st := store.NewMemoryStore()
	embedder := model.NewHashEmbedder(64)
	fetcher := &stubFetcher{pages: map[string]*fetch.Page{}}
	pipeline := ingest.NewPipeline(st, fetcher, chunk.New(1000, 200), embedder, model.NewFrequencySummarizer(3))
	svc := ingest.NewService(pipeline, 1, 8)
	svc.Run(ctx)
	t.Cleanup(func() {
		svc.Stop(time.Second)
		cancel()
	})

	var (
		app           = fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
		linkHandler   = NewLinkHandler(st, svc)
		searchHandler = NewSearchHandler(search.NewEngine(st, embedder), cfg)
		check         = app.Group("/check")
		apiv1         = app.Group("/api/v1")
	)
	check.Get("/healthy", NewCheckHandler().HandleHealthy)
	apiv1.Post("/links", linkHandler.HandleSubmitLink)
	apiv1.Get("/links", linkHandler.HandleListLinks)
	apiv1.Get("/links/:id", linkHandler.HandleGetLink)
	apiv1.Delete("/links/:id", linkHandler.HandleDeleteLink)
	apiv1.Post("/search", searchHandler.HandleSearch)

	return &testEnv{app: app, store: st, fetcher: fetcher}
}

func (e *testEnv) do(t *testing.T, method, target, owner string, body any) *http.Response {
	t.Helper()
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if owner != "" {
		req.Header.Set("X-User-ID", owner)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// submit stores a page for the URL and posts it, then waits for the workers
// to finish ingestion.
func (e *testEnv) submit(t *testing.T, owner, url, title, text string) types.Link {
	t.Helper()
	e.fetcher.pages[url] = &fetch.Page{Text: text, Title: title}

	resp := e.do(t, http.MethodPost, "/api/v1/links", owner, types.SubmitLinkParams{URL: url, Title: title})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	link := decode[types.Link](t, resp)

	require.Eventually(t, func() bool {
		got, err := e.store.GetLink(context.Background(), link.ID)
		return err == nil && got.Status == types.StatusReady
	}, 5*time.Second, 10*time.Millisecond)
	return link
}

func TestHandleHealthy(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodGet, "/check/healthy", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "ok", body["result"])
}

func TestSubmitLinkInvalidJSON(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/links", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSubmitLinkValidation(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodPost, "/api/v1/links", "", types.SubmitLinkParams{URL: "not a url"})
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	body := decode[ValidationError](t, resp)
	assert.Contains(t, body.Errors, "URL")
}

func TestSubmitLinkLifecycle(t *testing.T) {
	e := newTestEnv(t)
	link := e.submit(t, "u1", "https://example.com/a", "Page A", "The quick brown fox jumps over the lazy dog.")

	assert.Equal(t, "u1", link.UserID)
	assert.Equal(t, types.StatusPending, link.Status)

	resp := e.do(t, http.MethodGet, "/api/v1/links/"+link.ID.String(), "u1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	got := decode[types.Link](t, resp)
	assert.Equal(t, link.ID, got.ID)
	assert.Equal(t, types.StatusReady, got.Status)
}

func TestSubmitLinkFetchFailure(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodPost, "/api/v1/links", "u1", types.SubmitLinkParams{URL: "https://unreachable.example.com/"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	link := decode[types.Link](t, resp)

	require.Eventually(t, func() bool {
		got, err := e.store.GetLink(context.Background(), link.ID)
		return err == nil && got.Status == types.StatusFailed
	}, 5*time.Second, 10*time.Millisecond)
}

func TestGetLinkInvalidID(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodGet, "/api/v1/links/not-a-uuid", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetLinkScopedToOwner(t *testing.T) {
	e := newTestEnv(t)
	link := e.submit(t, "u1", "https://example.com/a", "Page A", "Some content here.")

	resp := e.do(t, http.MethodGet, "/api/v1/links/"+link.ID.String(), "u2", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	// unscoped requests see everything
	resp = e.do(t, http.MethodGet, "/api/v1/links/"+link.ID.String(), "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestListLinks(t *testing.T) {
	e := newTestEnv(t)
	e.submit(t, "u1", "https://example.com/a", "Page A", "Content of the first page.")
	e.submit(t, "u2", "https://example.com/b", "Page B", "Content of the second page.")

	resp := e.do(t, http.MethodGet, "/api/v1/links", "u1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	links := decode[[]types.Link](t, resp)
	require.Len(t, links, 1)
	assert.Equal(t, "Page A", links[0].Title)

	resp = e.do(t, http.MethodGet, "/api/v1/links", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]types.Link](t, resp), 2)
}

func TestDeleteLink(t *testing.T) {
	e := newTestEnv(t)
	link := e.submit(t, "u1", "https://example.com/a", "Page A", "Content to be deleted soon.")

	resp := e.do(t, http.MethodDelete, "/api/v1/links/"+link.ID.String(), "u1", nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/v1/links/"+link.ID.String(), "u1", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	// idempotent
	resp = e.do(t, http.MethodDelete, "/api/v1/links/"+link.ID.String(), "u1", nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestDeleteLinkOtherOwner(t *testing.T) {
	e := newTestEnv(t)
	link := e.submit(t, "u1", "https://example.com/a", "Page A", "Content that must survive.")

	resp := e.do(t, http.MethodDelete, "/api/v1/links/"+link.ID.String(), "u2", nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	// still there for its owner
	resp = e.do(t, http.MethodGet, "/api/v1/links/"+link.ID.String(), "u1", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

type searchResponse struct {
	Query   string               `json:"query"`
	Count   int                  `json:"count"`
	Results []types.SearchResult `json:"results"`
}

func TestHandleSearch(t *testing.T) {
	e := newTestEnv(t)
	link := e.submit(t, "u1", "https://example.com/fox", "Fox Facts",
		"The quick brown fox jumps over the lazy dog.")

	threshold := 0.5
	resp := e.do(t, http.MethodPost, "/api/v1/search", "u1",
		types.SearchParams{Query: "fox jumping", Threshold: &threshold})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode[searchResponse](t, resp)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, link.ID, body.Results[0].LinkID)
}

func TestHandleSearchNoMatches(t *testing.T) {
	e := newTestEnv(t)
	e.submit(t, "u1", "https://example.com/fox", "Fox Facts",
		"The quick brown fox jumps over the lazy dog.")

	threshold := 0.9
	resp := e.do(t, http.MethodPost, "/api/v1/search", "u1",
		types.SearchParams{Query: "nonexistent unrelated topic xyz123", Threshold: &threshold})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode[searchResponse](t, resp)
	assert.Zero(t, body.Count)
	assert.NotNil(t, body.Results)
}

func TestSearchHandlerConfigDefaults(t *testing.T) {
	e := newTestEnvWithConfig(t, types.Config{})
	e.submit(t, "u1", "https://example.com/fox", "Fox Facts",
		"The quick brown fox jumps over the lazy dog.")

	// zero config falls back to the engine defaults; the 0.7 threshold
	// filters a weak match that an explicit 0.5 lets through
	resp := e.do(t, http.MethodPost, "/api/v1/search", "u1", types.SearchParams{Query: "fox jumping"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Zero(t, decode[searchResponse](t, resp).Count)

	threshold := 0.5
	resp = e.do(t, http.MethodPost, "/api/v1/search", "u1",
		types.SearchParams{Query: "fox jumping", Threshold: &threshold})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[searchResponse](t, resp).Count)
}

func TestHandleSearchValidation(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodPost, "/api/v1/search", "", types.SearchParams{})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/api/v1/search", "", types.SearchParams{Query: "   "})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
