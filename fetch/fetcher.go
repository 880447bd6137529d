package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"linkrag/types"
)

const userAgent = "Mozilla/5.0 (compatible; linkrag/1.0)"

// Page is the fetch result: plain text plus best-effort metadata extracted
// from the document.
type Page struct {
	Text        string
	Title       string
	Description string
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

type contentKind int

const (
	kindUnsupported contentKind = iota
	kindHTML
	kindText
)

// HTTPFetcher retrieves pages over HTTP. Only textual content types are
// accepted; everything else is a FetchError, as are network failures and
// non-2xx responses.
type HTTPFetcher struct {
	client  *http.Client
	maxBody int64
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		client:  &http.Client{Timeout: timeout},
		maxBody: 4 << 20,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &types.FetchError{URL: rawURL, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	contentType := resp.Header.Get("Content-Type")
	kind := detectKind(contentType)
	if kind == kindUnsupported {
		return nil, &types.FetchError{URL: rawURL, Err: fmt.Errorf("unsupported content type %q", contentType)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}

	if kind == kindHTML {
		return parseHTML(string(body), rawURL), nil
	}
	return &Page{
		Text:  collapseWhitespace(string(body)),
		Title: titleFromURL(rawURL),
	}, nil
}

func detectKind(contentType string) contentKind {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "text/html"), strings.Contains(ct, "application/xhtml+xml"):
		return kindHTML
	case strings.HasPrefix(ct, "text/"),
		strings.Contains(ct, "application/json"),
		strings.Contains(ct, "application/xml"):
		return kindText
	default:
		return kindUnsupported
	}
}
