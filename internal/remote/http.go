package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/roach88/fetchr/internal/canonical"
	"github.com/roach88/fetchr/internal/entity"
	"github.com/roach88/fetchr/internal/registry"
)

// maxErrorBody bounds how much of a failed response is kept on StatusError.
const maxErrorBody = 4 << 10

// HTTPSource fetches JSON over HTTP GET.
type HTTPSource struct {
	base    *url.URL
	client  *http.Client
	headers http.Header
	logger  *slog.Logger
}

var _ Source = (*HTTPSource)(nil)

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient sets the client. Default: http.DefaultClient.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		if c != nil {
			s.client = c
		}
	}
}

// WithHeader adds a request header sent on every fetch.
func WithHeader(key, value string) HTTPOption {
	return func(s *HTTPSource) {
		s.headers.Add(key, value)
	}
}

// WithHTTPLogger sets the logger. Default: slog.Default().
func WithHTTPLogger(l *slog.Logger) HTTPOption {
	return func(s *HTTPSource) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewHTTPSource creates a source resolving paths against baseURL.
func NewHTTPSource(baseURL string, opts ...HTTPOption) (*HTTPSource, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	s := &HTTPSource{
		base:    base,
		client:  http.DefaultClient,
		headers: http.Header{"Accept": []string{"application/json"}},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Fetch issues GET <base><expanded path>?<leftover params>.
func (s *HTTPSource) Fetch(ctx context.Context, req Request) (any, error) {
	target, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range s.headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	s.logger.Debug("remote fetch", "kind", req.Kind, "name", req.Name, "url", target)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, URL: target, Body: string(body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: read body: %w", target, err)
	}
	v, err := canonical.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("GET %s: decode body: %w", target, err)
	}
	return v, nil
}

func (s *HTTPSource) resolve(req Request) (string, error) {
	tmpl := req.URL
	if tmpl == "" {
		tmpl = "/" + registry.Underscorize(req.Name)
	}
	path, rest, err := Expand(tmpl, req.Params)
	if err != nil {
		return "", err
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	rawPath := strings.TrimSuffix(s.base.EscapedPath(), "/") + path
	unescaped, err := url.PathUnescape(rawPath)
	if err != nil {
		return "", fmt.Errorf("path %q: %w", rawPath, err)
	}
	u := *s.base
	u.Path = unescaped
	u.RawPath = rawPath

	query := u.Query()
	for k, v := range rest {
		str, err := paramString(v)
		if err != nil {
			return "", fmt.Errorf("query param %s: %w", k, err)
		}
		query.Set(k, str)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// Expand fills ":name" segments of tmpl from params. It returns the path
// and the params not consumed by the template.
func Expand(tmpl string, params entity.Attributes) (string, entity.Attributes, error) {
	rest := params.Clone()
	segments := strings.Split(tmpl, "/")
	for i, seg := range segments {
		if !strings.HasPrefix(seg, ":") || len(seg) == 1 {
			continue
		}
		name := seg[1:]
		v, ok := rest[name]
		if !ok {
			return "", nil, fmt.Errorf("url %s: missing param %q", tmpl, name)
		}
		str, err := paramString(v)
		if err != nil {
			return "", nil, fmt.Errorf("url %s: param %s: %w", tmpl, name, err)
		}
		segments[i] = url.PathEscape(str)
		delete(rest, name)
	}
	return strings.Join(segments, "/"), rest, nil
}

func paramString(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return canonical.MarshalString(v)
}
