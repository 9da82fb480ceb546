package packagemanager

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bero-pm/bero-pm/internal/runtime/netstack"
)

// HTTPRegistry is a Registry client that talks to a remote HTTP server
// speaking the GET {base}/{name} -> Manifest wire shape.
type HTTPRegistry struct {
	base   string
	client *http.Client
	token  string

	mu          sync.RWMutex
	manifestTTL time.Duration
	cache       map[string]manifestCacheEntry
	sf          singleflight.Group
}

type manifestCacheEntry struct {
	at   time.Time
	man  Manifest
	etag string
}

// NewHTTPRegistry creates a client. It uses BERO_REGISTRY_TOKEN env as a
// Bearer token if present, falling back to .bero/credentials.json.
func NewHTTPRegistry(baseURL string) *HTTPRegistry {
	tok := strings.TrimSpace(os.Getenv("BERO_REGISTRY_TOKEN"))
	if tok == "" {
		tok = loadTokenFor(baseURL)
	}

	return NewHTTPRegistryWithAuth(baseURL, tok)
}

// NewHTTPRegistryWithAuth allows specifying a Bearer token explicitly.
func NewHTTPRegistryWithAuth(baseURL, token string) *HTTPRegistry {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          512,
		MaxIdleConnsPerHost:   256,
		IdleConnTimeout:       120 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &HTTPRegistry{
		base:        strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Transport: tr, Timeout: 30 * time.Second},
		token:       strings.TrimSpace(token),
		manifestTTL: 30 * time.Second,
		cache:       make(map[string]manifestCacheEntry),
	}
}

// NewHTTPRegistryHTTP3 is like NewHTTPRegistryWithAuth but dials the
// registry over HTTP/3 (QUIC) instead of HTTP/1.1/2, for registries started
// with StartHTTPServerHTTP3. tlsCfg may be nil to accept the client's
// default trust store.
func NewHTTPRegistryHTTP3(baseURL, token string, tlsCfg *tls.Config) *HTTPRegistry {
	return &HTTPRegistry{
		base:        strings.TrimRight(baseURL, "/"),
		client:      netstack.HTTP3Client(tlsCfg, 30*time.Second),
		token:       strings.TrimSpace(token),
		manifestTTL: 30 * time.Second,
		cache:       make(map[string]manifestCacheEntry),
	}
}

// credentials.json schema: { "registries": { "http://host:port": {"token": "..."} } }.
func loadTokenFor(baseURL string) string {
	b, err := os.ReadFile(filepath.Join(".bero", "credentials.json"))
	if err != nil {
		return ""
	}

	var cfg struct {
		Registries map[string]struct {
			Token string `json:"token"`
		} `json:"registries"`
	}

	if json.Unmarshal(b, &cfg) != nil {
		return ""
	}

	for k, v := range cfg.Registries {
		if strings.TrimRight(k, "/") == strings.TrimRight(baseURL, "/") {
			return strings.TrimSpace(v.Token)
		}
	}

	return ""
}

func (r *HTTPRegistry) doWithRetry(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		resp, err := r.client.Do(req)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		time.Sleep(time.Duration(100*(1<<attempt)) * time.Millisecond)
	}

	return nil, lastErr
}

func (r *HTTPRegistry) authorize(req *http.Request) {
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
}

// FetchManifest fetches the manifest for name, coalescing concurrent callers
// with singleflight and revalidating a cached copy with If-None-Match.
func (r *HTTPRegistry) FetchManifest(ctx context.Context, name string) (Manifest, error) {
	r.mu.RLock()
	if c, ok := r.cache[name]; ok && time.Since(c.at) < r.manifestTTL {
		r.mu.RUnlock()

		return c.man, nil
	}
	r.mu.RUnlock()

	v, err, _ := r.sf.Do("manifest:"+name, func() (any, error) {
		u := r.base + "/" + url.PathEscape(name)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
		if err != nil {
			return nil, err
		}

		r.authorize(req)

		r.mu.RLock()
		if c, ok := r.cache[name]; ok && c.etag != "" {
			req.Header.Set("If-None-Match", c.etag)
		}
		r.mu.RUnlock()

		resp, err := r.doWithRetry(req)
		if err != nil {
			return nil, err
		}

		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotModified {
			r.mu.RLock()
			cached := r.cache[name]
			r.mu.RUnlock()

			return cached.man, nil
		}

		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)

			return nil, fmt.Errorf("fetch manifest %s: %s", name, string(body))
		}

		var man Manifest
		if err := json.NewDecoder(resp.Body).Decode(&man); err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[name] = manifestCacheEntry{at: time.Now(), man: man, etag: resp.Header.Get("ETag")}
		r.mu.Unlock()

		return man, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(Manifest), nil
}

// Fetch downloads the tarball bytes named by dist.Tarball.
func (r *HTTPRegistry) Fetch(ctx context.Context, dist Dist) ([]byte, error) {
	u := r.base + "/blobs/" + url.PathEscape(trimCIDPrefix(dist.Tarball))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, err
	}

	r.authorize(req)

	resp, err := r.doWithRetry(req)
	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		return nil, fmt.Errorf("fetch blob: %s", string(body))
	}

	return io.ReadAll(resp.Body)
}

// Publish uploads a tarball for name@version with its dependency ranges.
func (r *HTTPRegistry) Publish(ctx context.Context, name, version string, deps map[string]string, data []byte) (Dist, error) {
	payload := struct {
		Version      string            `json:"version"`
		Dependencies map[string]string `json:"dependencies"`
		Data         []byte            `json:"data"`
	}{Version: version, Dependencies: deps, Data: data}

	b, err := json.Marshal(payload)
	if err != nil {
		return Dist{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.base+"/"+url.PathEscape(name), bytes.NewReader(b))
	if err != nil {
		return Dist{}, err
	}

	req.Header.Set("Content-Type", "application/json")
	r.authorize(req)

	resp, err := r.doWithRetry(req)
	if err != nil {
		return Dist{}, err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		return Dist{}, fmt.Errorf("publish %s@%s: %s", name, version, string(body))
	}

	var out Dist
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Dist{}, err
	}

	r.mu.Lock()
	delete(r.cache, name)
	r.mu.Unlock()

	return out, nil
}
