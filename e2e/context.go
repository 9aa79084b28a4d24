// Package e2e drives the gateway end to end with Gherkin scenarios. The
// gateway runs in-process against a scripted marketplace API.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"agrimarket/internal/directory/fetcher"
	"agrimarket/internal/directory/schema"
	"agrimarket/internal/discovery"
	discoveryhandler "agrimarket/internal/discovery/handler"
	"agrimarket/internal/platform/logger"
	"agrimarket/internal/session"
	httpapi "agrimarket/internal/transport/http"
)

const sessionCookie = "agrimarket_session"

// TestContext holds one scenario's gateway, fake marketplace and last
// response.
type TestContext struct {
	mu        sync.Mutex
	responses map[string]upstreamResponse
	tokens    []string

	upstream *httptest.Server
	gateway  *httptest.Server
	client   *http.Client

	lastStatus int
	lastBody   []byte
}

type upstreamResponse struct {
	status int
	body   string
}

// NewTestContext starts the fake marketplace and the gateway.
func NewTestContext() (*TestContext, error) {
	tc := &TestContext{}
	if err := tc.Start(); err != nil {
		return nil, err
	}
	return tc, nil
}

// Start resets the scenario state and starts fresh servers.
func (tc *TestContext) Start() error {
	tc.mu.Lock()
	tc.responses = map[string]upstreamResponse{}
	tc.tokens = nil
	tc.mu.Unlock()
	tc.lastStatus, tc.lastBody = 0, nil
	tc.upstream = httptest.NewServer(http.HandlerFunc(tc.serveUpstream))

	log := logger.Discard()
	kinds := schema.Default()
	sessions := session.NewService(session.NewInMemoryStore(), time.Hour, session.WithLogger(log))
	client := fetcher.New(tc.upstream.URL, fetcher.WithRegistry(kinds), fetcher.WithLogger(log))
	service := discovery.NewService(client, kinds,
		discovery.WithMediaBaseURL(tc.upstream.URL),
		discovery.WithLogger(log),
	)
	tc.gateway = httptest.NewServer(httpapi.NewRouter(httpapi.Deps{
		Logger:         log,
		Sessions:       sessions,
		SessionCookie:  sessionCookie,
		SessionHandler: session.NewHandler(sessions, session.CookieOptions{Name: sessionCookie}, log),
		Discovery:      discoveryhandler.New(service, session.NewGate("/login"), log),
		RequestTimeout: 5 * time.Second,
	}))

	jar, err := cookiejar.New(nil)
	if err != nil {
		tc.Close()
		return err
	}
	tc.client = &http.Client{Jar: jar, Timeout: 10 * time.Second}
	return nil
}

// Close stops both servers.
func (tc *TestContext) Close() {
	if tc.gateway != nil {
		tc.gateway.Close()
	}
	if tc.upstream != nil {
		tc.upstream.Close()
	}
}

func (tc *TestContext) serveUpstream(w http.ResponseWriter, r *http.Request) {
	tc.mu.Lock()
	tc.tokens = append(tc.tokens, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	resp, ok := tc.responses[r.URL.Path]
	tc.mu.Unlock()
	if !ok {
		resp = upstreamResponse{status: http.StatusOK, body: `{"success":true,"data":[]}`}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = io.WriteString(w, resp.body)
}

// SetUpstream scripts the marketplace response for path.
func (tc *TestContext) SetUpstream(path string, status int, body string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.responses[path] = upstreamResponse{status: status, body: body}
}

// LastUpstreamToken is the bearer token of the most recent upstream call.
func (tc *TestContext) LastUpstreamToken() string {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if len(tc.tokens) == 0 {
		return ""
	}
	return tc.tokens[len(tc.tokens)-1]
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body)
}

func (tc *TestContext) DELETE(path string) error {
	return tc.do(http.MethodDelete, path, nil)
}

func (tc *TestContext) do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.gateway.URL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) GetLastResponseStatus() int { return tc.lastStatus }

func (tc *TestContext) GetLastResponseBody() []byte { return tc.lastBody }

// GetResponseField walks a dotted path such as "viewport.zoom" or
// "records.0.id" through the last JSON body.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var cur any
	if err := json.Unmarshal(tc.lastBody, &cur); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	for _, part := range strings.Split(field, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field %q not found", field)
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %q out of range in %q", part, field)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("field %q not found", field)
		}
	}
	return cur, nil
}
