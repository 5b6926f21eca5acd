package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sakif/image-feed/internal/auth"
	"github.com/sakif/image-feed/internal/credential"
	"github.com/sakif/image-feed/internal/dispatch"
	"github.com/sakif/image-feed/internal/executor"
	"github.com/sakif/image-feed/internal/model"
)

// =========================================================================
// FAKE PHOTO API
// =========================================================================

// fakeAPI is an in-process stand-in for the photo service. Tests configure
// its responses through the exported-looking fields before making calls.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int // "METHOD /path" → count
	auth  []string       // Authorization headers seen, in order
	query []string       // raw query strings of GET /photos

	pages      map[int][]model.PhotoResult
	pageStatus map[int]int    // non-zero forces an error status for that page
	rawPages   map[int]string // served verbatim instead of pages
	likeStatus int
	meStatus   int
	meBody     string
	users      map[string]string // username → raw JSON body
	tokenCode  int               // non-zero forces an error status

	gates map[string]*gate
}

// gate holds requests of one route until opened or until the client gives up.
type gate struct {
	arrived chan string
	release chan struct{}
	once    sync.Once
}

func (g *gate) open() { g.once.Do(func() { close(g.release) }) }

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{
		calls:      make(map[string]int),
		pages:      make(map[int][]model.PhotoResult),
		pageStatus: make(map[int]int),
		rawPages:   make(map[int]string),
		users:      make(map[string]string),
		gates:      make(map[string]*gate),
		meBody:     `{"username":"alice","first_name":"Alice","last_name":"Liddell","bio":"Down the rabbit hole","email":"alice@example.com"}`,
	}
	f.users["alice"] = `{"username":"alice","profile_image":{"small":"https://images.example/alice-32.jpg","medium":"https://images.example/alice-64.jpg"}}`
	f.users["bob"] = `{"username":"bob","profile_image":{"small":"https://images.example/bob-32.jpg"}}`

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", f.handleToken)
	mux.HandleFunc("GET /me", f.handleMe)
	mux.HandleFunc("GET /users/{username}", f.handleUser)
	mux.HandleFunc("GET /photos", f.handlePhotos)
	mux.HandleFunc("POST /photos/{id}/like", f.handleLike)
	mux.HandleFunc("DELETE /photos/{id}/like", f.handleLike)

	srv := httptest.NewServer(f.record(mux))
	t.Cleanup(func() {
		f.openAll()
		srv.Close()
	})
	return f, srv
}

func (f *fakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[r.Method+" "+r.URL.Path]++
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		if r.URL.Path == "/photos" {
			f.query = append(f.query, r.URL.RawQuery)
		}
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// hold installs a gate on route ("token", "me", "users", "photos", "like").
func (f *fakeAPI) hold(route string) *gate {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := &gate{arrived: make(chan string, 16), release: make(chan struct{})}
	f.gates[route] = g
	return g
}

func (f *fakeAPI) openAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.gates {
		g.open()
	}
}

// wait blocks at route's gate, if any. It reports false when the client
// went away first.
func (f *fakeAPI) wait(r *http.Request, route, key string) bool {
	f.mu.Lock()
	g := f.gates[route]
	f.mu.Unlock()
	if g == nil {
		return true
	}
	g.arrived <- key
	select {
	case <-g.release:
		return true
	case <-r.Context().Done():
		return false
	}
}

func (f *fakeAPI) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[call]
}

func (f *fakeAPI) queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.query...)
}

func (f *fakeAPI) authHeaders() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.auth...)
}

func (f *fakeAPI) set(fn func(f *fakeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeAPI) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	code := r.PostForm.Get("code")
	if !f.wait(r, "token", code) {
		return
	}

	f.mu.Lock()
	status := f.tokenCode
	f.mu.Unlock()
	if status != 0 {
		http.Error(w, `{"error":"invalid_grant"}`, status)
		return
	}
	writeJSON(w, map[string]any{
		"access_token": "token-for-" + code,
		"token_type":   "Bearer",
		"scope":        "public read_user write_likes",
		"created_at":   1700000000,
	})
}

func (f *fakeAPI) handleMe(w http.ResponseWriter, r *http.Request) {
	if !f.wait(r, "me", "") {
		return
	}
	f.mu.Lock()
	status, body := f.meStatus, f.meBody
	f.mu.Unlock()
	if status != 0 {
		http.Error(w, `{"errors":["nope"]}`, status)
		return
	}
	w.Write([]byte(body))
}

func (f *fakeAPI) handleUser(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if !f.wait(r, "users", username) {
		return
	}
	f.mu.Lock()
	body, ok := f.users[username]
	f.mu.Unlock()
	if !ok {
		http.Error(w, `{"errors":["Couldn't find User"]}`, http.StatusNotFound)
		return
	}
	w.Write([]byte(body))
}

func (f *fakeAPI) handlePhotos(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if !f.wait(r, "photos", strconv.Itoa(page)) {
		return
	}
	f.mu.Lock()
	status := f.pageStatus[page]
	results := f.pages[page]
	raw, isRaw := f.rawPages[page]
	f.mu.Unlock()
	if status != 0 {
		http.Error(w, `{"errors":["boom"]}`, status)
		return
	}
	if isRaw {
		w.Write([]byte(raw))
		return
	}
	if results == nil {
		results = []model.PhotoResult{}
	}
	writeJSON(w, results)
}

func (f *fakeAPI) handleLike(w http.ResponseWriter, r *http.Request) {
	if !f.wait(r, "like", r.PathValue("id")) {
		return
	}
	f.mu.Lock()
	status := f.likeStatus
	f.mu.Unlock()
	if status != 0 {
		http.Error(w, `{"errors":["Couldn't find Photo"]}`, status)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write([]byte(`{}`))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// =========================================================================
// TEST ENVIRONMENT
// =========================================================================

type testEnv struct {
	api    *fakeAPI
	srv    *httptest.Server
	queue  *dispatch.Queue
	creds  *credential.MemoryStore
	exec   *executor.Executor
	client *APIClient
	logger *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	api, srv := newFakeAPI(t)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	q := dispatch.NewQueue(logger)
	q.Start()
	t.Cleanup(q.Stop)

	creds := credential.NewMemoryStore()
	exec := executor.New(srv.Client(), logger)

	return &testEnv{
		api:    api,
		srv:    srv,
		queue:  q,
		creds:  creds,
		exec:   exec,
		client: NewAPIClient(srv.URL, exec, creds),
		logger: logger,
	}
}

func (e *testEnv) signIn(t *testing.T) {
	t.Helper()
	require.NoError(t, e.creds.Set(context.Background(), "test-token"))
}

func (e *testEnv) provider() *auth.Provider {
	return auth.NewProvider(auth.ProviderConfig{
		ClientID:           "access-key",
		ClientSecret:       "secret-key",
		RedirectURI:        "urn:ietf:wg:oauth:2.0:oob",
		Scopes:             []string{"public", "read_user", "write_likes"},
		AuthorizeURL:       e.srv.URL + "/oauth/authorize",
		TokenURL:           e.srv.URL + "/oauth/token",
		NativeRedirectPath: "/oauth/authorize/native",
	})
}

func (e *testEnv) oauthService() *OAuthService {
	return NewOAuthService(e.provider(), e.exec, e.creds, e.logger)
}

func (e *testEnv) avatarService() *AvatarService {
	return NewAvatarService(e.client, e.queue, e.logger)
}

func (e *testEnv) feedService() *FeedService {
	return NewFeedService(e.client, 10, e.queue, e.logger)
}

// =========================================================================
// SMALL HELPERS
// =========================================================================

func photoResults(ids ...string) []model.PhotoResult {
	out := make([]model.PhotoResult, len(ids))
	for i, id := range ids {
		out[i] = model.PhotoResult{
			ID:     id,
			Width:  4000,
			Height: 3000,
			URLs: model.PhotoURLs{
				Thumb: fmt.Sprintf("https://images.example/%s-thumb.jpg", id),
				Full:  fmt.Sprintf("https://images.example/%s-full.jpg", id),
			},
		}
	}
	return out
}

func rangeIDs(from, to int) []string {
	ids := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		ids = append(ids, strconv.Itoa(i))
	}
	return ids
}

func idsOf(photos []model.Photo) []string {
	ids := make([]string, len(photos))
	for i, p := range photos {
		ids[i] = p.ID
	}
	return ids
}

// collect records everything e publishes. The returned func waits for the
// queue to drain before reading.
func collect[T any](t *testing.T, q *dispatch.Queue, e *dispatch.Emitter[T]) func() []T {
	t.Helper()
	var (
		mu  sync.Mutex
		got []T
	)
	cancel := e.Observe(func(v T) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	})
	t.Cleanup(cancel)

	return func() []T {
		q.Sync()
		mu.Lock()
		defer mu.Unlock()
		return append([]T(nil), got...)
	}
}

func receive[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting on channel")
	}
	var zero T
	return zero
}
