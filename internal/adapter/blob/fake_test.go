package blob

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

const testToken = "vercel_blob_rw_test"

// fakeAPI mimics the blob REST API with a lagging listing index. Objects are
// served from <server>/<pathname>, the API lives under <server>/api.
type fakeAPI struct {
	t   *testing.T
	srv *httptest.Server

	mu        sync.Mutex
	objects   map[string][]byte
	hidden    map[string]int // pathname -> list calls it stays invisible for
	lag       int            // hidden count given to every new object
	failLists int            // next list calls that answer 500
	broken    map[string]bool
	listCalls int
	fetches   int
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		t:       t,
		objects: make(map[string][]byte),
		hidden:  make(map[string]int),
		broken:  make(map[string]bool),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/{path...}", f.handlePut)
	mux.HandleFunc("GET /api", f.handleList)
	mux.HandleFunc("POST /api/delete", f.handleDelete)
	mux.HandleFunc("GET /{path...}", f.handleFetch)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) apiURL() string { return f.srv.URL + "/api" }

func (f *fakeAPI) client() *Client {
	return NewClient(f.apiURL(), testToken, 5*time.Second)
}

func (f *fakeAPI) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer "+testToken {
		http.Error(w, "unauthorized", http.StatusForbidden)
		return false
	}
	return true
}

func (f *fakeAPI) handlePut(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	path := r.PathValue("path")
	data, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.objects[path] = data
	f.hidden[path] = f.lag
	f.mu.Unlock()

	_ = json.NewEncoder(w).Encode(Object{URL: f.srv.URL + "/" + path, Pathname: path, Size: int64(len(data))})
}

func (f *fakeAPI) handleList(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	prefix := r.URL.Query().Get("prefix")

	f.mu.Lock()
	f.listCalls++
	if f.failLists > 0 {
		f.failLists--
		f.mu.Unlock()
		http.Error(w, "index unavailable", http.StatusInternalServerError)
		return
	}
	resp := listResponse{Blobs: []Object{}}
	for path, data := range f.objects {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		if f.hidden[path] > 0 {
			f.hidden[path]--
			continue
		}
		resp.Blobs = append(resp.Blobs, Object{URL: f.srv.URL + "/" + path, Pathname: path, Size: int64(len(data))})
	}
	f.mu.Unlock()

	_ = json.NewEncoder(w).Encode(resp)
}

func (f *fakeAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	var req struct {
		URLs []string `json:"urls"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	for _, u := range req.URLs {
		delete(f.objects, strings.TrimPrefix(u, f.srv.URL+"/"))
	}
	f.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (f *fakeAPI) handleFetch(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "" {
		f.t.Errorf("token must not be sent to object URLs")
	}
	path := r.PathValue("path")

	f.mu.Lock()
	f.fetches++
	data, ok := f.objects[path]
	broken := f.broken[path]
	f.mu.Unlock()

	switch {
	case broken:
		http.Error(w, "edge failure", http.StatusBadGateway)
	case !ok:
		http.Error(w, "not found", http.StatusNotFound)
	default:
		_, _ = w.Write(data)
	}
}

func (f *fakeAPI) setLag(n int) {
	f.mu.Lock()
	f.lag = n
	f.mu.Unlock()
}

func (f *fakeAPI) counts() (lists, fetches int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.fetches
}
