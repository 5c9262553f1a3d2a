package storeclient

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupMockStoreService создаёт mock HTTP-сервер store-service.
func setupMockStoreService(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, baseURL string, cache *IDCache) *Client {
	t.Helper()
	c, err := New(Options{
		BaseURL:     baseURL,
		ServiceName: "retail-file-service",
		Timeout:     5 * time.Second,
		Cache:       cache,
	}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func writeStore(w http.ResponseWriter, status int, id uuid.UUID, chainID string, storeNumber int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(StoreInfo{ID: id, ChainID: chainID, StoreNumber: storeNumber})
}

// fakeStoreService — in-memory store-service с уникальностью по естественному ключу.
type fakeStoreService struct {
	mu      sync.Mutex
	stores  map[string]uuid.UUID
	gets    atomic.Int32
	creates atomic.Int32
}

func newFakeStoreService() *fakeStoreService {
	return &fakeStoreService{stores: map[string]uuid.UUID{}}
}

func (f *fakeStoreService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/stores/by-natural-key":
		f.gets.Add(1)
		n, _ := strconv.Atoi(r.URL.Query().Get("store_number"))
		key := r.URL.Query().Get("chain_id") + "/" + strconv.Itoa(n)
		f.mu.Lock()
		id, ok := f.stores[key]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeStore(w, http.StatusOK, id, r.URL.Query().Get("chain_id"), n)
	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/stores":
		f.creates.Add(1)
		var body CreateStoreRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		key := body.ChainID + "/" + strconv.Itoa(body.StoreNumber)
		f.mu.Lock()
		if _, ok := f.stores[key]; ok {
			f.mu.Unlock()
			w.WriteHeader(http.StatusConflict)
			return
		}
		id := uuid.New()
		f.stores[key] = id
		f.mu.Unlock()
		writeStore(w, http.StatusCreated, id, body.ChainID, body.StoreNumber)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestGetOrCreateStoreID_Found(t *testing.T) {
	want := uuid.New()
	server := setupMockStoreService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/v1/stores/by-natural-key" {
			t.Errorf("неожиданный запрос %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got := r.URL.Query().Get("chain_id"); got != "7290027600007" {
			t.Errorf("chain_id = %q", got)
		}
		if got := r.URL.Query().Get("store_number"); got != "42" {
			t.Errorf("store_number = %q", got)
		}
		if got := r.Header.Get("X-Service-Name"); got != "retail-file-service" {
			t.Errorf("X-Service-Name = %q", got)
		}
		writeStore(w, http.StatusOK, want, "7290027600007", 42)
	})

	client := newTestClient(t, server.URL, nil)
	got, err := client.GetOrCreateStoreID(context.Background(), "7290027600007", 42)
	if err != nil {
		t.Fatalf("GetOrCreateStoreID: %v", err)
	}
	if got != want {
		t.Errorf("id = %s, ожидался %s", got, want)
	}
}

func TestGetOrCreateStoreID_CreatesWhenMissing(t *testing.T) {
	want := uuid.New()
	createdCh := make(chan CreateStoreRequest, 1)
	server := setupMockStoreService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPost:
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			var body CreateStoreRequest
			json.NewDecoder(r.Body).Decode(&body)
			createdCh <- body
			writeStore(w, http.StatusCreated, want, body.ChainID, body.StoreNumber)
		}
	})

	client := newTestClient(t, server.URL, nil)
	got, err := client.GetOrCreateStoreID(context.Background(), "123", 5)
	if err != nil {
		t.Fatalf("GetOrCreateStoreID: %v", err)
	}
	if got != want {
		t.Errorf("id = %s, ожидался %s", got, want)
	}

	// Параметры автоматически создаваемого магазина
	created := <-createdCh
	if created.ChainID != "123" || created.StoreNumber != 5 {
		t.Errorf("ключ = (%s, %d)", created.ChainID, created.StoreNumber)
	}
	if created.StoreType != "AUTO" {
		t.Errorf("store_type = %q, ожидался AUTO", created.StoreType)
	}
	if created.StoreName != "Store 5" {
		t.Errorf("store_name = %q, ожидался \"Store 5\"", created.StoreName)
	}
	if created.SubChainID != 1 {
		t.Errorf("sub_chain_id = %d, ожидался 1", created.SubChainID)
	}
}

func TestGetOrCreateStoreID_ConflictRequeries(t *testing.T) {
	want := uuid.New()
	var gets atomic.Int32
	server := setupMockStoreService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			// Первый GET — 404, повторный после 409 — 200
			if gets.Add(1) == 1 {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			writeStore(w, http.StatusOK, want, "123", 5)
		case http.MethodPost:
			w.WriteHeader(http.StatusConflict)
		}
	})

	client := newTestClient(t, server.URL, nil)
	got, err := client.GetOrCreateStoreID(context.Background(), "123", 5)
	if err != nil {
		t.Fatalf("GetOrCreateStoreID: %v", err)
	}
	if got != want {
		t.Errorf("id = %s, ожидался %s", got, want)
	}
	if n := gets.Load(); n != 2 {
		t.Errorf("GET вызван %d раз, ожидалось 2", n)
	}
}

func TestGetOrCreateStoreID_ConflictThenMissing(t *testing.T) {
	var gets, posts atomic.Int32
	server := setupMockStoreService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			gets.Add(1)
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPost:
			posts.Add(1)
			w.WriteHeader(http.StatusConflict)
		}
	})

	client := newTestClient(t, server.URL, nil)
	_, err := client.GetOrCreateStoreID(context.Background(), "123", 5)
	if err == nil {
		t.Fatal("ожидалась ошибка")
	}
	if !strings.Contains(err.Error(), "существует, но не может быть получен") {
		t.Errorf("ошибка = %v", err)
	}
	// Повтор ровно один, без зацикливания
	if gets.Load() != 2 || posts.Load() != 1 {
		t.Errorf("GET=%d POST=%d, ожидалось 2 и 1", gets.Load(), posts.Load())
	}
}

func TestGetOrCreateStoreID_UnexpectedStatus(t *testing.T) {
	tests := []struct {
		name       string
		getStatus  int
		postStatus int
		wantPosts  int32
	}{
		{"500 на поиске", http.StatusInternalServerError, http.StatusCreated, 0},
		{"401 на поиске", http.StatusUnauthorized, http.StatusCreated, 0},
		{"500 на создании", http.StatusNotFound, http.StatusInternalServerError, 1},
		{"400 на создании", http.StatusNotFound, http.StatusBadRequest, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var posts atomic.Int32
			server := setupMockStoreService(t, func(w http.ResponseWriter, r *http.Request) {
				switch r.Method {
				case http.MethodGet:
					w.WriteHeader(tt.getStatus)
				case http.MethodPost:
					posts.Add(1)
					w.WriteHeader(tt.postStatus)
				}
			})

			client := newTestClient(t, server.URL, nil)
			_, err := client.GetOrCreateStoreID(context.Background(), "123", 5)
			if err == nil {
				t.Fatal("ожидалась ошибка")
			}
			if errors.Is(err, ErrStoreNotFound) || errors.Is(err, ErrStoreConflict) {
				t.Errorf("неожиданная классификация ошибки: %v", err)
			}
			if !strings.Contains(err.Error(), "статус") {
				t.Errorf("ошибка должна содержать статус: %v", err)
			}
			if posts.Load() != tt.wantPosts {
				t.Errorf("POST вызван %d раз, ожидалось %d", posts.Load(), tt.wantPosts)
			}
		})
	}
}

func TestGetOrCreateStoreID_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := newTestClient(t, url, nil)
	if _, err := client.GetOrCreateStoreID(context.Background(), "123", 5); err == nil {
		t.Fatal("ожидалась ошибка при недоступном store-service")
	}
}

func TestGetOrCreateStoreID_Cache(t *testing.T) {
	fake := newFakeStoreService()
	server := setupMockStoreService(t, fake.ServeHTTP)

	cache := NewIDCache(10, time.Minute, prometheus.NewRegistry())
	client := newTestClient(t, server.URL, cache)

	first, err := client.GetOrCreateStoreID(context.Background(), "123", 5)
	if err != nil {
		t.Fatalf("GetOrCreateStoreID: %v", err)
	}
	second, err := client.GetOrCreateStoreID(context.Background(), "123", 5)
	if err != nil {
		t.Fatalf("GetOrCreateStoreID: %v", err)
	}

	if first != second {
		t.Errorf("id различаются: %s и %s", first, second)
	}
	if fake.gets.Load() != 1 || fake.creates.Load() != 1 {
		t.Errorf("GET=%d POST=%d, ожидалось 1 и 1 (второй вызов из кэша)", fake.gets.Load(), fake.creates.Load())
	}
	if cache.Len() != 1 {
		t.Errorf("cache.Len() = %d, ожидалось 1", cache.Len())
	}
}

func TestGetOrCreateStoreID_CacheStaleUntilTTL(t *testing.T) {
	fake := newFakeStoreService()
	server := setupMockStoreService(t, fake.ServeHTTP)

	cache := NewIDCache(10, 50*time.Millisecond, prometheus.NewRegistry())
	client := newTestClient(t, server.URL, cache)

	first, err := client.GetOrCreateStoreID(context.Background(), "123", 5)
	if err != nil {
		t.Fatalf("GetOrCreateStoreID: %v", err)
	}

	// Магазин удалён в store-service
	fake.mu.Lock()
	delete(fake.stores, "123/5")
	fake.mu.Unlock()

	cached, err := client.GetOrCreateStoreID(context.Background(), "123", 5)
	if err != nil {
		t.Fatalf("GetOrCreateStoreID: %v", err)
	}
	if cached != first {
		t.Errorf("до истечения TTL ожидался ID из кэша %s, получен %s", first, cached)
	}

	time.Sleep(120 * time.Millisecond)

	recreated, err := client.GetOrCreateStoreID(context.Background(), "123", 5)
	if err != nil {
		t.Fatalf("GetOrCreateStoreID: %v", err)
	}
	if recreated == first {
		t.Error("после истечения TTL магазин должен быть создан заново с новым ID")
	}
	if fake.creates.Load() != 2 {
		t.Errorf("POST=%d, ожидалось 2", fake.creates.Load())
	}
}

func TestGetOrCreateStoreID_NoCache(t *testing.T) {
	fake := newFakeStoreService()
	server := setupMockStoreService(t, fake.ServeHTTP)
	client := newTestClient(t, server.URL, nil)

	for range 3 {
		if _, err := client.GetOrCreateStoreID(context.Background(), "123", 5); err != nil {
			t.Fatalf("GetOrCreateStoreID: %v", err)
		}
	}
	// Без кэша каждый вызов обращается к store-service
	if fake.gets.Load() != 3 {
		t.Errorf("GET вызван %d раз, ожидалось 3", fake.gets.Load())
	}
	if fake.creates.Load() != 1 {
		t.Errorf("POST вызван %d раз, ожидалось 1", fake.creates.Load())
	}
}

func TestGetOrCreateStoreID_Concurrent(t *testing.T) {
	fake := newFakeStoreService()
	server := setupMockStoreService(t, fake.ServeHTTP)
	client := newTestClient(t, server.URL, nil)

	const workers = 16
	ids := make([]uuid.UUID, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i], errs[i] = client.GetOrCreateStoreID(context.Background(), "999", 77)
		}()
	}
	wg.Wait()

	for i := range workers {
		if errs[i] != nil {
			t.Fatalf("воркер %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Errorf("воркер %d получил id %s, ожидался %s", i, ids[i], ids[0])
		}
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.stores) != 1 {
		t.Errorf("создано магазинов: %d, ожидался 1", len(fake.stores))
	}
}

func TestClient_BearerToken(t *testing.T) {
	var tokenRequests atomic.Int32
	tokenServer := setupMockStoreService(t, func(w http.ResponseWriter, r *http.Request) {
		tokenRequests.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if r.PostForm.Get("grant_type") != "client_credentials" {
			t.Errorf("grant_type = %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("client_id") != "retail-file-service" {
			t.Errorf("client_id = %q", r.PostForm.Get("client_id"))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"expires_in":   300,
			"token_type":   "Bearer",
		})
	})

	storeID := uuid.New()
	storeServer := setupMockStoreService(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeStore(w, http.StatusOK, storeID, "123", 5)
	})

	client, err := New(Options{
		BaseURL:      storeServer.URL,
		Timeout:      5 * time.Second,
		TokenURL:     tokenServer.URL,
		ClientID:     "retail-file-service",
		ClientSecret: "secret",
	}, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	for range 3 {
		got, err := client.GetOrCreateStoreID(context.Background(), "123", 5)
		if err != nil {
			t.Fatalf("GetOrCreateStoreID: %v", err)
		}
		if got != storeID {
			t.Errorf("id = %s, ожидался %s", got, storeID)
		}
	}
	// Токен кэшируется между запросами
	if n := tokenRequests.Load(); n != 1 {
		t.Errorf("токен запрошен %d раз, ожидалось 1", n)
	}
}

func TestClient_TokenError(t *testing.T) {
	tokenServer := setupMockStoreService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client"}`))
	})
	var storeCalls atomic.Int32
	storeServer := setupMockStoreService(t, func(w http.ResponseWriter, r *http.Request) {
		storeCalls.Add(1)
	})

	client, err := New(Options{
		BaseURL:  storeServer.URL,
		Timeout:  5 * time.Second,
		TokenURL: tokenServer.URL,
		ClientID: "retail-file-service",
	}, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.GetOrCreateStoreID(context.Background(), "123", 5); err == nil {
		t.Fatal("ожидалась ошибка получения токена")
	}
	if storeCalls.Load() != 0 {
		t.Error("без токена запрос к store-service не должен выполняться")
	}
}

func TestNew_InvalidCACert(t *testing.T) {
	_, err := New(Options{BaseURL: "https://store", CACertPath: "/nonexistent/ca.pem"}, testLogger())
	if err == nil {
		t.Fatal("ожидалась ошибка для несуществующего CA-сертификата")
	}
}

func TestDecodeStore_MissingID(t *testing.T) {
	_, err := decodeStore(strings.NewReader(`{"chain_id":"1","store_number":2}`))
	if err == nil {
		t.Fatal("ожидалась ошибка для ответа без id")
	}
}

func TestCheckReady(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   string
	}{
		{"store-service доступен", http.StatusOK, "ok"},
		{"store-service отвечает ошибкой", http.StatusServiceUnavailable, "fail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupMockStoreService(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health/live" {
					t.Errorf("путь = %s, ожидался /health/live", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			})

			status, msg := newTestClient(t, server.URL, nil).CheckReady()
			if status != tt.want {
				t.Errorf("CheckReady() = (%q, %q), ожидался статус %q", status, msg, tt.want)
			}
		})
	}

	t.Run("store-service недоступен", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		if status, _ := newTestClient(t, url, nil).CheckReady(); status != "fail" {
			t.Errorf("статус = %q, ожидался fail", status)
		}
	})
}
