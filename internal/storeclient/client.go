// Пакет storeclient — HTTP-клиент retail-file-service к store-service.
// Разрешает ID магазина по естественному ключу (chain_id, store_number),
// создавая магазин при отсутствии.
package storeclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AvivSela/product-watch-il/internal/domain/model"
)

// Значения по умолчанию для автоматически создаваемого магазина.
const (
	autoStoreType  = "AUTO"
	autoSubChainID = 1
)

var (
	// ErrStoreNotFound — store-service ответил 404 на поиск по естественному ключу.
	ErrStoreNotFound = errors.New("магазин не найден в store-service")
	// ErrStoreConflict — store-service ответил 409 на создание магазина.
	ErrStoreConflict = errors.New("магазин уже существует в store-service")
)

// StoreInfo — магазин в ответе store-service.
type StoreInfo struct {
	ID          uuid.UUID `json:"id"`
	ChainID     string    `json:"chain_id"`
	StoreNumber int       `json:"store_number"`
	StoreType   string    `json:"store_type"`
	StoreName   string    `json:"store_name"`
	SubChainID  int       `json:"sub_chain_id"`
}

// CreateStoreRequest — тело POST /api/v1/stores.
type CreateStoreRequest struct {
	ChainID     string `json:"chain_id"`
	StoreNumber int    `json:"store_number"`
	StoreType   string `json:"store_type"`
	StoreName   string `json:"store_name"`
	SubChainID  int    `json:"sub_chain_id"`
}

// Options — параметры клиента.
type Options struct {
	// BaseURL — базовый URL store-service (например, http://store-service:8080)
	BaseURL string
	// ServiceName — значение заголовка X-Service-Name (попадает в created_by)
	ServiceName string
	// Timeout — таймаут HTTP-запросов
	Timeout time.Duration
	// CACertPath — CA-сертификат для TLS (пустая строка — системный пул)
	CACertPath string
	// TokenURL — token endpoint client_credentials; пустой — запросы без токена
	TokenURL     string
	ClientID     string
	ClientSecret string //nolint:gosec // G101: поле структуры, не содержит секрет напрямую
	// Cache — кэш ID магазинов (nil — без кэша)
	Cache *IDCache
}

// tokenInfo — закэшированный токен с временем истечения.
type tokenInfo struct {
	accessToken string
	expiresAt   time.Time
}

// Client — HTTP-клиент store-service.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	serviceName  string
	tokenURL     string
	clientID     string
	clientSecret string //nolint:gosec // G101: поле структуры, не содержит секрет напрямую
	cache        *IDCache
	logger       *slog.Logger

	// Кэш токена (thread-safe)
	mu    sync.RWMutex
	token *tokenInfo
}

// New создаёт клиент store-service.
func New(opts Options, logger *slog.Logger) (*Client, error) {
	httpClient := &http.Client{Timeout: opts.Timeout}

	if opts.CACertPath != "" {
		tlsConfig, err := buildTLSConfig(opts.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата store-service: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
		logger.Info("CA-сертификат store-service добавлен в пул доверия",
			slog.String("ca_cert", opts.CACertPath),
		)
	}

	return &Client{
		httpClient:   httpClient,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		serviceName:  opts.ServiceName,
		tokenURL:     opts.TokenURL,
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		cache:        opts.Cache,
		logger:       logger.With(slog.String("component", "store_client")),
	}, nil
}

// GetOrCreateStoreID возвращает ID магазина по естественному ключу.
//
// Протокол:
//  1. GET /api/v1/stores/by-natural-key: 200 — ID найден, 404 — шаг 2.
//  2. POST /api/v1/stores с параметрами по умолчанию: 201 — ID создан.
//  3. 409 на создании (магазин создан параллельно) — ровно один повторный GET.
//
// Остальные ответы и сетевые ошибки не повторяются.
//
// Попадание в кэш не проверяется в store-service: ID удалённого магазина
// возвращается до истечения TTL записи.
func (c *Client) GetOrCreateStoreID(ctx context.Context, chainID string, storeNumber int) (uuid.UUID, error) {
	key := model.StoreKey{ChainID: chainID, StoreNumber: storeNumber}
	if id, ok := c.cache.Get(key); ok {
		return id, nil
	}

	store, err := c.GetStoreByNaturalKey(ctx, chainID, storeNumber)
	if err == nil {
		c.cache.Set(key, store.ID)
		return store.ID, nil
	}
	if !errors.Is(err, ErrStoreNotFound) {
		return uuid.Nil, err
	}

	store, err = c.CreateStore(ctx, CreateStoreRequest{
		ChainID:     chainID,
		StoreNumber: storeNumber,
		StoreType:   autoStoreType,
		StoreName:   fmt.Sprintf("Store %d", storeNumber),
		SubChainID:  autoSubChainID,
	})
	if err == nil {
		c.cache.Set(key, store.ID)
		return store.ID, nil
	}
	if !errors.Is(err, ErrStoreConflict) {
		return uuid.Nil, err
	}

	c.logger.Warn("Магазин создан параллельно, повторный запрос",
		slog.String("chain_id", chainID),
		slog.Int("store_number", storeNumber),
	)

	store, err = c.GetStoreByNaturalKey(ctx, chainID, storeNumber)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			return uuid.Nil, fmt.Errorf("магазин %d сети %s существует, но не может быть получен", storeNumber, chainID)
		}
		return uuid.Nil, err
	}
	c.cache.Set(key, store.ID)
	return store.ID, nil
}

// GetStoreByNaturalKey запрашивает магазин по естественному ключу.
// GET /api/v1/stores/by-natural-key?chain_id=&store_number=
func (c *Client) GetStoreByNaturalKey(ctx context.Context, chainID string, storeNumber int) (*StoreInfo, error) {
	q := url.Values{
		"chain_id":     {chainID},
		"store_number": {strconv.Itoa(storeNumber)},
	}
	reqURL := c.baseURL + "/api/v1/stores/by-natural-key?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("создание запроса GetStoreByNaturalKey: %w", err)
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("запрос GetStoreByNaturalKey к %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: сеть %s, магазин %d", ErrStoreNotFound, chainID, storeNumber)
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("store-service вернул статус %d для магазина %d сети %s: %s",
			resp.StatusCode, storeNumber, chainID, string(body))
	}

	return decodeStore(resp.Body)
}

// CreateStore создаёт магазин.
// POST /api/v1/stores
func (c *Client) CreateStore(ctx context.Context, body CreateStoreRequest) (*StoreInfo, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("кодирование запроса CreateStore: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/stores", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("создание запроса CreateStore: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("запрос CreateStore к %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusConflict:
		return nil, fmt.Errorf("%w: сеть %s, магазин %d", ErrStoreConflict, body.ChainID, body.StoreNumber)
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("store-service вернул статус %d при создании магазина %d сети %s: %s",
			resp.StatusCode, body.StoreNumber, body.ChainID, string(respBody))
	}

	store, err := decodeStore(resp.Body)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Магазин создан в store-service",
		slog.String("store_id", store.ID.String()),
		slog.String("chain_id", body.ChainID),
		slog.Int("store_number", body.StoreNumber),
	)

	return store, nil
}

// do добавляет служебные заголовки и токен, выполняет запрос.
func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")
	if c.serviceName != "" {
		req.Header.Set("X-Service-Name", c.serviceName)
	}

	if c.tokenURL != "" {
		token, err := c.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("получение токена для store-service: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
}

// readinessTimeout — таймаут проверки готовности store-service.
const readinessTimeout = 3 * time.Second

// CheckReady проверяет доступность store-service через /health/live.
// Используется в readiness probe retail-file-service.
func (c *Client) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health/live", http.NoBody)
	if err != nil {
		return "fail", "ошибка создания запроса: " + err.Error()
	}
	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return "fail", fmt.Sprintf("store-service недоступен: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "fail", fmt.Sprintf("store-service вернул статус %d", resp.StatusCode)
	}
	return "ok", "store-service доступен"
}

func decodeStore(r io.Reader) (*StoreInfo, error) {
	var store StoreInfo
	if err := json.NewDecoder(r).Decode(&store); err != nil {
		return nil, fmt.Errorf("декодирование ответа store-service: %w", err)
	}
	if store.ID == uuid.Nil {
		return nil, errors.New("store-service вернул магазин без id")
	}
	return &store, nil
}

// GetToken возвращает токен для авторизации запросов.
// Использует кэш: если токен ещё валиден (exp - 30s), возвращает закэшированный.
// Иначе запрашивает новый через client_credentials grant.
func (c *Client) GetToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.token != nil && time.Now().Before(c.token.expiresAt) {
		token := c.token.accessToken
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check после получения write lock
	if c.token != nil && time.Now().Before(c.token.expiresAt) {
		return c.token.accessToken, nil
	}

	return c.requestToken(ctx)
}

// requestToken запрашивает новый токен. Вызывается под write lock.
func (c *Client) requestToken(ctx context.Context) (string, error) {
	data := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("создание запроса token: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return "", fmt.Errorf("запрос token к %s: %w", c.tokenURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token endpoint вернул статус %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		Token     string `json:"access_token"` //nolint:gosec // G117: JSON-маппинг OAuth2 ответа
		ExpiresIn int    `json:"expires_in"`
		TokenType string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("декодирование token response: %w", err)
	}

	if tokenResp.Token == "" {
		return "", errors.New("пустой access_token в ответе token endpoint")
	}

	// Кэшируем токен (с запасом 30 секунд до истечения)
	c.token = &tokenInfo{
		accessToken: tokenResp.Token,
		expiresAt:   time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - 30*time.Second),
	}

	c.logger.Debug("Токен для store-service получен",
		slog.Int("expires_in", tokenResp.ExpiresIn),
	)

	return tokenResp.Token, nil
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA-сертификатом.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("в %s нет PEM-сертификатов", caCertPath)
	}

	return &tls.Config{
		RootCAs:    caCertPool,
		MinVersion: tls.VersionTLS12,
	}, nil
}
