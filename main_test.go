package main

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"haldor/internal/config"
	"haldor/internal/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Discard()
	os.Exit(m.Run())
}

func testConfig(t *testing.T, overrides map[string]interface{}) *config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	v.Set("DATABASE_DSN", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	v.Set("PAYMENT_DELAY", "0s")
	v.Set("JWT_SECRET", "main-test-secret")
	for k, val := range overrides {
		v.Set(k, val)
	}
	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	return cfg
}

func newTestApplication(t *testing.T, overrides map[string]interface{}) *application {
	t.Helper()
	a, err := newApplication(testConfig(t, overrides))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestHealth(t *testing.T) {
	a := newTestApplication(t, nil)

	resp, err := a.fiber.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.NotContains(t, body, "rabbitmq")
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	a := newTestApplication(t, nil)

	_, err := a.fiber.Test(httptest.NewRequest("GET", "/api/v1/products", nil))
	require.NoError(t, err)

	resp, err := a.fiber.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "haldor_http_requests_total")
}

func TestSeededCatalogIsServed(t *testing.T) {
	a := newTestApplication(t, nil)

	resp, err := a.fiber.Test(httptest.NewRequest("GET", "/api/v1/products/featured", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var featured []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&featured))
	assert.Len(t, featured, 6)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	a := newTestApplication(t, nil)

	for _, path := range []string{"/api/v1/account/profile", "/api/v1/locations/addresses"} {
		resp, err := a.fiber.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode, path)
	}

	req := httptest.NewRequest("DELETE", "/api/v1/orders", nil)
	resp, err := a.fiber.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestRedisBackedStores(t *testing.T) {
	mr := miniredis.RunT(t)
	a := newTestApplication(t, map[string]interface{}{
		"REDIS_ADDR":  mr.Addr(),
		"CART_STORE":  "redis",
		"GUARD_STORE": "redis",
	})

	req := httptest.NewRequest("POST", "/api/v1/cart/items", strings.NewReader(`{"product_id":"p1","quantity":2}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Cart-ID", "guest-cart-0001")
	resp, err := a.fiber.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.True(t, mr.Exists("haldor:cart:guest:guest-cart-0001"))
}

func TestNewApplication_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := newApplication(testConfig(t, map[string]interface{}{
		"REDIS_ADDR": addr,
		"CART_STORE": "redis",
	}))
	assert.Error(t, err)
}
