package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/table-slot-booking/internal/config"
)

func testContext(method, target string) echo.Context {
    e := echo.New()
    req := httptest.NewRequest(method, target, nil)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.SetPath(target)
    return c
}

func TestBuildRateKeyStrategies(t *testing.T) {
    cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}
    c := testContext(http.MethodGet, "/v1/slots")

    key := buildRateKey(cfg, c)
    assert.Contains(t, key, "rl:ip:")

    cfg.KeyStrategy = "route"
    key = buildRateKey(cfg, c)
    assert.Equal(t, "rl:route:GET /v1/slots", key)

    cfg.KeyStrategy = "user"
    c.Set("user_id", "42")
    key = buildRateKey(cfg, c)
    assert.Equal(t, "rl:user:42", key)
}

func TestBuildRateKeyAnonymousFallsBack(t *testing.T) {
    cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}
    c := testContext(http.MethodGet, "/v1/slots")
    assert.Equal(t, "rl:user:guest", buildRateKey(cfg, c))
}

func TestBuildRateKeyUserFromJWTClaims(t *testing.T) {
    cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}
    c := testContext(http.MethodGet, "/v1/slots")
    tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "99"})
    c.Set("user", tok)
    assert.Equal(t, "rl:user:99", buildRateKey(cfg, c))
}

func TestCacheKeyStableAcrossRequests(t *testing.T) {
    cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
    a := cacheKeyFrom(cfg, testContext(http.MethodGet, "/v1/slots?page=1"))
    b := cacheKeyFrom(cfg, testContext(http.MethodGet, "/v1/slots?page=1"))
    other := cacheKeyFrom(cfg, testContext(http.MethodGet, "/v1/slots?page=2"))
    assert.Equal(t, a, b)
    assert.NotEqual(t, a, other)
}

func TestCachePayloadRoundTrip(t *testing.T) {
    hdr := http.Header{}
    hdr.Set("Content-Type", "application/json")
    body := []byte(`{"items":[]}`)

    bs, err := encodePayload(http.StatusOK, hdr, body)
    require.NoError(t, err)
    status, gotHdr, gotBody, ok := decodePayload(bs)
    require.True(t, ok)
    assert.Equal(t, http.StatusOK, status)
    assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
    assert.Equal(t, body, gotBody)
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
    _, _, _, ok := decodePayload([]byte("zz"))
    assert.False(t, ok)
}

func TestRequireRoleAllows(t *testing.T) {
    c := testContext(http.MethodGet, "/v1/owner/slots")
    c.Set("role", "OWNER")
    called := false
    next := func(echo.Context) error { called = true; return nil }

    require.NoError(t, RequireRole("OWNER")(next)(c))
    assert.True(t, called)
}

func TestRequireRoleRejects(t *testing.T) {
    c := testContext(http.MethodGet, "/v1/owner/slots")
    c.Set("role", "CUSTOMER")
    next := func(echo.Context) error { t.Fatal("next should not run"); return nil }

    require.NoError(t, RequireRole("OWNER")(next)(c))
    assert.Equal(t, http.StatusForbidden, c.Response().Status)
}

func TestRequireRoleMissingRole(t *testing.T) {
    c := testContext(http.MethodGet, "/v1/owner/slots")
    next := func(echo.Context) error { t.Fatal("next should not run"); return nil }

    require.NoError(t, RequireRole("OWNER")(next)(c))
    assert.Equal(t, http.StatusForbidden, c.Response().Status)
}

func TestJWTAuthRoundTrip(t *testing.T) {
    secret := "test-secret"
    claims := jwt.MapClaims{
        "sub":  "42",
        "role": "CUSTOMER",
        "exp":  time.Now().Add(time.Minute).Unix(),
    }
    raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    require.NoError(t, err)

    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
    req.Header.Set("Authorization", "Bearer "+raw)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)

    var gotUser, gotRole interface{}
    next := func(c echo.Context) error {
        gotUser = c.Get("user_id")
        gotRole = c.Get("role")
        return nil
    }
    require.NoError(t, JWTAuth(secret)(next)(c))
    assert.Equal(t, "42", gotUser)
    assert.Equal(t, "CUSTOMER", gotRole)
}

func TestJWTAuthRejectsMissingToken(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)

    next := func(echo.Context) error { t.Fatal("next should not run"); return nil }
    require.NoError(t, JWTAuth("s")(next)(c))
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
    raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "42"}).SignedString([]byte("other"))
    require.NoError(t, err)

    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
    req.Header.Set("Authorization", "Bearer "+raw)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)

    next := func(echo.Context) error { t.Fatal("next should not run"); return nil }
    require.NoError(t, JWTAuth("s")(next)(c))
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
