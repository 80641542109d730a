package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/bet-intel/internal/api/handlers"
	"github.com/stitts-dev/bet-intel/internal/services"
)

type fakeHub struct {
	clients int
}

func (f *fakeHub) GetHubStats() map[string]interface{} {
	return map[string]interface{}{"total_clients": f.clients}
}

func (f *fakeHub) GetConnectionCount() int {
	return f.clients
}

func TestHealth_ReportsHubAndCircuitState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	breakers := services.NewCircuitBreakerService(5, time.Second, log)
	handler := handlers.NewHealthHandler(nil, nil, nil, nil, breakers, &fakeHub{clients: 3}, log)

	router := gin.New()
	router.GET("/health", handler.Health)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"status":"healthy"`)
	assert.Contains(t, body, `"total_clients":3`)
	assert.Contains(t, body, `"sportsfeed"`)
	assert.Contains(t, body, `"closed"`)
}

func TestHealth_ToleratesMissingCollaborators(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	handler := handlers.NewHealthHandler(nil, nil, nil, nil, nil, nil, log)

	router := gin.New()
	router.GET("/health", handler.Health)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "circuits")
}
