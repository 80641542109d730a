package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/bet-intel/internal/api/handlers"
	"github.com/stitts-dev/bet-intel/internal/engine"
	"github.com/stitts-dev/bet-intel/internal/models"
	"github.com/stitts-dev/bet-intel/internal/services"
)

func newAnalysisRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	// Stateless endpoints only, no storage or AI behind them.
	pipeline := services.NewPipelineService(nil, nil, nil, nil, log, engine.OddsPolicyFixed, 1.90)
	handler := handlers.NewAnalysisHandler(pipeline, nil, log)

	router := gin.New()
	router.POST("/analysis/preview", handler.PreviewAnalysis)
	router.POST("/analysis/alerts", handler.EvaluateAlerts)
	router.POST("/analysis/projection", handler.Projection)
	router.GET("/analysis/calibration", handler.GetCalibration)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestPreviewAnalysisScheduledMatch(t *testing.T) {
	router := newAnalysisRouter(t)

	recorder := postJSON(t, router, "/analysis/preview", map[string]interface{}{
		"match": map[string]interface{}{
			"sport":      "football",
			"home_team":  "Flamengo",
			"away_team":  "Palmeiras",
			"status":     "scheduled",
			"start_time": "2026-09-01T19:00:00Z",
		},
	})

	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		Data services.MatchAnalysis `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

	assert.Equal(t, 60, response.Data.Scout.Probability)
	assert.NotEmpty(t, response.Data.Fusion.Verdict)
	assert.NotNil(t, response.Data.Alerts)
}

func TestPreviewAnalysisRejectsIncompleteMatch(t *testing.T) {
	router := newAnalysisRouter(t)

	recorder := postJSON(t, router, "/analysis/preview", map[string]interface{}{
		"match": map[string]interface{}{
			"sport": "football",
		},
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestEvaluateAlertsEndpoint(t *testing.T) {
	router := newAnalysisRouter(t)

	recorder := postJSON(t, router, "/analysis/alerts", map[string]interface{}{
		"metrics": map[string]interface{}{
			"pressure": 150.0,
			"momentum": 50.0,
		},
	})

	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		Data struct {
			Alerts []string `json:"alerts"`
			Count  int      `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

	assert.Equal(t, 1, response.Data.Count)
	assert.Contains(t, response.Data.Alerts[0], "pressure")
}

func TestEvaluateAlertsMissingMetrics(t *testing.T) {
	router := newAnalysisRouter(t)

	recorder := postJSON(t, router, "/analysis/alerts", map[string]interface{}{})
	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		Data struct {
			Alerts []string `json:"alerts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

	require.Len(t, response.Data.Alerts, 1)
	assert.Equal(t, engine.MetricsUnavailableAlert, response.Data.Alerts[0])
}

func TestProjectionEndpoint(t *testing.T) {
	router := newAnalysisRouter(t)

	recorder := postJSON(t, router, "/analysis/projection", map[string]interface{}{
		"match_id":     "m1",
		"sport":        "football",
		"fusion_score": 80.0,
		"metrics": map[string]interface{}{
			"power":    50.0,
			"momentum": 60.0,
			"pace":     70.0,
			"risk":     30.0,
		},
	})

	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		Data engine.PredictionOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

	assert.InDelta(t, 1.4, response.Data.TotalGoals, 0.0001)
}

func TestProjectionEndpointRejectsMissingMetrics(t *testing.T) {
	router := newAnalysisRouter(t)

	recorder := postJSON(t, router, "/analysis/projection", map[string]interface{}{
		"match_id":     "m1",
		"sport":        "football",
		"fusion_score": 80.0,
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetCalibrationEndpoint(t *testing.T) {
	router := newAnalysisRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/analysis/calibration", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		Data engine.CalibrationConfig `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Contains(t, response.Data.Sports, models.SportFootball)
}
