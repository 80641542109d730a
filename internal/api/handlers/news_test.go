package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/bet-intel/internal/api/handlers"
	"github.com/stitts-dev/bet-intel/internal/engine"
)

func newNewsRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	// Classification endpoint needs neither storage nor cache.
	handler := handlers.NewNewsHandler(nil, nil, log)

	router := gin.New()
	router.POST("/news/classify", handler.ClassifyNews)
	return router
}

func TestClassifyNewsEndpoint(t *testing.T) {
	router := newNewsRouter(t)

	recorder := postJSON(t, router, "/news/classify", map[string]interface{}{
		"text": "Artilheiro sofre lesao grave no treino e desfalca o time por dois meses segundo o departamento medico do clube informou em nota oficial divulgada",
	})

	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		Data struct {
			Classification engine.NewsClassification `json:"classification"`
			ImpactSignal   float64                   `json:"impact_signal"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

	assert.Equal(t, engine.CategoryInjury, response.Data.Classification.Category)
	assert.Negative(t, response.Data.ImpactSignal)
}

func TestClassifyNewsEndpointEmptyText(t *testing.T) {
	router := newNewsRouter(t)

	recorder := postJSON(t, router, "/news/classify", map[string]interface{}{"text": ""})
	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		Data struct {
			Classification engine.NewsClassification `json:"classification"`
			ImpactSignal   float64                   `json:"impact_signal"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

	assert.Equal(t, engine.CategoryNeutral, response.Data.Classification.Category)
	assert.Zero(t, response.Data.Classification.NewsScore)
	assert.Zero(t, response.Data.ImpactSignal)
}
