package keywords_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ateesdalejr/podlistener/api/keywords"
	"github.com/ateesdalejr/podlistener/api/types"
	"github.com/ateesdalejr/podlistener/internal/database"
	"github.com/ateesdalejr/podlistener/internal/models"
	keywordsService "github.com/ateesdalejr/podlistener/internal/services/keywords"
)

type KeywordTestSuite struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
}

func setupKeywordTestSuite(t *testing.T) *KeywordTestSuite {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, db.AutoMigrate(&models.Keyword{}, &models.Mention{}))

	deps := &types.Dependencies{
		DB:             &database.DB{DB: db},
		KeywordService: keywordsService.NewService(keywordsService.NewRepository(db)),
	}

	router := gin.New()
	group := router.Group("/keywords")
	keywords.RegisterRoutes(group, deps)

	return &KeywordTestSuite{t: t, db: db, router: router}
}

func (suite *KeywordTestSuite) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(suite.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func TestCreateKeyword(t *testing.T) {
	suite := setupKeywordTestSuite(t)

	tests := []struct {
		name           string
		payload        map[string]interface{}
		expectedStatus int
	}{
		{
			name:           "defaults to contains",
			payload:        map[string]interface{}{"phrase": "datadog"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "exact word",
			payload:        map[string]interface{}{"phrase": "go", "match_type": "exact_word"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "regex",
			payload:        map[string]interface{}{"phrase": `kubernetes|k8s`, "match_type": "regex"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid regex rejected",
			payload:        map[string]interface{}{"phrase": `([`, "match_type": "regex"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown match type rejected",
			payload:        map[string]interface{}{"phrase": "x", "match_type": "fuzzy"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "duplicate phrase conflicts",
			payload:        map[string]interface{}{"phrase": "datadog"},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "missing phrase rejected",
			payload:        map[string]interface{}{},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := suite.do(http.MethodPost, "/keywords", tt.payload)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}
}

func TestListKeywords(t *testing.T) {
	suite := setupKeywordTestSuite(t)

	require.Equal(t, http.StatusCreated,
		suite.do(http.MethodPost, "/keywords", map[string]interface{}{"phrase": "datadog"}).Code)

	w := suite.do(http.MethodGet, "/keywords", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp types.KeywordsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "datadog", resp.Keywords[0].Phrase)
	assert.Equal(t, models.MatchTypeContains, resp.Keywords[0].MatchType)
}

func TestUpdateKeyword(t *testing.T) {
	suite := setupKeywordTestSuite(t)

	w := suite.do(http.MethodPost, "/keywords", map[string]interface{}{"phrase": "datadog"})
	require.Equal(t, http.StatusCreated, w.Code)
	var keyword models.Keyword
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &keyword))

	w = suite.do(http.MethodPut, "/keywords/"+keyword.ID,
		map[string]interface{}{"match_type": "exact_word"})
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.Keyword
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, models.MatchTypeExactWord, updated.MatchType)
	assert.Equal(t, "datadog", updated.Phrase)

	// Re-validation still applies on update
	w = suite.do(http.MethodPut, "/keywords/"+keyword.ID,
		map[string]interface{}{"match_type": "fuzzy"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteKeyword(t *testing.T) {
	suite := setupKeywordTestSuite(t)

	w := suite.do(http.MethodPost, "/keywords", map[string]interface{}{"phrase": "datadog"})
	require.Equal(t, http.StatusCreated, w.Code)
	var keyword models.Keyword
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &keyword))

	assert.Equal(t, http.StatusOK, suite.do(http.MethodDelete, "/keywords/"+keyword.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, suite.do(http.MethodDelete, "/keywords/"+keyword.ID, nil).Code)
}
