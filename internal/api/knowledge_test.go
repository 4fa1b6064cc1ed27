package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"counsel-backend/internal/database"
	pkgapi "counsel-backend/pkg/api"
)

func newKnowledgeRouter(t *testing.T) (chi.Router, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.GetMigrator(db).Migrate())

	router := chi.NewRouter()
	NewKnowledgeService(db).AddRoutes(router)
	return router, db
}

func seedRecord(t *testing.T, db *gorm.DB, userID, emotion string) {
	t.Helper()
	fields, err := json.Marshal(map[string]*string{
		"time": nil, "place": nil, "person": nil,
		"emotion": &emotion, "stress_factor": nil,
	})
	require.NoError(t, err)
	require.NoError(t, db.Create(&database.KnowledgeRecord{
		UserID:    userID,
		Fields:    datatypes.JSON(fields),
		CreatedAt: time.Now().UTC(),
	}).Error)
}

func getJSON[T any](t *testing.T, router chi.Router, url string) (int, T) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var out T
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func TestGetKnowledge(t *testing.T) {
	router, db := newKnowledgeRouter(t)
	seedRecord(t, db, "U1", "不安")
	seedRecord(t, db, "U2", "喜び")
	seedRecord(t, db, "U1", "疲労")

	code, resp := getJSON[pkgapi.KnowledgeResponse](t, router, "/knowledge")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Records, 3)
	// Records come back in insertion order.
	assert.Equal(t, "U1", resp.Records[0].UserID)
	assert.Equal(t, "U2", resp.Records[1].UserID)

	var fields map[string]*string
	require.NoError(t, json.Unmarshal(resp.Records[0].Fields, &fields))
	require.NotNil(t, fields["emotion"])
	assert.Equal(t, "不安", *fields["emotion"])
	assert.Nil(t, fields["place"])
}

func TestGetKnowledgeFiltersAndLimits(t *testing.T) {
	router, db := newKnowledgeRouter(t)
	seedRecord(t, db, "U1", "不安")
	seedRecord(t, db, "U2", "喜び")
	seedRecord(t, db, "U1", "疲労")

	code, resp := getJSON[pkgapi.KnowledgeResponse](t, router, "/knowledge?user_id=U1")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Records, 2)
	for _, rec := range resp.Records {
		assert.Equal(t, "U1", rec.UserID)
	}

	code, resp = getJSON[pkgapi.KnowledgeResponse](t, router, "/knowledge?user_id=U1&limit=1")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Records, 1)
}

func TestGetKnowledgeEmpty(t *testing.T) {
	router, _ := newKnowledgeRouter(t)

	code, resp := getJSON[pkgapi.KnowledgeResponse](t, router, "/knowledge")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp.Records)
}

func TestGetConversation(t *testing.T) {
	router, db := newKnowledgeRouter(t)

	history, err := json.Marshal([]pkgapi.MessageItem{
		{Role: "system", Content: "directive"},
		{Role: "user", Content: "辛い日だった"},
		{Role: "agent", Content: "どうしたの？"},
	})
	require.NoError(t, err)
	require.NoError(t, db.Create(&database.Conversation{
		UserID:    "U1",
		History:   datatypes.JSON(history),
		UpdatedAt: time.Now().UTC(),
	}).Error)

	code, resp := getJSON[pkgapi.ConversationResponse](t, router, "/conversations/U1")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "U1", resp.UserID)
	require.Len(t, resp.Messages, 3)
	assert.Equal(t, "user", resp.Messages[1].Role)
	assert.Equal(t, "辛い日だった", resp.Messages[1].Content)
}

func TestGetConversationNotFound(t *testing.T) {
	router, _ := newKnowledgeRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/conversations/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetKnowledgeDefaultLimit(t *testing.T) {
	router, db := newKnowledgeRouter(t)
	for i := 0; i < defaultKnowledgeLimit+5; i++ {
		seedRecord(t, db, fmt.Sprintf("U%d", i), "不安")
	}

	code, resp := getJSON[pkgapi.KnowledgeResponse](t, router, "/knowledge")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp.Records, defaultKnowledgeLimit)
}
