package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"willdraft-go/chatbot"
	"willdraft-go/config"
	"willdraft-go/database"
	"willdraft-go/document"
	"willdraft-go/lifecycle"
	"willdraft-go/store"
	"willdraft-go/utils"
	"willdraft-go/will"
	"willdraft-go/wizard"
)

const adminCode = "let-me-in"

func TestMain(m *testing.M) {
	if err := utils.InitializeEncryption("0123456789abcdef0123456789abcdef"); err != nil {
		panic(err)
	}
	if err := utils.InitializeJWT("a-test-secret-that-is-long-enough", time.Hour); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type echoBot struct{}

func (echoBot) Ask(_ context.Context, q string) chatbot.Reply {
	if strings.TrimSpace(q) == "" {
		return chatbot.Reply{Response: chatbot.InvalidInputReply}
	}
	return chatbot.Reply{Response: "echo: " + q}
}

type testServer struct {
	t      *testing.T
	router *mux.Router
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.Initialize("sqlite", filepath.Join(t.TempDir(), "api.db"), "production")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	log := zaptest.NewLogger(t)
	cfg := &config.Config{AdminCode: adminCode, DashboardPath: "/dashboard"}
	drafts := store.New(db, log)
	objects, err := document.NewDirStore(t.TempDir())
	require.NoError(t, err)

	h := NewHandlers(Deps{
		DB:        db,
		Config:    cfg,
		Log:       log,
		Store:     drafts,
		Lifecycle: lifecycle.NewManager(db, drafts, log),
		Navigator: wizard.NewNavigator(drafts, cfg.DashboardPath, log),
		Exporter:  document.NewExporter(db, objects, document.PDFWriter{}, log),
		Chatbot:   echoBot{},
	})
	h.now = func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }

	r := mux.NewRouter()
	h.Routes(r)
	return &testServer{t: t, router: r}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

// signUp registers and logs in a user, returning the bearer token.
func (s *testServer) signUp(email, phone, code string) string {
	s.t.Helper()
	rr := s.do(http.MethodPost, "/api/register", "", map[string]string{
		"email": email, "phone": phone, "password": "s3cret-pass",
		"first_name": "Meera", "last_name": "Iyer", "admin_code": code,
	})
	require.Equal(s.t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.do(http.MethodPost, "/api/login", "", map[string]string{"email": email, "password": "s3cret-pass"})
	require.Equal(s.t, http.StatusOK, rr.Code, rr.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	decode(s.t, rr, &resp)
	return resp.Token
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodPost, "/api/register", "", map[string]string{"email": "bad", "phone": "12"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	token := s.signUp("meera@example.com", "9876543210", "")

	rr = s.do(http.MethodPost, "/api/register", "", map[string]string{
		"email": "meera@example.com", "phone": "9876543211", "password": "s3cret-pass",
		"first_name": "Meera", "last_name": "Iyer",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = s.do(http.MethodPost, "/api/login", "", map[string]string{"email": "meera@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(http.MethodGet, "/api/user/profile", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")

	rr = s.do(http.MethodPut, "/api/user/profile", token, map[string]string{"last_name": "Rao"})
	require.Equal(t, http.StatusOK, rr.Code)
	var user struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	decode(t, rr, &user)
	assert.Equal(t, "Meera", user.FirstName)
	assert.Equal(t, "Rao", user.LastName)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/draft", "", nil).Code)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	user := s.signUp("meera@example.com", "9876543210", "")
	admin := s.signUp("ops@example.com", "9876543212", adminCode)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/admin/users", user, nil).Code)

	rr := s.do(http.MethodGet, "/api/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var users []map[string]interface{}
	decode(t, rr, &users)
	assert.Len(t, users, 2)

	rr = s.do(http.MethodGet, "/api/admin/audit-logs?action=LOGIN", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var logs []map[string]interface{}
	decode(t, rr, &logs)
	assert.Len(t, logs, 2)

	rr = s.do(http.MethodPost, "/api/register", "", map[string]string{
		"email": "x@example.com", "phone": "9876543213", "password": "s3cret-pass",
		"first_name": "Xavier", "last_name": "Lobo", "admin_code": "guess",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// buildDraft stores the Jane Doe scenario through the item endpoints and
// returns the asset and beneficiary ids.
func buildDraft(t *testing.T, s *testServer, token string) (assetID, benID string) {
	t.Helper()
	rr := s.do(http.MethodPut, "/api/draft/sections/personalInfo", token, map[string]string{
		"fullName": "Meera Iyer", "fatherName": "R Iyer", "dateOfBirth": "1970-05-20",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(http.MethodPost, "/api/draft/items/assets", token, map[string]interface{}{
		"type": "real_estate", "description": "Flat in Pune", "value": 500000,
		"details": map[string]string{"propertyType": "residential", "address": "12 MG Road, Pune"},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var asset struct {
		ID    string `json:"id"`
		Value string `json:"value"`
	}
	decode(t, rr, &asset)
	require.NotEmpty(t, asset.ID)
	assert.Equal(t, "500000", asset.Value)

	rr = s.do(http.MethodPost, "/api/draft/items/beneficiaries", token, map[string]string{
		"name": "Jane Doe", "relationship": "Friend",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var ben struct {
		ID string `json:"id"`
	}
	decode(t, rr, &ben)
	return asset.ID, ben.ID
}

func TestDraftEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp("meera@example.com", "9876543210", "")

	rr := s.do(http.MethodGet, "/api/draft", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"assets":[]`)
	assert.Contains(t, rr.Body.String(), `"degraded":false`)

	assetID, benID := buildDraft(t, s, token)

	rr = s.do(http.MethodGet, "/api/draft/sections/personalInfo", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var pi map[string]interface{}
	decode(t, rr, &pi)
	assert.Equal(t, "Meera Iyer", pi["fullName"])
	assert.Contains(t, pi, "aadhaar", "defaults fill unsaved fields")

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/draft/sections/nope", token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/draft/items/executor", token, map[string]string{}).Code)

	rr = s.do(http.MethodPost, "/api/draft/items/assets", token, map[string]interface{}{"type": "vehicle", "description": "Car", "value": "1"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// allocation rule
	rr = s.do(http.MethodPost, "/api/draft/items/allocations", token, map[string]interface{}{
		"assetId": assetID, "beneficiaryId": benID, "percentage": 60,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var alloc struct {
		ID string `json:"id"`
	}
	decode(t, rr, &alloc)

	rr = s.do(http.MethodPost, "/api/draft/items/allocations", token, map[string]interface{}{
		"assetId": assetID, "beneficiaryId": benID, "percentage": 41,
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var errResp ErrorResponse
	decode(t, rr, &errResp)
	assert.Contains(t, errResp.Details, "percentage")

	rr = s.do(http.MethodPut, "/api/draft/items/allocations/"+alloc.ID, token, map[string]interface{}{
		"assetId": assetID, "beneficiaryId": benID, "percentage": 100,
	})
	assert.Equal(t, http.StatusOK, rr.Code, "editing replaces the allocation's own share")

	rr = s.do(http.MethodPut, "/api/draft/items/allocations/"+alloc.ID, token, map[string]interface{}{
		"assetId": assetID, "beneficiaryId": benID, "percentage": 60,
	})
	require.Equal(t, http.StatusOK, rr.Code)

	// spouse appears as an option once family details say married
	rr = s.do(http.MethodPut, "/api/draft/sections/familyDetails", token, map[string]interface{}{
		"maritalStatus": "married", "spouseName": "Asha Rao",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = s.do(http.MethodGet, "/api/draft/beneficiary-options", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var opts []struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}
	decode(t, rr, &opts)
	require.Len(t, opts, 2)
	assert.Equal(t, benID, opts[0].ID)
	assert.Equal(t, "spouse-asha-rao", opts[1].ID)
	assert.Equal(t, "Asha Rao (Spouse)", opts[1].Label)

	rr = s.do(http.MethodGet, "/api/draft/review", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var review struct {
		Allocations []struct {
			AssetName       string `json:"assetName"`
			BeneficiaryName string `json:"beneficiaryName"`
		} `json:"allocations"`
		Complete bool              `json:"complete"`
		Errors   map[string]string `json:"errors"`
	}
	decode(t, rr, &review)
	require.Len(t, review.Allocations, 1)
	assert.Equal(t, "Flat in Pune", review.Allocations[0].AssetName)
	assert.Equal(t, "Jane Doe", review.Allocations[0].BeneficiaryName)
	assert.False(t, review.Complete)
	assert.Contains(t, review.Errors, "personalInfo.aadhaar")

	rr = s.do(http.MethodGet, "/api/draft/preview?format=text", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Jane Doe")
	assert.Contains(t, rr.Body.String(), "60%")

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/draft/items/allocations/"+alloc.ID, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/api/draft/items/allocations/"+alloc.ID, token, nil).Code)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/draft", token, nil).Code)
	rr = s.do(http.MethodGet, "/api/draft/items/assets", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestWizardEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp("meera@example.com", "9876543210", "")

	rr := s.do(http.MethodGet, "/api/wizard/steps", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var steps []stepView
	decode(t, rr, &steps)
	require.Len(t, steps, len(wizard.Steps))
	assert.Equal(t, wizard.StepReview, steps[6].Step)

	rr = s.do(http.MethodPost, "/api/wizard/family-details/next", token, map[string]string{"maritalStatus": "married"})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var out wizard.Outcome
	decode(t, rr, &out)
	assert.False(t, out.Advanced)
	assert.Contains(t, out.Errors, "spouseName")

	rr = s.do(http.MethodPost, "/api/wizard/family-details/next", token, map[string]string{"maritalStatus": "single"})
	require.Equal(t, http.StatusOK, rr.Code)
	out = wizard.Outcome{}
	decode(t, rr, &out)
	assert.True(t, out.Advanced)
	assert.Equal(t, wizard.StepAssets, out.Step)

	rr = s.do(http.MethodPost, "/api/wizard/assets/previous", token, "not json")
	require.Equal(t, http.StatusOK, rr.Code)
	out = wizard.Outcome{}
	decode(t, rr, &out)
	assert.Equal(t, wizard.StepFamilyDetails, out.Step)

	rr = s.do(http.MethodPost, "/api/wizard/executor/save-exit", token, map[string]string{"city": "Pune"})
	require.Equal(t, http.StatusOK, rr.Code)
	out = wizard.Outcome{}
	decode(t, rr, &out)
	assert.Equal(t, "/dashboard", out.Route)

	rr = s.do(http.MethodGet, "/api/wizard/executor", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"city":"Pune"`)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/wizard/payment/next", token, "{}").Code)
}

func TestWillLifecycleEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp("meera@example.com", "9876543210", "")
	other := s.signUp("ravi@example.com", "9876543219", "")
	assetID, benID := buildDraft(t, s, token)
	rr := s.do(http.MethodPost, "/api/draft/items/allocations", token, map[string]interface{}{
		"assetId": assetID, "beneficiaryId": benID, "percentage": 60,
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	var first, second lifecycle.Result
	rr = s.do(http.MethodPost, "/api/wills", token, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	decode(t, rr, &first)
	rr = s.do(http.MethodPost, "/api/wills", token, map[string]bool{"clearDraft": true})
	require.Equal(t, http.StatusCreated, rr.Code)
	decode(t, rr, &second)
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 2, second.Version)

	rr = s.do(http.MethodGet, "/api/wills", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []map[string]interface{}
	decode(t, rr, &list)
	require.Len(t, list, 2)
	assert.EqualValues(t, 2, list[0]["version"])

	rr = s.do(http.MethodGet, "/api/draft/items/assets", token, nil)
	assert.JSONEq(t, `[]`, rr.Body.String(), "draft cleared after second finalize")

	rr = s.do(http.MethodGet, "/api/wills/"+first.WillID+"/document?format=text", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Jane Doe")

	// owner checks
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/wills/"+first.WillID, other, nil).Code)
	rr = s.do(http.MethodPut, "/api/wills/"+first.WillID, other, map[string]interface{}{})
	require.Equal(t, http.StatusNotFound, rr.Code)
	var errResp ErrorResponse
	decode(t, rr, &errResp)
	assert.Equal(t, lifecycle.MsgUpdateFailed, errResp.Error)

	rr = s.do(http.MethodPut, "/api/wills/"+first.WillID, token, map[string]interface{}{
		"personalInfo": map[string]string{"fullName": "Meera R Iyer"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = s.do(http.MethodGet, "/api/wills/"+first.WillID, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var fw lifecycle.Will
	decode(t, rr, &fw)
	assert.Equal(t, 1, fw.Version)
	assert.Equal(t, "Meera R Iyer", fw.Draft.PersonalInfo.FullName)

	// export and download
	rr = s.do(http.MethodPost, "/api/wills/"+second.WillID+"/export", token, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var exp document.ExportResult
	decode(t, rr, &exp)
	assert.Equal(t, "will-v2.pdf", exp.Export.Filename)
	assert.Equal(t, "/api/exports/"+exp.Export.ID+"/download", exp.URL)

	rr = s.do(http.MethodGet, exp.URL, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")))

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, exp.URL, other, nil).Code)
}

func TestChat(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp("meera@example.com", "9876543210", "")

	rr := s.do(http.MethodPost, "/api/chat", token, map[string]string{"query": "What is probate?"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"response":"echo: What is probate?"}`, rr.Body.String())

	rr = s.do(http.MethodPost, "/api/chat", token, map[string]string{"query": ""})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), chatbot.InvalidInputReply[:20])

	for _, body := range []string{`not json`, `{"query": 42}`, ``} {
		rr = s.do(http.MethodPost, "/api/chat", token, body)
		require.Equal(t, http.StatusOK, rr.Code, body)
		var reply chatbot.Reply
		decode(t, rr, &reply)
		assert.Equal(t, chatbot.InvalidInputReply, reply.Response, body)
	}
}

func TestDraftWrites_ClearStaleSpouse(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp("meera@example.com", "9876543210", "")

	spouse := func() string {
		rr := s.do(http.MethodGet, "/api/draft/sections/familyDetails", token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var f struct {
			SpouseName string `json:"spouseName"`
		}
		decode(t, rr, &f)
		return f.SpouseName
	}

	rr := s.do(http.MethodPut, "/api/draft/sections/familyDetails", token, map[string]string{"maritalStatus": "married", "spouseName": "Asha Rao"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, "Asha Rao", spouse())

	rr = s.do(http.MethodPut, "/api/draft/sections/familyDetails", token, map[string]string{"maritalStatus": "widowed"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "", spouse())

	rr = s.do(http.MethodPut, "/api/draft", token, map[string]interface{}{
		"familyDetails": map[string]string{"maritalStatus": "single", "spouseName": "Asha Rao"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "", spouse())
}

func TestGetDraft_BadlyTypedAutosaveKeepsDraft(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp("meera@example.com", "9876543210", "")

	rr := s.do(http.MethodPut, "/api/draft/sections/personalInfo", token, map[string]string{"fullName": "Meera Iyer"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = s.do(http.MethodPut, "/api/draft/sections/allocations", token, `[{"assetId":"a1","beneficiaryId":"b1","percentage":"60"}]`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(http.MethodGet, "/api/draft", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Draft    will.Draft `json:"draft"`
		Degraded bool       `json:"degraded"`
	}
	decode(t, rr, &resp)
	assert.False(t, resp.Degraded)
	assert.Equal(t, "Meera Iyer", resp.Draft.PersonalInfo.FullName)
	assert.Empty(t, resp.Draft.Allocations)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"healthy"`)
}
