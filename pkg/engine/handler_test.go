package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockstack/mockstack/internal/storage"
	"github.com/mockstack/mockstack/pkg/mockapi"
	"github.com/mockstack/mockstack/pkg/quota"
	"github.com/mockstack/mockstack/pkg/upload"
)

// stubUploader returns canned metadata without touching object storage.
type stubUploader struct {
	fail bool
}

func (u *stubUploader) Upload(_ context.Context, in upload.Input) (*mockapi.UploadedFile, error) {
	if u.fail {
		return nil, context.DeadlineExceeded
	}
	return &mockapi.UploadedFile{
		FieldName:    in.FieldName,
		FileType:     in.ContentType,
		FileName:     in.Filename,
		OriginalName: in.Filename,
		URL:          "http://files.test/" + in.Filename,
		SecureURL:    "https://files.test/" + in.Filename,
		PublicID:     "pub-" + in.FieldName,
		FileSize:     int64(len(in.Data)),
		UploadedAt:   time.Now().UTC(),
	}, nil
}

type fixture struct {
	handler     *Handler
	accounts    *storage.MemoryAccountStore
	submissions *storage.MemorySubmissionStore
}

func newFixture(t *testing.T, project *mockapi.Project, account *mockapi.Account) *fixture {
	t.Helper()
	projects := storage.NewMemoryProjectStore()
	require.NoError(t, projects.Put(context.Background(), project))

	accounts := storage.NewMemoryAccountStore()
	require.NoError(t, accounts.Save(context.Background(), account))

	submissions := storage.NewMemorySubmissionStore()
	h := NewHandler(projects, accounts, submissions, &stubUploader{})
	return &fixture{handler: h, accounts: accounts, submissions: submissions}
}

func userProject() *mockapi.Project {
	return &mockapi.Project{
		ID:      "p1",
		Name:    "myproj",
		OwnerID: "u1",
		Endpoints: []mockapi.Endpoint{
			{
				ID:     "ep-post",
				Path:   "/users",
				Method: http.MethodPost,
				Fields: []mockapi.FieldDef{
					{Name: "name", Type: mockapi.FieldString, Required: true},
					{Name: "email", Type: mockapi.FieldString, Required: true},
				},
			},
			{
				ID:         "ep-list",
				Path:       "/users",
				Method:     http.MethodGet,
				DataSource: "ep-post",
				Pagination: mockapi.PaginationConfig{Enabled: true, DefaultLimit: 10, MaxLimit: 50},
			},
			{
				ID:             "ep-avg",
				Path:           "/stats",
				Method:         http.MethodGet,
				DataSource:     "ep-post",
				DataSourceMode: mockapi.ModeAggregator,
				Aggregator:     mockapi.AggAvg,
				SelectedFields: []string{"age"},
			},
			{
				ID:         "ep-static",
				Path:       "/ping",
				Method:     http.MethodGet,
				Response:   `{"pong":true}`,
				StatusCode: http.StatusOK,
			},
		},
	}
}

func freeAccount() *mockapi.Account {
	return &mockapi.Account{ID: "u1", Tier: mockapi.TierFree}
}

func do(f *fixture, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t, userProject(), freeAccount())
	rec := do(f, http.MethodGet, HealthPath, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestNotFoundEchoesPathAndMethod(t *testing.T) {
	f := newFixture(t, userProject(), freeAccount())
	rec := do(f, http.MethodGet, "/nope/users", "", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Endpoint not found", body["error"])
	assert.Equal(t, "/nope/users", body["path"])
	assert.Equal(t, "GET", body["method"])
}

func TestUnauthorizedResponseShape(t *testing.T) {
	project := userProject()
	project.Authentication = mockapi.AuthSettings{Enabled: true, Token: "s3cret"}
	f := newFixture(t, project, freeAccount())

	rec := do(f, http.MethodGet, "/myproj/ping", "", nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Authentication required", body["error"])
	assert.Equal(t, "Authorization", body["requiredHeader"])
	assert.Equal(t, "Bearer <token>", body["tokenFormat"])
	assert.NotContains(t, rec.Body.String(), "s3cret")
}

func TestAuthorizedRequestPasses(t *testing.T) {
	project := userProject()
	project.Authentication = mockapi.AuthSettings{Enabled: true, Token: "s3cret"}
	f := newFixture(t, project, freeAccount())

	req := httptest.NewRequest(http.MethodGet, "/myproj/ping", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestStaticResponse(t *testing.T) {
	f := newFixture(t, userProject(), freeAccount())
	rec := do(f, http.MethodGet, "/myproj/ping", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["pong"])
}

func TestSubmissionJSON(t *testing.T) {
	f := newFixture(t, userProject(), freeAccount())

	rec := do(f, http.MethodPost, "/myproj/users", "application/json",
		[]byte(`{"name":"Ada","email":"ada@example.com"}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Data submitted successfully", body["message"])
	assert.NotEmpty(t, body["id"])

	stored, err := f.submissions.ListByEndpoint(context.Background(), "p1", "ep-post")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Ada", stored[0].Data["name"])

	// Successful write charges the storage ledger
	acct, err := f.accounts.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Positive(t, acct.StorageUsage)
}

func TestSubmissionValidationFailure(t *testing.T) {
	f := newFixture(t, userProject(), freeAccount())

	rec := do(f, http.MethodPost, "/myproj/users", "application/json",
		[]byte(`{"name":"Ada"}`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Validation failed", body["error"])

	details, ok := body["details"].([]any)
	require.True(t, ok, "details should be a message list")
	require.Len(t, details, 1)
	assert.Contains(t, details[0], "email")

	stored, err := f.submissions.ListByEndpoint(context.Background(), "p1", "ep-post")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestSubmissionInvalidJSON(t *testing.T) {
	f := newFixture(t, userProject(), freeAccount())

	rec := do(f, http.MethodPost, "/myproj/users", "application/json", []byte(`{oops`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON", decodeBody(t, rec)["message"])
}

func TestSubmissionMultipartWithFile(t *testing.T) {
	project := userProject()
	project.Endpoints[0].Fields = append(project.Endpoints[0].Fields,
		mockapi.FieldDef{Name: "avatar", Type: mockapi.FieldImage})
	f := newFixture(t, project, freeAccount())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Ada"))
	require.NoError(t, mw.WriteField("email", "ada@example.com"))
	fw, err := mw.CreateFormFile("avatar", "a.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake png bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := do(f, http.MethodPost, "/myproj/users", mw.FormDataContentType(), buf.Bytes())

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)

	files, ok := body["files"].([]any)
	require.True(t, ok, "files missing from response")
	require.Len(t, files, 1)

	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	meta, ok := data["avatar"].(map[string]any)
	require.True(t, ok, "avatar field should carry upload metadata")
	assert.Equal(t, "a.png", meta["fileName"])
	assert.Equal(t, "https://files.test/a.png", meta["secureUrl"])
}

func TestRateLimitSecondImmediateRequest(t *testing.T) {
	f := newFixture(t, userProject(), freeAccount())

	first := do(f, http.MethodGet, "/myproj/ping", "", nil)
	require.Equal(t, http.StatusOK, first.Code)

	second := do(f, http.MethodGet, "/myproj/ping", "", nil)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	body := decodeBody(t, second)
	assert.Equal(t, "Rate limit exceeded", body["error"])
	assert.Contains(t, body["message"], "Try again")
}

func TestDailyLimitExhausted(t *testing.T) {
	acct := freeAccount()
	now := time.Now()
	acct.LastRequestReset = now
	acct.DailyRequests = map[string]int{quota.WindowKey(now): 300}
	f := newFixture(t, userProject(), acct)

	rec := do(f, http.MethodGet, "/myproj/ping", "", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Daily request limit exceeded", decodeBody(t, rec)["error"])
}

func TestStorageCapBlocksWriteAllowsRead(t *testing.T) {
	acct := freeAccount()
	acct.StorageUsage = 10 << 20 // at the free cap
	f := newFixture(t, userProject(), acct)

	wr := do(f, http.MethodPost, "/myproj/users", "application/json",
		[]byte(`{"name":"Ada","email":"ada@example.com"}`))
	require.Equal(t, http.StatusBadRequest, wr.Code)
	body := decodeBody(t, wr)
	assert.Equal(t, "Storage limit exceeded", body["error"])
	assert.Equal(t, true, body["readOnlyMode"])

	// Fresh fixture so the rate limiter does not interfere
	f2 := newFixture(t, userProject(), acct)
	rd := do(f2, http.MethodGet, "/myproj/users", "", nil)
	require.Equal(t, http.StatusOK, rd.Code)
}

func TestDataViewFilterProjectionPagination(t *testing.T) {
	f := newFixture(t, userProject(), freeAccount())

	seed := []map[string]any{
		{"name": "a", "status": "active", "age": float64(30)},
		{"name": "b", "status": "inactive", "age": float64(50)},
	}
	for i, data := range seed {
		require.NoError(t, f.submissions.Create(context.Background(), &mockapi.Submission{
			ID: string(rune('a' + i)), EndpointID: "ep-post", ProjectID: "p1", Data: data,
		}))
	}

	rec := do(f, http.MethodGet, "/myproj/users", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)

	data, ok := body["data"].([]any)
	require.True(t, ok)
	assert.Len(t, data, 2)

	meta, ok := body["pagination"].(map[string]any)
	require.True(t, ok, "pagination meta expected")
	assert.Equal(t, float64(2), meta["total"])
	assert.Equal(t, float64(10), meta["limit"])
	assert.Equal(t, false, meta["hasMore"])
}

func TestDataViewLimitClamped(t *testing.T) {
	f := newFixture(t, userProject(), freeAccount())

	rec := do(f, http.MethodGet, "/myproj/users?limit=1000", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	meta := decodeBody(t, rec)["pagination"].(map[string]any)
	assert.Equal(t, float64(50), meta["limit"])
}

func TestDataViewAggregator(t *testing.T) {
	f := newFixture(t, userProject(), freeAccount())

	for i, age := range []float64{30, 50} {
		require.NoError(t, f.submissions.Create(context.Background(), &mockapi.Submission{
			ID: string(rune('a' + i)), EndpointID: "ep-post", ProjectID: "p1",
			Data: map[string]any{"age": age},
		}))
	}

	rec := do(f, http.MethodGet, "/myproj/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data, ok := decodeBody(t, rec)["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(40), data["age"])
}

func TestDataViewDanglingSourceEmpty(t *testing.T) {
	project := userProject()
	project.Endpoints[1].DataSource = "gone"
	f := newFixture(t, project, freeAccount())

	rec := do(f, http.MethodGet, "/myproj/users", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data, ok := decodeBody(t, rec)["data"].([]any)
	require.True(t, ok)
	assert.Empty(t, data)
}

func TestUploadFailureReportedPerField(t *testing.T) {
	project := userProject()
	project.Endpoints[0].Fields = append(project.Endpoints[0].Fields,
		mockapi.FieldDef{Name: "avatar", Type: mockapi.FieldImage})

	f := newFixture(t, project, freeAccount())
	f.handler.pipeline = upload.NewPipeline(&stubUploader{fail: true})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Ada"))
	require.NoError(t, mw.WriteField("email", "ada@example.com"))
	fw, err := mw.CreateFormFile("avatar", "a.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := do(f, http.MethodPost, "/myproj/users", mw.FormDataContentType(), buf.Bytes())

	require.Equal(t, http.StatusBadRequest, rec.Code)
	details := decodeBody(t, rec)["details"].([]any)
	require.NotEmpty(t, details)
	assert.True(t, strings.Contains(details[0].(string), "avatar"))
}
