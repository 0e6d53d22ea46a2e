package www

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JeanCaOLO/crossdoking/config"
	"github.com/JeanCaOLO/crossdoking/domain"
	"github.com/JeanCaOLO/crossdoking/engine"
	"github.com/JeanCaOLO/crossdoking/ingest"
	"github.com/JeanCaOLO/crossdoking/store"
)

type testServer struct {
	*httptest.Server
	eng *engine.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "www.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Defaults()
	cfg.Containers.RetryBackoff = 0
	cfg.Web.SessionSecret = "test-secret"
	eng := engine.New(engine.Config{AppConfig: cfg, DB: db, LogFunc: t.Logf})
	eng.Start()
	t.Cleanup(eng.Stop)

	router, stop := NewRouter(eng, t.Logf)
	t.Cleanup(stop)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, eng: eng}
}

// client returns an HTTP client with its own cookie jar, logged in when
// username is not empty.
func (ts *testServer) client(t *testing.T, username, password string) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	c := &http.Client{Jar: jar}
	if username != "" {
		resp := ts.do(t, c, http.MethodPost, "/login", map[string]string{"username": username, "password": password})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
	return c
}

func (ts *testServer) do(t *testing.T, c *http.Client, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func manifestUpload(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"E1", "P1", "R-01", "A1", "7790001", "Agua", 40, "S1", 40, "T1"},
		{"E1", "P1", "R-01", "A1", "7790001", "Agua", 60, "S2", 60, "T1"},
	}
	header := make([]any, len(ingest.Headers))
	for i, h := range ingest.Headers {
		header[i] = h
	}
	for i, row := range append([][]any{header}, rows...) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	xlsx, err := f.WriteToBuffer()
	require.NoError(t, err)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", "carga.xlsx")
	require.NoError(t, err)
	_, err = io.Copy(part, xlsx)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func (ts *testServer) importManifest(t *testing.T, c *http.Client) *ingest.ImportResult {
	t.Helper()
	body, contentType := manifestUpload(t)
	resp, err := c.Post(ts.URL+"/api/manifests", contentType, body)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[*ingest.ImportResult](t, resp)
}

func (ts *testServer) createOperator(t *testing.T, admin *http.Client, username, role string) {
	t.Helper()
	resp := ts.do(t, admin, http.MethodPost, "/api/operators", map[string]string{
		"username": username, "password": "secret", "role": role,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func TestLoginAndAuth(t *testing.T) {
	ts := newTestServer(t)

	anon := ts.client(t, "", "")
	resp := ts.do(t, anon, http.MethodGet, "/api/pallets", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, anon, http.MethodPost, "/login", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, anon, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	health := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, false, health["messaging"])

	admin := ts.client(t, "admin", "admin")
	resp = ts.do(t, admin, http.MethodGet, "/api/me", nil)
	me := decodeBody[principal](t, resp)
	assert.Equal(t, "admin", me.Username)
	assert.Equal(t, domain.RoleAdmin, me.Role)

	resp = ts.do(t, admin, http.MethodPost, "/logout", nil)
	resp.Body.Close()
	resp = ts.do(t, admin, http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestRoleChecks(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.client(t, "admin", "admin")
	ts.importManifest(t, admin)
	ts.createOperator(t, admin, "ana", domain.RoleOperator)
	ts.createOperator(t, admin, "audit", domain.RoleAuditor)

	resp := ts.do(t, admin, http.MethodPost, "/api/operators", map[string]string{
		"username": "ana", "password": "x", "role": domain.RoleOperator,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	auditor := ts.client(t, "audit", "secret")
	resp = ts.do(t, auditor, http.MethodGet, "/api/pallets/P1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = ts.do(t, auditor, http.MethodPost, "/api/pallets/P1/scan", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	op := ts.client(t, "ana", "secret")
	resp = ts.do(t, op, http.MethodPost, "/api/pallets/P1/scan", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = ts.do(t, op, http.MethodPost, "/api/pallets/P1/force-unlock", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// lock held by ana
	resp = ts.do(t, admin, http.MethodPost, "/api/pallets/P1/scan", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, admin, http.MethodPost, "/api/pallets/P1/force-unlock", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decodeBody[store.Pallet](t, resp)
	assert.Empty(t, p.LockedBy)
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.client(t, "admin", "admin")
	ts.importManifest(t, admin)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown pallet", http.MethodGet, "/api/pallets/NOPE", nil, http.StatusNotFound},
		{"confirm without lock", http.MethodPost, "/api/pallets/P1/confirm", map[string]string{"qty": "1"}, http.StatusConflict},
		{"bad container id", http.MethodGet, "/api/containers/abc/lines", nil, http.StatusBadRequest},
		{"containers need manifest", http.MethodGet, "/api/containers", nil, http.StatusBadRequest},
		{"unknown manifest", http.MethodGet, "/api/manifests/999", nil, http.StatusNotFound},
		{"bad body", http.MethodPost, "/api/pallets/P1/sku", "not-an-object", http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := ts.do(t, admin, tc.method, tc.path, tc.body)
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestDistributionFlow(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.client(t, "admin", "admin")
	imported := ts.importManifest(t, admin)
	assert.Equal(t, 2, imported.Lines)

	resp := ts.do(t, admin, http.MethodPost, "/api/pallets/P1/scan", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decodeBody[engine.PalletView](t, resp)
	assert.True(t, view.Available.Equal(decimal.NewFromInt(100)))

	resp = ts.do(t, admin, http.MethodPost, "/api/pallets/P1/sku", map[string]string{"code": "7790001"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sel := decodeBody[struct {
		SKU  string            `json:"sku"`
		Line *store.DemandLine `json:"line"`
	}](t, resp)
	assert.Equal(t, "A1", sel.SKU)
	assert.Equal(t, "S1", sel.Line.Destination)

	resp = ts.do(t, admin, http.MethodPost, "/api/pallets/P1/confirm", map[string]string{"qty": "40"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody[engine.ConfirmOutcome](t, resp)
	assert.NotEmpty(t, out.Result.ContainerCode)
	assert.True(t, out.Next.DestinationChanged)
	assert.Equal(t, "S2", out.Next.To)

	resp = ts.do(t, admin, http.MethodGet, "/api/containers/"+itoa(out.Result.ContainerID)+"/lines", nil)
	lines := decodeBody[[]store.ContainerLine](t, resp)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Qty.Equal(decimal.NewFromInt(40)))

	resp = ts.do(t, admin, http.MethodPost, "/api/containers/"+itoa(out.Result.ContainerID)+"/close", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, admin, http.MethodGet, "/api/containers?manifest_id="+itoa(imported.ManifestID)+"&status="+domain.ContainerClosed, nil)
	closed := decodeBody[[]store.Container](t, resp)
	require.Len(t, closed, 1)
	assert.Equal(t, "S1", closed[0].Destination)

	resp = ts.do(t, admin, http.MethodPost, "/api/container-lines/"+itoa(lines[0].ID)+"/reverse", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, admin, http.MethodPost, "/api/containers/"+closed[0].Code+"/dispatch", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c := decodeBody[store.Container](t, resp)
	assert.Equal(t, domain.ContainerDispatched, c.Status)

	resp = ts.do(t, admin, http.MethodGet, "/api/pallets/P1/audit", nil)
	audit := decodeBody[[]store.AuditEvent](t, resp)
	assert.NotEmpty(t, audit)

	dispatched, err := ts.eng.DB().GetContainerByCode(closed[0].Code)
	require.NoError(t, err)
	assert.Equal(t, domain.ContainerDispatched, dispatched.Status)
}

func TestTemplateDownload(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, ts.client(t, "", ""), http.MethodGet, "/api/template.xlsx", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Manifiesto")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, len(ingest.Headers), len(rows[0]))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.Errorf(domain.ErrValidation, "x")))
	assert.Equal(t, http.StatusConflict, statusFor(domain.ErrBlocked))
	assert.Equal(t, http.StatusConflict, statusFor(domain.ErrLockHeld))
	assert.Equal(t, http.StatusNotFound, statusFor(domain.ErrNoDemand))
	assert.Equal(t, http.StatusUnauthorized, statusFor(domain.RequireActor("")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(context.Canceled))
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
