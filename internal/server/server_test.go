package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/recon"
	"github.com/sells-group/recon-cli/internal/store"
)

func sourceRecord(id string, src model.Source, fields map[model.FieldKey]string) *model.SourceRecord {
	rec := model.NewSourceRecord(id, src)
	for k, v := range fields {
		rec.Fields[k] = model.ExtractionField{Value: model.StringPtr(v)}
	}
	return rec
}

func fixtureEngine() *recon.Engine {
	d := model.NewDataset()
	d.Add(sourceRecord("94459227", model.SourceLedger, map[model.FieldKey]string{
		model.FieldDate: "2024-01-10", model.FieldAmount: "900",
	}))
	d.Add(sourceRecord("94459227", model.SourceInvoice, map[model.FieldKey]string{
		model.FieldDate: "2024-01-10", model.FieldAmount: "950",
	}))
	bl := sourceRecord("94459227", model.SourceBL, map[model.FieldKey]string{
		model.FieldDate: "2024-01-11",
	})
	bl.Coordinates[model.FieldDate] = model.Coordinates{10, 10, 20, 200}
	d.Add(bl)
	return recon.New(d, "s1")
}

func newTestServer(t *testing.T, st store.Store, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(fixtureEngine(), st, opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rdr)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") && len(data) > 0 && data[0] == '{' {
		require.NoError(t, json.Unmarshal(data, &out))
	}
	return resp, out
}

func TestHealth(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil, Options{})

	resp, body := do(t, http.MethodGet, ts.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestGetDocument(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil, Options{})

	resp, body := do(t, http.MethodGet, ts.URL+"/api/documents/94459227", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "94459227", body["document_id"])
	cells := body["cells"].([]any)
	date := cells[0].(map[string]any)
	assert.Equal(t, "date", date["field"])
	assert.Equal(t, "mismatch", date["verdict"])

	resp, body = do(t, http.MethodGet, ts.URL+"/api/documents/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["error"], "unknown document")
}

func TestListDocuments(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil, Options{})

	resp, err := http.Get(ts.URL + "/api/documents")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []recon.Row
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "94459227", rows[0].DocumentID)
}

func TestCorrectionLifecycle(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t, nil, Options{})
	url := ts.URL + "/api/documents/94459227/corrections/amount"

	resp, body := do(t, http.MethodPut, url, `{"source":"invoice","value":"900"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["active"])
	eff := body["effective"].(map[string]any)
	assert.Equal(t, "900", eff["value"])
	assert.Equal(t, true, eff["is_corrected"])

	// machine verdict still reflects raw values
	v, err := srv.engine.MatchStatus("94459227", model.FieldAmount)
	require.NoError(t, err)
	assert.Equal(t, model.VerdictMismatch, v)

	resp, body = do(t, http.MethodDelete, url+"?source=invoice", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	eff = body["effective"].(map[string]any)
	assert.Equal(t, "950", eff["value"])
	assert.Equal(t, false, eff["is_corrected"])
}

func TestCorrection_LastWriteWinsAcrossSources(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t, nil, Options{})
	url := ts.URL + "/api/documents/94459227/corrections/date"

	resp, _ := do(t, http.MethodPut, url, `{"source":"invoice","value":"2024-02-01"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, http.MethodPut, url, `{"source":"bl","value":"2024-03-01"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	snap := srv.Snapshot()
	require.Len(t, snap.Corrections, 1)
	assert.Equal(t, model.SourceBL, snap.Corrections[0].Source)
	assert.Equal(t, "2024-03-01", snap.Corrections[0].Value)

	resp, _ = do(t, http.MethodDelete, url+"?source=fax", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Len(t, srv.Snapshot().Corrections, 1)

	resp, body := do(t, http.MethodDelete, url, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["effective"].(map[string]any)["is_corrected"])
	assert.Empty(t, srv.Snapshot().Corrections)
}

func TestCorrection_CamelCaseFieldAndDefaultSource(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t, nil, Options{})

	resp, _ := do(t, http.MethodPut, ts.URL+"/api/documents/94459227/corrections/salesUnit", `{"value":"KG"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	eff, err := srv.engine.EffectiveValue("94459227", model.SourceInvoice, model.FieldSalesUnit)
	require.NoError(t, err)
	assert.True(t, eff.IsCorrected)
	assert.Equal(t, "KG", eff.Display())
}

func TestCorrection_Errors(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil, Options{})

	resp, _ := do(t, http.MethodPut, ts.URL+"/api/documents/94459227/corrections/colour", `{"value":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodPut, ts.URL+"/api/documents/94459227/corrections/date", `{"source":"fax","value":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodPut, ts.URL+"/api/documents/nope/corrections/date", `{"value":"x"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodPut, ts.URL+"/api/documents/94459227/corrections/date", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestJudgmentLifecycle(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t, nil, Options{})
	base := ts.URL + "/api/documents/94459227/judgment"

	resp, body := do(t, http.MethodPost, base+"/confirm", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["changed"])
	assert.Equal(t, "unset", body["state"])

	resp, body = do(t, http.MethodPut, base, `{"status":"review_required"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pending", body["state"])
	j := body["judgment"].(map[string]any)
	assert.Equal(t, "review_required", j["status"])
	assert.Equal(t, true, j["pending"])

	resp, body = do(t, http.MethodPost, base+"/confirm", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["changed"])
	assert.Equal(t, "confirmed", body["state"])
	assert.Equal(t, model.JudgmentReviewRequired, srv.engine.Judgment("94459227").Status)

	resp, _ = do(t, http.MethodPut, base, `{"status":"complete_match"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = do(t, http.MethodDelete, base, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["changed"])
	assert.Equal(t, "confirmed", body["state"])
	j = body["judgment"].(map[string]any)
	assert.Equal(t, "review_required", j["status"])
}

func TestJudgment_Errors(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil, Options{})

	resp, _ := do(t, http.MethodPut, ts.URL+"/api/documents/94459227/judgment", `{"status":"looks_fine"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodPut, ts.URL+"/api/documents/nope/judgment", `{"status":"no_evidence"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, ts.URL+"/api/documents/nope/judgment/confirm", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodDelete, ts.URL+"/api/documents/nope/judgment", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCoordinates(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil, Options{})

	resp, body := do(t, http.MethodGet, ts.URL+"/api/documents/94459227/coordinates/date/bl", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{10.0, 10.0, 20.0, 200.0}, body["coordinates"])
	assert.Equal(t, 1000.0, body["scale"])

	resp, body = do(t, http.MethodGet, ts.URL+"/api/documents/94459227/coordinates/date/invoice", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, body["coordinates"])

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/documents/94459227/coordinates/date/fax", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSummary(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil, Options{})

	resp, body := do(t, http.MethodGet, ts.URL+"/api/summary", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "s1", body["session_id"])
	assert.Equal(t, 1.0, body["documents"])
	fields := body["fields"].(map[string]any)
	date := fields["date"].(map[string]any)
	assert.Equal(t, 1.0, date["mismatch"])
}

func TestSave(t *testing.T) {
	t.Parallel()
	st, err := store.NewFile(filepath.Join(t.TempDir(), "sessions"))
	require.NoError(t, err)
	srv, ts := newTestServer(t, st, Options{})

	do(t, http.MethodPut, ts.URL+"/api/documents/94459227/corrections/amount", `{"value":"900"}`)
	do(t, http.MethodPut, ts.URL+"/api/documents/94459227/judgment", `{"status":"partial_error"}`)

	resp, body := do(t, http.MethodPost, ts.URL+"/api/session/save", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "s1", body["session_id"])
	assert.Equal(t, 1.0, body["corrections"])
	// pending selections are not persisted
	assert.Equal(t, 0.0, body["judgments"])

	snap, err := st.LoadSnapshot(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, snap.Corrections, 1)
	assert.Equal(t, model.SourceInvoice, snap.Corrections[0].Source)
	assert.Empty(t, snap.Judgments)
	assert.Equal(t, model.JudgmentStatePending, srv.engine.JudgmentState("94459227"))
}

func TestSave_NoStore(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil, Options{})
	resp, _ := do(t, http.MethodPost, ts.URL+"/api/session/save", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSaveSnapshot_NoStore(t *testing.T) {
	t.Parallel()
	srv := New(fixtureEngine(), nil, Options{})
	err := srv.SaveSnapshot(context.Background(), srv.Snapshot())
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestExport(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil, Options{})

	resp, err := http.Get(ts.URL + "/api/export.xlsx")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "reconciliation.xlsx")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	// xlsx files are zip archives
	assert.Equal(t, "PK", string(data[:2]))
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil, Options{RateLimitRPS: 0.001, RateLimitBurst: 1})

	resp, _ := do(t, http.MethodGet, ts.URL+"/api/summary", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, http.MethodGet, ts.URL+"/api/summary", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// health and metrics are outside the limiter
	resp, _ = do(t, http.MethodGet, ts.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil, Options{})

	do(t, http.MethodPost, ts.URL+"/api/documents/94459227/judgment/confirm", "")
	do(t, http.MethodGet, ts.URL+"/api/documents/94459227", "")

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, `recon_review_actions_total{action="confirm_judgment",result="noop"} 1`)
	assert.Contains(t, out, `route="/api/documents/{documentID}`)
	assert.NotContains(t, out, "94459227")
}

func TestCORS(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil, Options{CORSOrigins: []string{"https://review.example.com"}})

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/summary", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://review.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, "https://review.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}
