package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kuberag/kuberag-agent/internal/collector"
	"github.com/kuberag/kuberag-agent/internal/models"
)

type stubQuery struct {
	resp *models.QueryResponse
	err  error
}

func (s *stubQuery) Query(ctx context.Context, prompt string, topK int) (*models.QueryResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.resp != nil {
		return s.resp, nil
	}
	return &models.QueryResponse{Query: prompt, Response: "answer"}, nil
}

type stubIngest struct {
	err error
}

func (s *stubIngest) Ingest(ctx context.Context, doc models.Document) (*models.IngestResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.IngestResponse{Message: "Document ingested", ID: "p-1", TextLength: len(doc.Text)}, nil
}

type stubCluster struct {
	enabled  bool
	snapshot *models.ClusterSnapshot
	err      error
	lastNS   string
	lastSel  string
}

func (s *stubCluster) Enabled() bool { return s.enabled }

func (s *stubCluster) Health() (bool, error) { return s.enabled, nil }

func (s *stubCluster) CollectNodeMetrics(ctx context.Context) (*models.ClusterSnapshot, error) {
	return s.snapshot, s.err
}

func (s *stubCluster) CollectPods(ctx context.Context, namespace, labelSelector string) ([]models.PodSummary, error) {
	s.lastNS, s.lastSel = namespace, labelSelector
	return []models.PodSummary{{Name: "web-1", Namespace: "default", Status: models.PodRunning}}, s.err
}

func (s *stubCluster) CollectNamespaces(ctx context.Context) ([]models.NamespaceSummary, error) {
	return []models.NamespaceSummary{{Name: "default", Status: "Active"}}, s.err
}

func (s *stubCluster) ClusterInfo(ctx context.Context) (*models.ClusterInfo, error) {
	return &models.ClusterInfo{Version: "v1.31.0", NodeCount: 2, NamespaceCount: 3, K8sEnabled: true}, s.err
}

type stubReady struct{ err error }

func (s *stubReady) Ready(ctx context.Context) error { return s.err }

type stubAudit struct{ rows []models.QueryAudit }

func (s *stubAudit) Recent(ctx context.Context, limit int) ([]models.QueryAudit, error) {
	return s.rows, nil
}

func newTestHandler(cluster *stubCluster, audit AuditReader) *Handler {
	return NewHandler(&stubQuery{}, &stubIngest{}, cluster, &stubReady{}, audit)
}

func doRequest(t *testing.T, h *Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON response: %v\n%s", err, rec.Body.String())
	}
	return out
}

func TestHealth(t *testing.T) {
	h := newTestHandler(&stubCluster{enabled: true}, nil)
	rec := doRequest(t, h, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	out := decode(t, rec)
	if out["status"] != "ok" || out["k8s_enabled"] != true {
		t.Errorf("unexpected health body: %v", out)
	}
	if out["k8s_healthy"] != true {
		t.Errorf("k8s_healthy missing: %v", out)
	}
}

func TestHealth_ClusterDisabled(t *testing.T) {
	h := newTestHandler(&stubCluster{enabled: false}, nil)
	out := decode(t, doRequest(t, h, http.MethodGet, "/health", nil))
	if out["k8s_enabled"] != false {
		t.Errorf("k8s_enabled should be false: %v", out)
	}
}

func TestReady(t *testing.T) {
	h := newTestHandler(&stubCluster{}, nil)
	rec := doRequest(t, h, http.MethodGet, "/ready", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	h = NewHandler(&stubQuery{}, &stubIngest{}, &stubCluster{}, &stubReady{err: fmt.Errorf("connection refused")}, nil)
	rec = doRequest(t, h, http.MethodGet, "/ready", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 when the store is down", rec.Code)
	}
}

func TestQueryEndpoint(t *testing.T) {
	h := newTestHandler(&stubCluster{}, nil)
	rec := doRequest(t, h, http.MethodPost, "/query", models.QueryRequest{Prompt: "hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	if out["response"] != "answer" {
		t.Errorf("unexpected body: %v", out)
	}
}

func TestQueryEndpoint_MissingPrompt(t *testing.T) {
	h := newTestHandler(&stubCluster{}, nil)
	rec := doRequest(t, h, http.MethodPost, "/query", map[string]any{"top_k": 3})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if decode(t, rec)["code"] != ErrCodeInvalidRequest {
		t.Errorf("expected %s code", ErrCodeInvalidRequest)
	}
}

func TestQueryEndpoint_InvalidJSON(t *testing.T) {
	h := newTestHandler(&stubCluster{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestIngestEndpoint(t *testing.T) {
	h := newTestHandler(&stubCluster{}, nil)
	rec := doRequest(t, h, http.MethodPost, "/ingest", models.Document{Text: "some text"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	if out["message"] != "Document ingested" || out["text_length"] != float64(len("some text")) {
		t.Errorf("unexpected body: %v", out)
	}
}

func TestClusterCPUEndpoint(t *testing.T) {
	cluster := &stubCluster{
		enabled: true,
		snapshot: &models.ClusterSnapshot{Nodes: []models.NodeMetric{
			{Name: "a", CPUUsageCores: 1, CPUCapacityCores: 2, Ready: true},
			{Name: "b", CPUUsageCores: 3, CPUCapacityCores: 6, Ready: true},
		}},
	}
	h := newTestHandler(cluster, nil)
	rec := doRequest(t, h, http.MethodGet, "/k8s/cluster/cpu", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	out := decode(t, rec)
	cpu, _ := out["cluster_cpu"].(map[string]any)
	if cpu == nil {
		t.Fatalf("missing cluster_cpu envelope: %v", out)
	}
	if cpu["utilization_percent"] != 50.0 {
		t.Errorf("utilization = %v, want 50", cpu["utilization_percent"])
	}
}

func TestClusterEndpoints_MetricsUnavailable(t *testing.T) {
	cluster := &stubCluster{
		enabled: true,
		err:     fmt.Errorf("%w: metrics-server down", collector.ErrMetricsUnavailable),
	}
	h := newTestHandler(cluster, nil)
	rec := doRequest(t, h, http.MethodGet, "/k8s/cluster/memory", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if decode(t, rec)["code"] != ErrCodeMetricsUnavailable {
		t.Errorf("expected %s code: %s", ErrCodeMetricsUnavailable, rec.Body.String())
	}
}

func TestPodsEndpoint_NamespaceAll(t *testing.T) {
	cluster := &stubCluster{enabled: true}
	h := newTestHandler(cluster, nil)
	rec := doRequest(t, h, http.MethodGet, "/k8s/pods?namespace=all&label_selector=app%3Dweb", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cluster.lastNS != "" {
		t.Errorf("namespace=all should list all namespaces, got %q", cluster.lastNS)
	}
	if cluster.lastSel != "app=web" {
		t.Errorf("label selector lost: %q", cluster.lastSel)
	}
	if decode(t, rec)["count"] != float64(1) {
		t.Errorf("unexpected count")
	}
}

func TestClusterInfoEndpoint(t *testing.T) {
	h := newTestHandler(&stubCluster{enabled: true}, nil)
	out := decode(t, doRequest(t, h, http.MethodGet, "/k8s/cluster/info", nil))
	if out["version"] != "v1.31.0" || out["nodes_count"] != float64(2) || out["namespaces_count"] != float64(3) {
		t.Errorf("unexpected info body: %v", out)
	}
}

func TestAuditRecentEndpoint(t *testing.T) {
	audit := &stubAudit{rows: []models.QueryAudit{{ID: "1", Prompt: "q", Status: "ok"}}}
	h := newTestHandler(&stubCluster{}, audit)
	rec := doRequest(t, h, http.MethodGet, "/audit/recent", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if decode(t, rec)["count"] != float64(1) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestAuditRecentEndpoint_Disabled(t *testing.T) {
	h := newTestHandler(&stubCluster{}, nil)
	rec := doRequest(t, h, http.MethodGet, "/audit/recent", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 when audit is disabled", rec.Code)
	}
}
