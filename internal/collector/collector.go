// Package collector reads node, pod, and namespace state from the
// Kubernetes API and joins it with metrics.k8s.io usage data. All reads
// are request-scoped; nothing is cached between calls.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"

	"github.com/kuberag/kuberag-agent/internal/k8s"
	"github.com/kuberag/kuberag-agent/internal/models"
)

// ErrMetricsUnavailable wraps failures to reach the metrics API
// (metrics-server not installed, API path down). Callers degrade to
// document-only context rather than failing the request.
var ErrMetricsUnavailable = errors.New("cluster metrics unavailable")

// Collector performs read-only cluster queries through a shared client.
type Collector struct {
	client *k8s.Client
}

func New(client *k8s.Client) *Collector {
	return &Collector{client: client}
}

// Enabled reports whether a cluster connection exists at all.
func (c *Collector) Enabled() bool {
	return c != nil && c.client != nil
}

// Health reports whether the last API call succeeded and the last error
// seen, for the liveness endpoint.
func (c *Collector) Health() (healthy bool, lastErr error) {
	if !c.Enabled() {
		return false, nil
	}
	healthy, _, lastErr = c.client.HealthStatus()
	return healthy, lastErr
}

// CollectNodeMetrics joins NodeMetrics usage with core/v1 Node capacity and
// readiness into one record per node. Nodes listed by the API but absent
// from the metrics response are included with zero usage and flagged, so
// capacity totals never silently shrink.
func (c *Collector) CollectNodeMetrics(ctx context.Context) (*models.ClusterSnapshot, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%w: no cluster configured", ErrMetricsUnavailable)
	}
	callCtx, cancel, err := c.client.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	nodes, err := k8s.RetryValue(callCtx, func() (*corev1.NodeList, error) {
		return c.client.Clientset.CoreV1().Nodes().List(callCtx, metav1.ListOptions{})
	})
	c.client.RecordOutcome(err)
	if err != nil {
		return nil, fmt.Errorf("%w: listing nodes: %v", ErrMetricsUnavailable, err)
	}

	nodeMetrics, err := k8s.RetryValue(callCtx, func() (*metricsv1beta1.NodeMetricsList, error) {
		return c.client.Metrics.MetricsV1beta1().NodeMetricses().List(callCtx, metav1.ListOptions{})
	})
	c.client.RecordOutcome(err)
	if err != nil {
		return nil, fmt.Errorf("%w: listing node metrics: %v", ErrMetricsUnavailable, err)
	}

	usageByNode := make(map[string]metricsv1beta1.NodeMetrics, len(nodeMetrics.Items))
	for _, nm := range nodeMetrics.Items {
		usageByNode[nm.Name] = nm
	}

	snapshot := &models.ClusterSnapshot{
		Nodes:       make([]models.NodeMetric, 0, len(nodes.Items)),
		CollectedAt: time.Now().UTC(),
	}
	for _, node := range nodes.Items {
		metric := models.NodeMetric{
			Name:                node.Name,
			CPUCapacityCores:    node.Status.Capacity.Cpu().AsApproximateFloat64(),
			MemoryCapacityBytes: node.Status.Capacity.Memory().Value(),
			Ready:               nodeReady(&node),
		}
		if usage, ok := usageByNode[node.Name]; ok {
			metric.CPUUsageCores = usage.Usage.Cpu().AsApproximateFloat64()
			metric.MemoryUsageBytes = usage.Usage.Memory().Value()
		} else {
			metric.MetricsMissing = true
		}
		snapshot.Nodes = append(snapshot.Nodes, metric)
	}
	return snapshot, nil
}

// CollectPods lists pods, optionally filtered by namespace and label
// selector. An empty namespace means all namespaces.
func (c *Collector) CollectPods(ctx context.Context, namespace, labelSelector string) ([]models.PodSummary, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%w: no cluster configured", ErrMetricsUnavailable)
	}
	callCtx, cancel, err := c.client.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	pods, err := k8s.RetryValue(callCtx, func() (*corev1.PodList, error) {
		return c.client.Clientset.CoreV1().Pods(namespace).List(callCtx, metav1.ListOptions{LabelSelector: labelSelector})
	})
	c.client.RecordOutcome(err)
	if err != nil {
		return nil, fmt.Errorf("listing pods: %w", err)
	}

	out := make([]models.PodSummary, 0, len(pods.Items))
	for _, pod := range pods.Items {
		out = append(out, models.PodSummary{
			Name:      pod.Name,
			Namespace: pod.Namespace,
			Status:    podPhase(pod.Status.Phase),
			NodeName:  pod.Spec.NodeName,
			PodIP:     pod.Status.PodIP,
		})
	}
	return out, nil
}

// CollectNamespaces lists namespaces with status and labels.
func (c *Collector) CollectNamespaces(ctx context.Context) ([]models.NamespaceSummary, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%w: no cluster configured", ErrMetricsUnavailable)
	}
	callCtx, cancel, err := c.client.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	namespaces, err := k8s.RetryValue(callCtx, func() (*corev1.NamespaceList, error) {
		return c.client.Clientset.CoreV1().Namespaces().List(callCtx, metav1.ListOptions{})
	})
	c.client.RecordOutcome(err)
	if err != nil {
		return nil, fmt.Errorf("listing namespaces: %w", err)
	}

	out := make([]models.NamespaceSummary, 0, len(namespaces.Items))
	for _, ns := range namespaces.Items {
		created := ns.CreationTimestamp.Time
		out = append(out, models.NamespaceSummary{
			Name:    ns.Name,
			Status:  string(ns.Status.Phase),
			Created: &created,
			Labels:  ns.Labels,
		})
	}
	return out, nil
}

// ClusterInfo returns server version plus node and namespace counts.
func (c *Collector) ClusterInfo(ctx context.Context) (*models.ClusterInfo, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%w: no cluster configured", ErrMetricsUnavailable)
	}
	callCtx, cancel, err := c.client.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	version, err := c.client.GetServerVersion(callCtx)
	if err != nil {
		return nil, fmt.Errorf("reading server version: %w", err)
	}
	nodes, err := c.client.Clientset.CoreV1().Nodes().List(callCtx, metav1.ListOptions{})
	c.client.RecordOutcome(err)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	namespaces, err := c.client.Clientset.CoreV1().Namespaces().List(callCtx, metav1.ListOptions{})
	c.client.RecordOutcome(err)
	if err != nil {
		return nil, fmt.Errorf("listing namespaces: %w", err)
	}

	return &models.ClusterInfo{
		Version:        version,
		NodeCount:      len(nodes.Items),
		NamespaceCount: len(namespaces.Items),
		K8sEnabled:     true,
	}, nil
}

func nodeReady(node *corev1.Node) bool {
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}

func podPhase(phase corev1.PodPhase) models.PodPhase {
	switch phase {
	case corev1.PodPending:
		return models.PodPending
	case corev1.PodRunning:
		return models.PodRunning
	case corev1.PodSucceeded:
		return models.PodSucceeded
	case corev1.PodFailed:
		return models.PodFailed
	default:
		return models.PodUnknown
	}
}
