// Package models defines the canonical domain model for the agent.
// Node and pod records are plain immutable values rebuilt per request;
// no caching or identity tracking.
package models

import "time"

// NodeMetric is one node's usage and capacity, normalized to canonical
// units (cores as float64, memory as bytes).
type NodeMetric struct {
	Name                string  `json:"node"`
	CPUUsageCores       float64 `json:"cpu_usage_cores"`
	CPUCapacityCores    float64 `json:"cpu_capacity_cores"`
	MemoryUsageBytes    int64   `json:"memory_usage_bytes"`
	MemoryCapacityBytes int64   `json:"memory_capacity_bytes"`
	Ready               bool    `json:"ready"`
	// MetricsMissing marks nodes present in the capacity listing but absent
	// from the metrics-server response; usage is zero for these.
	MetricsMissing bool `json:"metrics_missing,omitempty"`
}

// ClusterSnapshot is the per-request view of node metrics. Owned by the
// request that collected it; never shared or cached.
type ClusterSnapshot struct {
	Nodes       []NodeMetric `json:"nodes"`
	CollectedAt time.Time    `json:"collected_at"`
}

// PodPhase mirrors the Kubernetes pod phase enum.
type PodPhase string

const (
	PodPending   PodPhase = "Pending"
	PodRunning   PodPhase = "Running"
	PodSucceeded PodPhase = "Succeeded"
	PodFailed    PodPhase = "Failed"
	PodUnknown   PodPhase = "Unknown"
)

// PodSummary is a single pod listing entry. NodeName and PodIP are empty
// for unscheduled pods.
type PodSummary struct {
	Name      string   `json:"name"`
	Namespace string   `json:"namespace"`
	Status    PodPhase `json:"status"`
	NodeName  string   `json:"node,omitempty"`
	PodIP     string   `json:"ip,omitempty"`
}

// NodeUtilization is the per-node breakdown included with aggregates so
// totals stay auditable against `kubectl top nodes`.
type NodeUtilization struct {
	Name               string  `json:"node"`
	Usage              float64 `json:"usage"`
	Capacity           float64 `json:"capacity"`
	UtilizationPercent float64 `json:"utilization_percent"`
	Ready              bool    `json:"ready"`
}

// ResourceAggregate is the cluster-wide total for one resource (CPU in
// cores or memory in GiB).
type ResourceAggregate struct {
	TotalUsage         float64           `json:"total_usage"`
	TotalCapacity      float64           `json:"total_capacity"`
	UtilizationPercent float64           `json:"utilization_percent"`
	Nodes              []NodeUtilization `json:"nodes"`
}

// ClusterInfo is the response for GET /k8s/cluster/info.
type ClusterInfo struct {
	Version        string `json:"version"`
	NodeCount      int    `json:"nodes_count"`
	NamespaceCount int    `json:"namespaces_count"`
	K8sEnabled     bool   `json:"k8s_enabled"`
}

// NamespaceSummary is one entry of GET /k8s/namespaces.
type NamespaceSummary struct {
	Name    string            `json:"name"`
	Status  string            `json:"status"`
	Created *time.Time        `json:"created,omitempty"`
	Labels  map[string]string `json:"labels,omitempty"`
}

// NodeDetail is one entry of GET /k8s/nodes: CPU and memory utilization
// for a single node.
type NodeDetail struct {
	Name   string          `json:"name"`
	Ready  bool            `json:"ready"`
	CPU    NodeUtilization `json:"cpu"`
	Memory NodeUtilization `json:"memory"`
}
