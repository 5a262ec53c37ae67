package collector

import (
	"math"

	"github.com/kuberag/kuberag-agent/internal/models"
)

const bytesPerGiB = 1024 * 1024 * 1024

// AggregateCPU sums node CPU usage and capacity across the snapshot.
// Cores are rounded to 3 decimals, percentages to 2. Zero capacity or an
// empty snapshot yields 0.0 utilization, never NaN.
func AggregateCPU(snapshot *models.ClusterSnapshot) models.ResourceAggregate {
	agg := models.ResourceAggregate{Nodes: make([]models.NodeUtilization, 0, len(snapshot.Nodes))}
	var usage, capacity float64
	for _, node := range snapshot.Nodes {
		usage += node.CPUUsageCores
		capacity += node.CPUCapacityCores
		agg.Nodes = append(agg.Nodes, models.NodeUtilization{
			Name:               node.Name,
			Usage:              round3(node.CPUUsageCores),
			Capacity:           round3(node.CPUCapacityCores),
			UtilizationPercent: utilizationPercent(node.CPUUsageCores, node.CPUCapacityCores),
			Ready:              node.Ready,
		})
	}
	agg.TotalUsage = round3(usage)
	agg.TotalCapacity = round3(capacity)
	agg.UtilizationPercent = utilizationPercent(usage, capacity)
	return agg
}

// AggregateMemory sums node memory usage and capacity, reported in GiB.
// GiB values and percentages are rounded to 2 decimals.
func AggregateMemory(snapshot *models.ClusterSnapshot) models.ResourceAggregate {
	agg := models.ResourceAggregate{Nodes: make([]models.NodeUtilization, 0, len(snapshot.Nodes))}
	var usage, capacity float64
	for _, node := range snapshot.Nodes {
		nodeUsage := float64(node.MemoryUsageBytes) / bytesPerGiB
		nodeCapacity := float64(node.MemoryCapacityBytes) / bytesPerGiB
		usage += nodeUsage
		capacity += nodeCapacity
		agg.Nodes = append(agg.Nodes, models.NodeUtilization{
			Name:               node.Name,
			Usage:              round2(nodeUsage),
			Capacity:           round2(nodeCapacity),
			UtilizationPercent: utilizationPercent(nodeUsage, nodeCapacity),
			Ready:              node.Ready,
		})
	}
	agg.TotalUsage = round2(usage)
	agg.TotalCapacity = round2(capacity)
	agg.UtilizationPercent = utilizationPercent(usage, capacity)
	return agg
}

// NodeDetails pairs CPU and memory utilization per node for the node
// listing endpoint.
func NodeDetails(snapshot *models.ClusterSnapshot) []models.NodeDetail {
	cpu := AggregateCPU(snapshot)
	memory := AggregateMemory(snapshot)
	details := make([]models.NodeDetail, 0, len(snapshot.Nodes))
	for i, node := range snapshot.Nodes {
		details = append(details, models.NodeDetail{
			Name:   node.Name,
			Ready:  node.Ready,
			CPU:    cpu.Nodes[i],
			Memory: memory.Nodes[i],
		})
	}
	return details
}

// utilizationPercent guards division by zero: zero capacity reports 0.0.
func utilizationPercent(usage, capacity float64) float64 {
	if capacity <= 0 {
		return 0.0
	}
	return round2(usage / capacity * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
