package domain

import "time"

type NodeStatus string

const (
	NodeStatusActive   NodeStatus = "ACTIVE"
	NodeStatusInactive NodeStatus = "INACTIVE"
	NodeStatusDraining NodeStatus = "DRAINING"
)

// Node is the heartbeat record a local scheduler publishes about itself,
// independent of the worker implementation running on it.
type Node struct {
	ID            string     `json:"id"`
	Hostname      string     `json:"hostname"`
	TotalCPU      float64    `json:"total_cpu"` // static resource capacity, cores
	TotalGPU      float64    `json:"total_gpu"`
	UsedCPU       float64    `json:"used_cpu"`    // live usage, percent of total node CPU
	UsedMemory    float64    `json:"used_memory"` // live usage, MB
	Workers       int        `json:"workers"`     // registered workers
	IdleWorkers   int        `json:"idle_workers"`
	Status        NodeStatus `json:"status"`
	LastHeartbeat time.Time  `json:"last_heartbeat"`
}
