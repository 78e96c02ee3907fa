package service

import (
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
)

// MetricsCollector aggregates run outcomes for the lifetime of a process.
type MetricsCollector struct {
	totals RunTotals
	agents map[string]*AgentMetrics
	mu     sync.RWMutex
}

// RunTotals holds process-wide counters.
type RunTotals struct {
	StartTime  time.Time                  `json:"start_time"`
	Runs       int                        `json:"runs"`
	FollowUps  int                        `json:"follow_ups"`
	Succeeded  int                        `json:"succeeded"`
	Failed     int                        `json:"failed"`
	Rejected   int                        `json:"rejected"`
	ByCategory map[core.ErrorCategory]int `json:"by_category,omitempty"`
}

// AgentMetrics holds agent-level metrics.
type AgentMetrics struct {
	Name          string        `json:"name"`
	Invocations   int           `json:"invocations"`
	Errors        int           `json:"errors"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
	OutputChars   int           `json:"output_chars"`
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		totals: RunTotals{StartTime: time.Now(), ByCategory: make(map[core.ErrorCategory]int)},
		agents: make(map[string]*AgentMetrics),
	}
}

// RecordRun records one terminal run outcome. category is empty on success.
func (m *MetricsCollector) RecordRun(agent string, followUp bool, duration time.Duration, outputChars int, category core.ErrorCategory) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totals.Runs++
	if followUp {
		m.totals.FollowUps++
	}
	if category != "" {
		m.totals.Failed++
		m.totals.ByCategory[category]++
	} else {
		m.totals.Succeeded++
	}

	am, ok := m.agents[agent]
	if !ok {
		am = &AgentMetrics{Name: agent}
		m.agents[agent] = am
	}
	am.Invocations++
	am.TotalDuration += duration
	am.AvgDuration = am.TotalDuration / time.Duration(am.Invocations)
	am.OutputChars += outputChars
	if category != "" {
		am.Errors++
	}
}

// RecordRejected records a start refused by the duplicate guard.
func (m *MetricsCollector) RecordRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals.Rejected++
}

// Totals returns a copy of the process-wide counters.
func (m *MetricsCollector) Totals() RunTotals {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t := m.totals
	t.ByCategory = make(map[core.ErrorCategory]int, len(m.totals.ByCategory))
	for k, v := range m.totals.ByCategory {
		t.ByCategory[k] = v
	}
	return t
}

// GetAgentMetrics returns metrics for all agents.
func (m *MetricsCollector) GetAgentMetrics() map[string]*AgentMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]*AgentMetrics)
	for k, v := range m.agents {
		agentCopy := *v
		result[k] = &agentCopy
	}
	return result
}

// Reset clears all metrics.
func (m *MetricsCollector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totals = RunTotals{StartTime: time.Now(), ByCategory: make(map[core.ErrorCategory]int)}
	m.agents = make(map[string]*AgentMetrics)
}
