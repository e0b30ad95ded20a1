package sim

import (
	"encoding/json"
	"math/rand"
)

// BalancingStrategy selects which backend a LoadBalancer routes to.
type BalancingStrategy string

const (
	StrategyRoundRobin      BalancingStrategy = "RoundRobin"
	StrategyRandom          BalancingStrategy = "Random"
	StrategyLeastConnections BalancingStrategy = "LeastConnections"
)

// RetryStrategy selects the backoff curve used between retry attempts.
type RetryStrategy string

const (
	RetryImmediate   RetryStrategy = "Immediate"
	RetryConstant    RetryStrategy = "Constant"
	RetryExponential RetryStrategy = "Exponential"
)

// LoadBalancerConfig is the spec §6 JSON/YAML shape for a LoadBalancer.
type LoadBalancerConfig struct {
	Strategy             BalancingStrategy `json:"strategy" yaml:"strategy"`
	MaxRetries           uint32            `json:"max_retries" yaml:"max_retries"`
	RetryBackoffMs       uint64            `json:"retry_backoff_ms" yaml:"retry_backoff_ms"`
	RetryStrategy        RetryStrategy     `json:"retry_strategy" yaml:"retry_strategy"`
	RetryBudgetRatio     float32           `json:"retry_budget_ratio" yaml:"retry_budget_ratio"`
	MinRetryRate         uint32            `json:"min_retry_rate" yaml:"min_retry_rate"`
	RetryBudgetMaxTokens float32           `json:"retry_budget_max_tokens" yaml:"retry_budget_max_tokens"`
}

// retryState tracks one in-flight request's retry bookkeeping.
type retryState struct {
	retryCount    uint32
	failedTargets []NodeId
	lastDelayUs   uint64
}

// arrivalWindowUs is one timestamp in the LoadBalancer's rolling rps window,
// adapted from original_source's LoadBalancer.arrival_window (SPEC_FULL.md §4).
type arrivalWindowUs = int64

const rpsWindowUs = 1_000_000

// LoadBalancer selects a target among healthy backends and retries failed
// attempts under a token-bucket budget (spec §4.4).
type LoadBalancer struct {
	id     NodeId
	config LoadBalancerConfig

	targets      []NodeId
	nextRRIndex  int
	activeLoads  map[NodeId]uint32
	stateTable   map[RequestId]NodeId
	inFlight     map[RequestId]*retryState
	retryBalance float32
	totalRetries uint64
	failedCount  uint64

	healthy          bool
	maintenanceUntil int64

	arrivalWindow []arrivalWindowUs

	rng *rand.Rand
}

// NewLoadBalancer creates a LoadBalancer with the given id and config.
func NewLoadBalancer(id NodeId, cfg LoadBalancerConfig) *LoadBalancer {
	cfg.sanitize()
	return &LoadBalancer{
		id:           id,
		config:       cfg,
		activeLoads:  make(map[NodeId]uint32),
		stateTable:   make(map[RequestId]NodeId),
		inFlight:     make(map[RequestId]*retryState),
		retryBalance: cfg.RetryBudgetMaxTokens,
		healthy:      true,
	}
}

func (c *LoadBalancerConfig) sanitize() {
	c.RetryBudgetRatio = clampUnit(c.RetryBudgetRatio)
	if c.RetryBudgetMaxTokens < 0 {
		c.RetryBudgetMaxTokens = 0
	}
	switch c.Strategy {
	case StrategyRoundRobin, StrategyRandom, StrategyLeastConnections:
	default:
		c.Strategy = StrategyRoundRobin
	}
	switch c.RetryStrategy {
	case RetryImmediate, RetryConstant, RetryExponential:
	default:
		c.RetryStrategy = RetryConstant
	}
}

func (lb *LoadBalancer) ID() NodeId          { return lb.id }
func (lb *LoadBalancer) Kind() ComponentKind { return KindLoadBalancer }
func (lb *LoadBalancer) Seed(rng *rand.Rand) { lb.rng = rng }
func (lb *LoadBalancer) IsHealthy() bool     { return lb.healthy }

func (lb *LoadBalancer) Targets() []NodeId {
	out := make([]NodeId, len(lb.targets))
	copy(out, lb.targets)
	return out
}

func (lb *LoadBalancer) AddTarget(id NodeId) {
	for _, t := range lb.targets {
		if t == id {
			return
		}
	}
	lb.targets = append(lb.targets, id)
}

// RemoveTarget purges active_loads and any state_table entry pointing at
// the removed target (spec §4.4 "Target removal").
func (lb *LoadBalancer) RemoveTarget(id NodeId) {
	for i, t := range lb.targets {
		if t == id {
			lb.targets = append(lb.targets[:i], lb.targets[i+1:]...)
			break
		}
	}
	delete(lb.activeLoads, id)
	for rid, target := range lb.stateTable {
		if target == id {
			delete(lb.stateTable, rid)
		}
	}
}

// selectTarget filters lb.targets by health and exclusion, then applies
// the configured strategy (spec §4.4 "Selection").
func (lb *LoadBalancer) selectTarget(insp Inspector, exclusions []NodeId) (NodeId, bool) {
	excluded := make(map[NodeId]bool, len(exclusions))
	for _, e := range exclusions {
		excluded[e] = true
	}

	candidates := make([]NodeId, 0, len(lb.targets))
	for _, t := range lb.targets {
		if insp.IsNodeHealthy(t) && !excluded[t] {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}

	switch lb.config.Strategy {
	case StrategyRandom:
		return candidates[lb.rng.Intn(len(candidates))], true

	case StrategyLeastConnections:
		best := candidates[0]
		bestLoad := lb.activeLoads[best]
		for _, c := range candidates[1:] {
			if load := lb.activeLoads[c]; load < bestLoad {
				best, bestLoad = c, load
			}
		}
		return best, true

	default: // StrategyRoundRobin
		n := len(lb.targets)
		candidateSet := make(map[NodeId]bool, len(candidates))
		for _, c := range candidates {
			candidateSet[c] = true
		}
		for i := 0; i < n; i++ {
			idx := (lb.nextRRIndex + i) % n
			cand := lb.targets[idx]
			if candidateSet[cand] {
				lb.nextRRIndex = (idx + 1) % n
				return cand, true
			}
		}
		return 0, false
	}
}

func (lb *LoadBalancer) refillBudget() {
	lb.retryBalance += lb.config.RetryBudgetRatio
	if lb.retryBalance > lb.config.RetryBudgetMaxTokens {
		lb.retryBalance = lb.config.RetryBudgetMaxTokens
	}
}

func (lb *LoadBalancer) recordArrival(nowUs int64) {
	lb.arrivalWindow = append(lb.arrivalWindow, nowUs)
	cutoff := nowUs - rpsWindowUs
	i := 0
	for i < len(lb.arrivalWindow) && lb.arrivalWindow[i] < cutoff {
		i++
	}
	if i > 0 {
		lb.arrivalWindow = lb.arrivalWindow[i:]
	}
}

func (lb *LoadBalancer) rps() float64 {
	return float64(len(lb.arrivalWindow))
}

// HandleEvent implements Component.
func (lb *LoadBalancer) HandleEvent(ev Event, insp Inspector) []ScheduleCmd {
	switch ev.Kind.Tag {
	case KindArrival:
		return lb.handleArrival(ev, insp)
	case KindResponse:
		return lb.handleResponse(ev, insp)
	case KindMaintenanceComplete:
		lb.healthy = true
		return nil
	default:
		return nil
	}
}

func (lb *LoadBalancer) handleArrival(ev Event, insp Inspector) []ScheduleCmd {
	lb.refillBudget()
	lb.recordArrival(ev.Timestamp)

	if !lb.healthy {
		return lb.failureUpstream(ev)
	}

	target, ok := lb.selectTarget(insp, nil)
	if !ok {
		return lb.failureUpstream(ev)
	}

	lb.activeLoads[target]++
	rid := ev.Kind.RequestID
	lb.stateTable[rid] = target
	path := append(append([]NodeId{}, ev.Kind.Path...), lb.id)

	return []ScheduleCmd{{
		DelayUs: 0,
		Target:  target,
		Kind: EventKind{
			Tag:       KindArrival,
			RequestID: rid,
			Path:      path,
			StartTime: ev.Kind.StartTime,
			Timeout:   ev.Kind.Timeout,
		},
	}}
}

func (lb *LoadBalancer) failureUpstream(ev Event) []ScheduleCmd {
	lb.failedCount++
	path := ev.Kind.Path
	if len(path) == 0 {
		return nil
	}
	caller := path[len(path)-1]
	return []ScheduleCmd{{
		DelayUs: 0,
		Target:  caller,
		Kind: EventKind{
			Tag:       KindResponse,
			RequestID: ev.Kind.RequestID,
			Path:      path,
			StartTime: ev.Kind.StartTime,
			Success:   false,
			Timeout:   ev.Kind.Timeout,
		},
	}}
}

func (lb *LoadBalancer) retryDelayUs(rs *retryState) uint64 {
	var base uint64
	switch lb.config.RetryStrategy {
	case RetryImmediate:
		base = 0
	case RetryExponential:
		base = lb.config.RetryBackoffMs * 1000 * (uint64(1) << (rs.retryCount - 1))
	default: // RetryConstant
		base = lb.config.RetryBackoffMs * 1000
	}
	jitterMax := base / 10
	if jitterMax < 1 {
		jitterMax = 1
	}
	jitter := uint64(lb.rng.Int63n(int64(jitterMax) + 1))
	return base + jitter
}

func (lb *LoadBalancer) handleResponse(ev Event, insp Inspector) []ScheduleCmd {
	rid := ev.Kind.RequestID

	failedTarget, hadTarget := lb.stateTable[rid]
	if hadTarget {
		if lb.activeLoads[failedTarget] > 0 {
			lb.activeLoads[failedTarget]--
		}
		delete(lb.stateTable, rid)
	}

	if !ev.Kind.Success {
		rs, exists := lb.inFlight[rid]
		if !exists {
			rs = &retryState{}
		}
		if rs.retryCount < lb.config.MaxRetries && lb.retryBalance >= 1.0 {
			if hadTarget {
				rs.failedTargets = append(rs.failedTargets, failedTarget)
			}

			newTarget, ok := lb.selectTarget(insp, rs.failedTargets)
			if ok {
				lb.retryBalance -= 1.0
				rs.retryCount++
				lb.totalRetries++
				lb.inFlight[rid] = rs

				lb.activeLoads[newTarget]++
				lb.stateTable[rid] = newTarget

				delayUs := lb.retryDelayUs(rs)
				rs.lastDelayUs = delayUs

				return []ScheduleCmd{{
					DelayUs: delayUs,
					Target:  newTarget,
					Kind: EventKind{
						Tag:       KindArrival,
						RequestID: rid,
						Path:      ev.Kind.Path, // path still ends with this LB
						StartTime: ev.Kind.StartTime,
						Timeout:   ev.Kind.Timeout,
					},
				}}
			}
		}
	}

	delete(lb.inFlight, rid)
	if !ev.Kind.Success {
		lb.failedCount++
	}
	path := ev.Kind.Path
	if len(path) == 0 {
		return nil
	}
	path = path[:len(path)-1]
	if len(path) == 0 {
		return nil
	}
	caller := path[len(path)-1]
	return []ScheduleCmd{{
		DelayUs: 0,
		Target:  caller,
		Kind: EventKind{
			Tag:       KindResponse,
			RequestID: rid,
			Path:      path,
			StartTime: ev.Kind.StartTime,
			Success:   ev.Kind.Success,
			Timeout:   ev.Kind.Timeout,
		},
	}}
}

// EncodeConfig implements Component.
func (lb *LoadBalancer) EncodeConfig() json.RawMessage {
	b, _ := json.Marshal(lb.config)
	return b
}

// ApplyConfig implements Component. A strategy change quiesces the load
// balancer (spec §9: "LoadBalancer strategy change") since mid-flight
// round-robin/least-connections state no longer means anything under a new
// strategy; other field changes (retry budget, backoff) apply immediately.
func (lb *LoadBalancer) ApplyConfig(raw json.RawMessage) []ScheduleCmd {
	var cfg LoadBalancerConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil
	}
	cfg.sanitize()

	strategyChanged := cfg.Strategy != lb.config.Strategy
	lb.config = cfg
	lb.nextRRIndex = 0

	if strategyChanged {
		lb.healthy = false
		return []ScheduleCmd{{
			DelayUs: maintenanceLockoutUs,
			Target:  lb.id,
			Kind:    EventKind{Tag: KindMaintenanceComplete},
		}}
	}
	return nil
}

// loadBalancerSnapshotConfig is the nested "config" object of the LB
// display snapshot.
type loadBalancerSnapshotConfig struct {
	MaxRetries     uint32 `json:"max_retries"`
	RetryBackoffMs uint64 `json:"retry_backoff_ms"`
}

// loadBalancerSnapshot is the spec §6 display snapshot shape for LoadBalancer.
type loadBalancerSnapshot struct {
	Rps           float64                    `json:"rps"`
	Strategy      BalancingStrategy          `json:"strategy"`
	Targets       []NodeId                   `json:"targets"`
	Loads         map[NodeId]uint32          `json:"loads"`
	FailedCount   uint64                     `json:"failed_count"`
	TotalRetries  uint64                     `json:"total_retries"`
	ActiveRetries int                        `json:"active_retries"`
	Config        loadBalancerSnapshotConfig `json:"config"`
}

// Snapshot implements Component.
func (lb *LoadBalancer) Snapshot() json.RawMessage {
	b, _ := json.Marshal(loadBalancerSnapshot{
		Rps:           lb.rps(),
		Strategy:      lb.config.Strategy,
		Targets:       lb.Targets(),
		Loads:         lb.activeLoads,
		FailedCount:   lb.failedCount,
		TotalRetries:  lb.totalRetries,
		ActiveRetries: len(lb.inFlight),
		Config: loadBalancerSnapshotConfig{
			MaxRetries:     lb.config.MaxRetries,
			RetryBackoffMs: lb.config.RetryBackoffMs,
		},
	})
	return b
}
