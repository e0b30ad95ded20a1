package sim

import (
	"encoding/json"
	"math/rand"
)

// maintenanceLockoutUs is how long a hot-reconfiguration that must quiesce
// traffic (LB strategy change, Server concurrency shrink) marks the
// component unhealthy before restoring it (spec §4.4, §9).
const maintenanceLockoutUs = 500_000

// ServerConfig is the spec §6 JSON/YAML shape for a Server.
type ServerConfig struct {
	ServiceTimeMs      uint64  `json:"service_time" yaml:"service_time"`
	Concurrency        uint32  `json:"concurrency" yaml:"concurrency"`
	BacklogLimit       uint32  `json:"backlog_limit" yaml:"backlog_limit"`
	FailureProbability float32 `json:"failure_probability" yaml:"failure_probability"`
	SaturationPenalty  float64 `json:"saturation_penalty" yaml:"saturation_penalty"`
}

func (c *ServerConfig) sanitize() {
	c.FailureProbability = clampUnit(c.FailureProbability)
	c.SaturationPenalty = clampNonNegative(c.SaturationPenalty)
}

// queuedRequest is one entry in a Server's backlog (adapted from the
// teacher's WaitQueue FIFO-of-pointers idiom; here a value type since a
// request hop carries no further mutable state once enqueued).
type queuedRequest struct {
	RequestID RequestId
	Path      []NodeId
	StartTime int64
	Timeout   int64
}

// Server is a bounded-concurrency queued service station with a saturation
// penalty that slows service time smoothly as load approaches capacity
// (spec §4.3).
type Server struct {
	id     NodeId
	config ServerConfig

	activeThreads uint32
	queue         []queuedRequest
	nextHop       *NodeId
	errors        uint64
	arrivalWindow []int64

	healthy          bool
	maintenanceUntil int64

	rng *rand.Rand
}

// NewServer creates a Server with the given id and config.
func NewServer(id NodeId, cfg ServerConfig) *Server {
	cfg.sanitize()
	return &Server{id: id, config: cfg, healthy: true}
}

func (s *Server) ID() NodeId          { return s.id }
func (s *Server) Kind() ComponentKind { return KindServer }
func (s *Server) Seed(rng *rand.Rand) { s.rng = rng }
func (s *Server) IsHealthy() bool     { return s.healthy }

func (s *Server) Targets() []NodeId {
	if s.nextHop == nil {
		return nil
	}
	return []NodeId{*s.nextHop}
}

func (s *Server) AddTarget(id NodeId) {
	t := id
	s.nextHop = &t
}

func (s *Server) RemoveTarget(id NodeId) {
	if s.nextHop != nil && *s.nextHop == id {
		s.nextHop = nil
	}
}

// serviceDelayUs implements the saturation-penalty service time law
// (spec §4.3): penalty grows quadratically in post-admission load factor,
// so the request "feels" the contention it itself causes.
func (s *Server) serviceDelayUs() uint64 {
	loadFactor := 0.0
	if s.config.Concurrency > 0 {
		loadFactor = float64(s.activeThreads) / float64(s.config.Concurrency)
	}
	penalty := 1 + loadFactor*loadFactor*s.config.SaturationPenalty
	jitter := 0.95 + 0.10*s.rng.Float64()
	delay := float64(s.config.ServiceTimeMs) * 1000 * jitter * penalty
	return uint64(delay)
}

func (s *Server) failureResponse(ev Event) []ScheduleCmd {
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

// HandleEvent implements Component.
func (s *Server) HandleEvent(ev Event, insp Inspector) []ScheduleCmd {
	switch ev.Kind.Tag {
	case KindArrival:
		return s.handleArrival(ev)
	case KindProcessComplete:
		return s.handleProcessComplete(ev)
	case KindResponse:
		return s.handleResponseHop(ev)
	case KindMaintenanceComplete:
		s.healthy = true
		return nil
	default:
		return nil
	}
}

// recordArrival tracks a rolling 1-second window of arrival timestamps for
// the Rps field of Snapshot, mirroring the LoadBalancer's arrival window.
func (s *Server) recordArrival(nowUs int64) {
	s.arrivalWindow = append(s.arrivalWindow, nowUs)
	cutoff := nowUs - rpsWindowUs
	i := 0
	for i < len(s.arrivalWindow) && s.arrivalWindow[i] < cutoff {
		i++
	}
	if i > 0 {
		s.arrivalWindow = s.arrivalWindow[i:]
	}
}

func (s *Server) rps() float64 { return float64(len(s.arrivalWindow)) }

func (s *Server) handleArrival(ev Event) []ScheduleCmd {
	s.recordArrival(ev.Timestamp)
	if !s.healthy {
		s.errors++
		return s.failureResponse(ev)
	}
	if s.config.FailureProbability > 0 && s.rng.Float32() < s.config.FailureProbability {
		s.errors++
		return s.failureResponse(ev)
	}

	req := queuedRequest{
		RequestID: ev.Kind.RequestID,
		Path:      ev.Kind.Path,
		StartTime: ev.Kind.StartTime,
		Timeout:   ev.Kind.Timeout,
	}

	if s.activeThreads < s.config.Concurrency {
		s.activeThreads++
		delay := s.serviceDelayUs()
		return []ScheduleCmd{{
			DelayUs: delay,
			Target:  s.id,
			Kind: EventKind{
				Tag:       KindProcessComplete,
				RequestID: req.RequestID,
				Path:      req.Path,
				StartTime: req.StartTime,
				Timeout:   req.Timeout,
				Success:   true,
			},
		}}
	}

	if uint32(len(s.queue)) < s.config.BacklogLimit {
		s.queue = append(s.queue, req)
		return nil
	}

	s.errors++
	return s.failureResponse(ev)
}

func (s *Server) handleProcessComplete(ev Event) []ScheduleCmd {
	var cmds []ScheduleCmd

	if ev.Kind.Success && s.nextHop != nil {
		path := append(append([]NodeId{}, ev.Kind.Path...), s.id)
		cmds = append(cmds, ScheduleCmd{
			DelayUs: 0,
			Target:  *s.nextHop,
			Kind: EventKind{
				Tag:       KindArrival,
				RequestID: ev.Kind.RequestID,
				Path:      path,
				StartTime: ev.Kind.StartTime,
				Timeout:   ev.Kind.Timeout,
			},
		})
	} else {
		if len(ev.Kind.Path) > 0 {
			caller := ev.Kind.Path[len(ev.Kind.Path)-1]
			cmds = append(cmds, ScheduleCmd{
				DelayUs: 0,
				Target:  caller,
				Kind: EventKind{
					Tag:       KindResponse,
					RequestID: ev.Kind.RequestID,
					Path:      ev.Kind.Path,
					StartTime: ev.Kind.StartTime,
					Success:   ev.Kind.Success,
					Timeout:   ev.Kind.Timeout,
				},
			})
		}
	}

	if len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		delay := s.serviceDelayUs()
		cmds = append(cmds, ScheduleCmd{
			DelayUs: delay,
			Target:  s.id,
			Kind: EventKind{
				Tag:       KindProcessComplete,
				RequestID: next.RequestID,
				Path:      next.Path,
				StartTime: next.StartTime,
				Timeout:   next.Timeout,
				Success:   true,
			},
		})
	} else if s.activeThreads > 0 {
		s.activeThreads--
	}

	return cmds
}

// handleResponseHop forwards a Response event arriving at this Server as
// an intermediate hop (this Server is somewhere in the middle of a path,
// e.g. a Server whose next_hop is another Server): pop the path and
// forward upstream with zero processing delay.
func (s *Server) handleResponseHop(ev Event) []ScheduleCmd {
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
			RequestID: ev.Kind.RequestID,
			Path:      path,
			StartTime: ev.Kind.StartTime,
			Success:   ev.Kind.Success,
			Timeout:   ev.Kind.Timeout,
		},
	}}
}

// EncodeConfig implements Component.
func (s *Server) EncodeConfig() json.RawMessage {
	b, _ := json.Marshal(s.config)
	return b
}

// ApplyConfig implements Component. Shrinking concurrency below the
// previous value quiesces the server (spec §9: "Server concurrency
// shrink") by marking it unhealthy and returning a MaintenanceComplete
// self-event ~500ms out; growing concurrency or changing other fields
// applies immediately.
func (s *Server) ApplyConfig(raw json.RawMessage) []ScheduleCmd {
	var cfg ServerConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil
	}
	cfg.sanitize()

	shrinking := cfg.Concurrency < s.config.Concurrency
	s.config = cfg

	if shrinking {
		s.healthy = false
		return []ScheduleCmd{{
			DelayUs: maintenanceLockoutUs,
			Target:  s.id,
			Kind:    EventKind{Tag: KindMaintenanceComplete},
		}}
	}
	return nil
}

// serverSnapshot is the spec §6 display snapshot shape for Server.
type serverSnapshot struct {
	Rps            float64 `json:"rps"`
	Threads        uint32  `json:"threads"`
	Concurrency    uint32  `json:"concurrency"`
	QueueLen       int     `json:"queue_len"`
	CurrentPenalty float64 `json:"current_penalty"`
}

// Snapshot implements Component.
func (s *Server) Snapshot() json.RawMessage {
	loadFactor := 0.0
	if s.config.Concurrency > 0 {
		loadFactor = float64(s.activeThreads) / float64(s.config.Concurrency)
	}
	penalty := 1 + loadFactor*loadFactor*s.config.SaturationPenalty
	b, _ := json.Marshal(serverSnapshot{
		Rps:            s.rps(),
		Threads:        s.activeThreads,
		Concurrency:    s.config.Concurrency,
		QueueLen:       len(s.queue),
		CurrentPenalty: penalty,
	})
	return b
}

// Errors returns the count of admission failures observed by this server.
func (s *Server) Errors() uint64 { return s.errors }
