package sim

import (
	"encoding/json"
	"math/rand"
)

// ClientConfig is the spec §6 JSON/YAML shape for a Client.
type ClientConfig struct {
	ArrivalRate  float64 `json:"arrival_rate" yaml:"arrival_rate"`
	TimeoutMs    uint64  `json:"timeout" yaml:"timeout"`
	GenerationID uint64  `json:"generation_id" yaml:"generation_id"`
}

// sanitizedRate clamps a negative or non-finite arrival rate to zero per
// spec §7 ("treat negative or infinite arrival_rate as zero").
func sanitizedRate(rate float64) float64 {
	if rate < 0 || isInfOrNaN(rate) {
		return 0
	}
	return rate
}

// Client is an open-loop arrival generator with a regeneration cycle and
// generation-id cancellation (spec §4.2).
type Client struct {
	id     NodeId
	config ClientConfig
	target *NodeId

	requestCounter uint64
	rng            *rand.Rand
	healthy        bool
}

// NewClient creates a Client with the given id and config.
func NewClient(id NodeId, cfg ClientConfig) *Client {
	cfg.ArrivalRate = sanitizedRate(cfg.ArrivalRate)
	return &Client{id: id, config: cfg, healthy: true}
}

func (c *Client) ID() NodeId         { return c.id }
func (c *Client) Kind() ComponentKind { return KindClient }

func (c *Client) Seed(rng *rand.Rand) { c.rng = rng }

func (c *Client) Targets() []NodeId {
	if c.target == nil {
		return nil
	}
	return []NodeId{*c.target}
}

func (c *Client) AddTarget(id NodeId) {
	t := id
	c.target = &t
}

func (c *Client) RemoveTarget(id NodeId) {
	if c.target != nil && *c.target == id {
		c.target = nil
	}
}

func (c *Client) IsHealthy() bool { return c.healthy }

// nextIntervalUs computes the next self-tick delay: interval_us =
// 1e6/arrival_rate (falling back to 1s when the configured rate is zero),
// with multiplicative jitter uniform in [0.95, 1.05] (spec §4.2).
func (c *Client) nextIntervalUs() uint64 {
	var base float64
	if c.config.ArrivalRate <= 0 {
		base = 1_000_000
	} else {
		base = 1e6 / c.config.ArrivalRate
	}
	jitter := 0.95 + 0.10*c.rng.Float64()
	scaled := int64(base * jitter)
	if scaled < 1 {
		scaled = 1
	}
	return uint64(scaled)
}

// HandleEvent implements Component.
func (c *Client) HandleEvent(ev Event, insp Inspector) []ScheduleCmd {
	if ev.Kind.Tag != KindGenerateNext {
		return nil
	}
	if !c.healthy || ev.Kind.GenerationID != c.config.GenerationID {
		return nil
	}

	var cmds []ScheduleCmd
	cmds = append(cmds, ScheduleCmd{
		DelayUs: c.nextIntervalUs(),
		Target:  c.id,
		Kind:    EventKind{Tag: KindGenerateNext, GenerationID: c.config.GenerationID},
	})

	if c.target != nil {
		c.requestCounter++
		rid := NewRequestId(c.id, c.requestCounter)
		cmds = append(cmds, ScheduleCmd{
			DelayUs: 0,
			Target:  *c.target,
			Kind: EventKind{
				Tag:       KindArrival,
				RequestID: rid,
				Path:      []NodeId{c.id},
				StartTime: ev.Timestamp,
				Timeout:   int64(c.config.TimeoutMs) * 1000,
			},
		})
	}
	return cmds
}

// EncodeConfig implements Component.
func (c *Client) EncodeConfig() json.RawMessage {
	b, _ := json.Marshal(c.config)
	return b
}

// ApplyConfig implements Component. A config change bumps generation_id
// (spec §4.2): the caller is expected to pass the new generation_id in the
// JSON; the driver is then responsible for scheduling a fresh
// GenerateNext{new_gid} at now (spec §4.2, §6) — ApplyConfig itself
// returns no commands since it does not know "now".
func (c *Client) ApplyConfig(raw json.RawMessage) []ScheduleCmd {
	var cfg ClientConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil
	}
	cfg.ArrivalRate = sanitizedRate(cfg.ArrivalRate)
	c.config = cfg
	return nil
}

// clientSnapshot is the spec §6 display snapshot shape for Client.
type clientSnapshot struct {
	Rate float64 `json:"rate"`
}

// Snapshot implements Component.
func (c *Client) Snapshot() json.RawMessage {
	b, _ := json.Marshal(clientSnapshot{Rate: c.config.ArrivalRate})
	return b
}

// GenerationID returns the client's current generation id, used by the
// driver to build the initial GenerateNext kick-off event.
func (c *Client) GenerationID() uint64 { return c.config.GenerationID }
