// Package discover drives end-to-end discovery of one device: resolve its
// vendor object identifier, classify it, then let the selected profile
// assemble the aggregate. Sessions share no mutable state, so callers may
// run any number of them concurrently; ExploreAll does exactly that with a
// bounded worker pool.
package discover

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"netscribe/internal/classify"
	"netscribe/internal/profile"
	"netscribe/internal/snmp"
)

// Target identifies one device to discover.
type Target struct {
	Address   string `json:"address" yaml:"address"`
	Community string `json:"community,omitempty" yaml:"community"`
	Port      uint16 `json:"port,omitempty" yaml:"port"`
}

// DiscoveryError is the single fatal error a caller receives: it names the
// device and the phase that failed.
type DiscoveryError struct {
	Target string
	Phase  string // connect | classify | discover
	Err    error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery of %s failed during %s: %v", e.Target, e.Phase, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// DialFunc opens an SNMP agent session for a target. The returned closer
// releases the transport handle. Swappable so tests can inject a fake
// agent.
type DialFunc func(target Target) (snmp.Agent, func() error, error)

func defaultDial(opts []snmp.Option) DialFunc {
	return func(t Target) (snmp.Agent, func() error, error) {
		c, err := snmp.Dial(t.Address, t.Port, t.Community, opts...)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	}
}

// Session is one single-shot discovery of one device. It owns its own
// transport handle for its lifetime and holds nothing shared.
type Session struct {
	ID     string
	Target Target

	log  *zap.Logger
	dial DialFunc
}

// Option adjusts session construction.
type Option func(*Session)

// WithDialer replaces the production SNMP dialer.
func WithDialer(d DialFunc) Option {
	return func(s *Session) { s.dial = d }
}

// WithClientOptions forwards transport tuning to the production dialer.
func WithClientOptions(opts ...snmp.Option) Option {
	return func(s *Session) { s.dial = defaultDial(opts) }
}

// NewSession prepares a discovery session for one target. The logger is an
// explicit handle; nil means no logging.
func NewSession(target Target, log *zap.Logger, opts ...Option) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		ID:     uuid.NewString(),
		Target: target,
		dial:   defaultDial(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = log.With(
		zap.String("session", s.ID),
		zap.String("target", target.Address))
	return s
}

// Result wraps the aggregate with session bookkeeping.
type Result struct {
	SessionID string                   `json:"sessionId"`
	Target    string                   `json:"target"`
	StartedAt time.Time                `json:"startedAt"`
	Duration  time.Duration            `json:"durationNs"`
	Device    *profile.DeviceAggregate `json:"device"`
}

// Explore performs the whole discovery: connect, fetch sysObjectID,
// classify, build the profile (reusing the already-fetched object ID) and
// run its discovery sequence. A vendor-id lookup failure is fatal; so is
// anything that breaks identity collection inside the profile.
func (s *Session) Explore(ctx context.Context) (*Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, &DiscoveryError{Target: s.Target.Address, Phase: "connect", Err: err}
	}

	agent, closeAgent, err := s.dial(s.Target)
	if err != nil {
		return nil, &DiscoveryError{Target: s.Target.Address, Phase: "connect", Err: err}
	}
	defer closeAgent()

	objectID, err := agent.Get(snmp.OIDSysObjectID)
	if err != nil {
		return nil, &DiscoveryError{Target: s.Target.Address, Phase: "classify", Err: err}
	}
	kind, vendor := classify.SelectKind(objectID)
	s.log.Info("classified device",
		zap.String("sysObjectID", objectID),
		zap.String("profile", string(kind)),
		zap.String("vendor", vendor))

	if err := ctx.Err(); err != nil {
		return nil, &DiscoveryError{Target: s.Target.Address, Phase: "discover", Err: err}
	}

	prof := profile.New(kind, agent, s.log, profile.WithObjectID(objectID))
	agg, err := prof.Discover()
	if err != nil {
		return nil, &DiscoveryError{Target: s.Target.Address, Phase: "discover", Err: err}
	}
	agg.Vendor = vendor

	s.log.Info("discovery complete",
		zap.String("sysName", agg.Identity.Name),
		zap.Int("interfaces", len(agg.Interfaces)),
		zap.Duration("took", time.Since(start)))

	return &Result{
		SessionID: s.ID,
		Target:    s.Target.Address,
		StartedAt: start,
		Duration:  time.Since(start),
		Device:    agg,
	}, nil
}

// Outcome pairs a target with its result or fatal error.
type Outcome struct {
	Target Target
	Result *Result
	Err    error
}

// ExploreAll discovers many targets concurrently, at most concurrency
// sessions in flight. Targets are independent; one fatal failure never
// affects the others. Outcomes arrive in target order.
func ExploreAll(ctx context.Context, targets []Target, concurrency int, log *zap.Logger, opts ...Option) []Outcome {
	if concurrency <= 0 {
		concurrency = 8
	}
	out := make([]Outcome, len(targets))
	sem := make(chan struct{}, concurrency)
	done := make(chan int)

	for i, t := range targets {
		go func(i int, t Target) {
			sem <- struct{}{}
			defer func() { <-sem }()
			sess := NewSession(t, log, opts...)
			res, err := sess.Explore(ctx)
			out[i] = Outcome{Target: t, Result: res, Err: err}
			done <- i
		}(i, t)
	}
	for range targets {
		<-done
	}
	return out
}
