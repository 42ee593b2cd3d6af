package injection

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-session/entitlement"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Authority is the read side of the session the coordinator follows.
type Authority interface {
	Subscribe(handler session.EventHandler) (unsubscribe func())
	State() session.Snapshot
	UserType(ctx context.Context) entitlement.UserType
}

// Coordinator keeps every registered surface in sync with the session. It
// re-syncs all surfaces on each session event.
type Coordinator struct {
	bridge    *Bridge
	authority Authority
	logger    zerolog.Logger

	mu       sync.Mutex
	surfaces map[string]Surface

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
}

// CoordinatorOption defines a function type to modify the Coordinator instance.
type CoordinatorOption func(*Coordinator)

func WithCoordinatorLogger(logger zerolog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func NewCoordinator(bridge *Bridge, authority Authority, options ...CoordinatorOption) (*Coordinator, error) {
	if bridge == nil || authority == nil {
		return nil, errors.New("[injection.NewCoordinator] bridge and authority are required")
	}

	c := &Coordinator{
		bridge:    bridge,
		authority: authority,
		logger:    log.Logger,
		surfaces:  make(map[string]Surface),
	}
	for _, opt := range options {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.unsubscribe = authority.Subscribe(c.handle)
	return c, nil
}

// Register starts tracking surface and syncs it straight away.
func (c *Coordinator) Register(ctx context.Context, surface Surface) error {
	c.mu.Lock()
	c.surfaces[surface.ID()] = surface
	c.mu.Unlock()
	return c.Navigated(ctx, surface)
}

// Unregister stops tracking a surface that is being destroyed.
func (c *Coordinator) Unregister(surface Surface) {
	c.mu.Lock()
	delete(c.surfaces, surface.ID())
	c.mu.Unlock()
	c.bridge.Forget(surface)
}

// Navigated re-syncs a surface after it loaded a new URL.
func (c *Coordinator) Navigated(ctx context.Context, surface Surface) error {
	return c.bridge.Sync(ctx, surface, c.facts(ctx))
}

// Close stops following the session. Surfaces keep whatever they hold.
func (c *Coordinator) Close() {
	c.unsubscribe()
	c.cancel()
}

func (c *Coordinator) facts(ctx context.Context) Facts {
	var f Facts
	if b := c.authority.State().Bundle; b != nil {
		f.AccessToken = b.AccessToken
		f.RefreshToken = b.RefreshToken
	}
	f.HasPremium = c.authority.UserType(ctx).HasPremium()
	return f
}

func (c *Coordinator) handle(e session.Event) {
	if c.ctx.Err() != nil {
		return
	}

	c.mu.Lock()
	surfaces := make([]Surface, 0, len(c.surfaces))
	for _, s := range c.surfaces {
		surfaces = append(surfaces, s)
	}
	c.mu.Unlock()

	facts := c.facts(c.ctx)
	for _, s := range surfaces {
		if err := c.bridge.Sync(c.ctx, s, facts); err != nil {
			c.logger.Warn().Err(err).Str("surface", s.ID()).Str("event", string(e.Kind)).Msg("failed to sync credentials into surface")
		}
	}
}
