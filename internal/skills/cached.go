package skills

import (
	"context"
	"log/slog"
	"time"

	"github.com/lydakis/dojutsu/internal/cache"
	"github.com/lydakis/dojutsu/internal/ipc"
	"github.com/lydakis/dojutsu/internal/logging"
)

// Caller performs one daemon call. *ipc.Client implements it.
type Caller interface {
	Call(ctx context.Context, function string, args []string) (*ipc.Result, error)
}

// CachedCaller serves selected functions from the local response cache.
// Only successful responses are stored.
type CachedCaller struct {
	next      Caller
	pkg       string
	ttl       time.Duration
	cacheable func(function string) bool
	logger    *slog.Logger
}

// NewCachedCaller wraps next. cacheable decides per function whether the
// cache is consulted.
func NewCachedCaller(next Caller, pkg string, ttl time.Duration, cacheable func(string) bool, logger *slog.Logger) *CachedCaller {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CachedCaller{next: next, pkg: pkg, ttl: ttl, cacheable: cacheable, logger: logger}
}

func (c *CachedCaller) Call(ctx context.Context, function string, args []string) (*ipc.Result, error) {
	if c.cacheable == nil || !c.cacheable(function) || c.ttl <= 0 {
		return c.next.Call(ctx, function, args)
	}

	key := cache.Key{Package: c.pkg, Function: function, Args: args}
	if data, ok := cache.Get(key); ok {
		if res, err := ipc.ParseResult(data); err == nil && !res.Failed() {
			c.logger.Debug("cache hit", "function", function)
			return res, nil
		}
	}

	res, err := c.next.Call(ctx, function, args)
	if err != nil {
		return nil, err
	}
	if err := cache.Put(key, res.Raw(), c.ttl); err != nil {
		c.logger.Warn("writing response cache failed", "function", function, "error", err)
	}
	return res, nil
}
