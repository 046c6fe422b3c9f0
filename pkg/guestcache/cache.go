// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package guestcache

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/testing-farm/schedule-runner/pkg/guest"
	"github.com/testing-farm/schedule-runner/pkg/testingenvironment"
	"github.com/testing-farm/schedule-runner/pkg/util"
)

// DestroyFunc releases a guest that cannot be reused anymore.
type DestroyFunc func(ctx context.Context, g guest.Guest) error

// Cache holds idle guests keyed by the testing environment they were provisioned for.
// The lock is only held while guests are added or removed, never during health checks or destroys.
type Cache struct {
	log     logr.Logger
	destroy DestroyFunc

	mut    sync.Mutex
	guests map[testingenvironment.Key][]guest.Guest
}

// New creates an empty cache. destroy is used for dead and left over guests.
func New(log logr.Logger, destroy DestroyFunc) *Cache {
	if destroy == nil {
		destroy = func(ctx context.Context, g guest.Guest) error { return g.Destroy(ctx) }
	}
	return &Cache{
		log:     log.WithName("guest-cache"),
		destroy: destroy,
		guests:  map[testingenvironment.Key][]guest.Guest{},
	}
}

// Put adds an idle guest to the cache.
func (c *Cache) Put(env testingenvironment.TestingEnvironment, g guest.Guest) {
	key := env.Key()
	c.mut.Lock()
	defer c.mut.Unlock()
	for _, cached := range c.guests[key] {
		if cached == g {
			c.log.V(3).Info("guest is already cached", "guest", g.Name())
			return
		}
	}
	c.guests[key] = append(c.guests[key], g)
	c.log.V(3).Info("guest added to cache", "guest", g.Name())
}

// pop removes the first guest for the given key.
func (c *Cache) pop(key testingenvironment.Key) (guest.Guest, bool) {
	c.mut.Lock()
	defer c.mut.Unlock()
	guests := c.guests[key]
	if len(guests) == 0 {
		return nil, false
	}
	g := guests[0]
	if len(guests) == 1 {
		delete(c.guests, key)
	} else {
		c.guests[key] = guests[1:]
	}
	return g, true
}

// Claim returns an alive guest for the environment and removes it from the cache.
// Cached guests that fail the liveness probe are destroyed.
// nil is returned if no usable guest is cached.
func (c *Cache) Claim(ctx context.Context, env testingenvironment.TestingEnvironment) guest.Guest {
	key := env.Key()
	for {
		g, ok := c.pop(key)
		if !ok {
			return nil
		}
		if err := g.WaitAlive(ctx); err != nil {
			c.log.Info("cached guest is not alive, destroying it", "guest", g.Name(), "error", err.Error())
			if err := c.destroy(ctx, g); err != nil {
				c.log.Error(err, "unable to destroy dead guest", "guest", g.Name())
			}
			continue
		}
		c.log.V(3).Info("reusing cached guest", "guest", g.Name())
		return g
	}
}

// Len returns the number of idle guests.
func (c *Cache) Len() int {
	c.mut.Lock()
	defer c.mut.Unlock()
	n := 0
	for _, guests := range c.guests {
		n += len(guests)
	}
	return n
}

// Drain removes all guests from the cache and destroys them.
// At most limit guests are destroyed at the same time, 0 means no limit.
func (c *Cache) Drain(ctx context.Context, limit int) error {
	c.mut.Lock()
	all := []guest.Guest{}
	for _, guests := range c.guests {
		all = append(all, guests...)
	}
	c.guests = map[testingenvironment.Key][]guest.Guest{}
	c.mut.Unlock()

	if len(all) == 0 {
		return nil
	}
	c.log.Info("destroying cached guests", "count", len(all))

	var (
		mut    sync.Mutex
		result *multierror.Error
	)
	g := errgroup.Group{}
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, cached := range all {
		cached := cached
		g.Go(func() error {
			if err := c.destroy(ctx, cached); err != nil {
				mut.Lock()
				result = multierror.Append(result, errors.Wrapf(err, "unable to destroy guest %s", cached.Name()))
				mut.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return util.ReturnMultiError(result)
}
