// Package cache stores short-lived copies of slow provider answers, such as
// the lists shown in the admin UI.
//
// Backends:
//   - Local: in-memory, github.com/patrickmn/go-cache
//   - Redis: shared across instances, github.com/go-redis/redis/v8
//   - TwoTier: local L1 in front of Redis L2
//
// Values are stored as bytes; GetJSON and SetJSON encode structured values.
//
//	c := cache.New(cache.Config{TTL: 5 * time.Minute, RedisClient: rdb})
//	var lists []providers.List
//	if !cache.GetJSON(ctx, c, "lists:mailchimp", &lists) {
//		lists, err = p.Lists(ctx)
//		_ = cache.SetJSON(ctx, c, "lists:mailchimp", lists, 0)
//	}
package cache
