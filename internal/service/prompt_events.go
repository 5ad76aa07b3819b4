package service

import (
	"context"
	"strings"

	"github.com/Strob0t/PromptForge/internal/logger"
	"github.com/Strob0t/PromptForge/internal/port/messagequeue"
)

// cacheKeyForSubject maps an event subject to the list snapshot it makes
// stale.
func cacheKeyForSubject(subject string) string {
	switch {
	case strings.Contains(subject, ".composition."):
		return cacheKeyCompositions
	case strings.Contains(subject, ".persona."):
		return cacheKeyPersonas
	case strings.Contains(subject, ".fragment."):
		return cacheKeyFragments
	}
	return ""
}

// StartChangeSubscriber listens for change events of every console sharing
// the subject prefix and drops the affected cached lists, so a change made
// elsewhere is visible here without waiting for the cache TTL. It is a
// no-op without a queue or a cache.
func (s *PromptService) StartChangeSubscriber(ctx context.Context) (cancel func(), err error) {
	if s.queue == nil || s.cache == nil {
		return func() {}, nil
	}
	return s.queue.Subscribe(ctx, messagequeue.Subject(s.prefix, ">"), func(msgCtx context.Context, subject string, _ []byte) error {
		key := cacheKeyForSubject(subject)
		if key == "" {
			return nil
		}
		logger.From(msgCtx, s.log).Debug("list changed elsewhere", "subject", subject, "cache_key", key)
		return s.cache.Delete(msgCtx, key)
	})
}
