package session

import (
	"context"
	"log"
	"os"
	"strings"
	"time"
)

var sessionDebugEnabled = strings.EqualFold(os.Getenv("QUICKREF_DEBUG"), "1")

func debugLog(format string, args ...interface{}) {
	if sessionDebugEnabled {
		log.Printf(format, args...)
	}
}

// StartCleaner periodically purges expired sessions until ctx is done. Stores that expire on
// their own (redis) are left alone.
func StartCleaner(ctx context.Context, store Store, interval time.Duration) {
	p, ok := store.(Purger)
	if !ok {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go cleanupLoop(ctx, p, interval)
}

func cleanupLoop(ctx context.Context, p Purger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PurgeExpired(ctx)
			if err != nil {
				log.Printf("purge expired sessions error: %v", err)
				continue
			}
			if n > 0 {
				debugLog("purged %d expired sessions", n)
			}
		}
	}
}
