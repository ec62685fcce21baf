package fuse_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fwojciec/wikifuse"
	"github.com/fwojciec/wikifuse/fuse"
	"github.com/stretchr/testify/assert"
)

func TestLocker(t *testing.T) {
	t.Parallel()

	t.Run("serializes work on the same key", func(t *testing.T) {
		t.Parallel()

		l := fuse.NewLocker()
		var active, peak atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := l.Lock("onepiece/luffy")
				defer unlock()

				n := active.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				active.Add(-1)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), peak.Load())
		assert.Zero(t, l.Len())
	})

	t.Run("distinct keys do not block each other", func(t *testing.T) {
		t.Parallel()

		l := fuse.NewLocker()
		unlockA := l.Lock(wikifuse.EntityKey("onepiece/luffy"))
		unlockB := l.Lock(wikifuse.EntityKey("onepiece/zoro"))

		assert.Equal(t, 2, l.Len())
		unlockA()
		unlockB()
		unlockB()
		assert.Zero(t, l.Len())
	})
}
