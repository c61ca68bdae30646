package keylock

import (
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestKeyLock(t *testing.T) {
	Convey("the same key serializes concurrent sections", t, func() {
		kl := New()
		counter := 0

		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				kl.Lock("acct")
				counter++
				kl.Unlock("acct")
			}()
		}
		wg.Wait()

		So(counter, ShouldEqual, 100)
	})

	Convey("idle keys are removed from the map", t, func() {
		kl := New()

		for i := 0; i < 1000; i++ {
			key := fmt.Sprintf("acct-%d", i)
			kl.Lock(key)
			kl.Unlock(key)
		}

		kl.mu.Lock()
		size := len(kl.locks)
		kl.mu.Unlock()
		So(size, ShouldEqual, 0)
	})

	Convey("a held key stays in the map until released", t, func() {
		kl := New()
		kl.Lock("acct")

		kl.mu.Lock()
		size := len(kl.locks)
		kl.mu.Unlock()
		So(size, ShouldEqual, 1)

		kl.Unlock("acct")

		kl.mu.Lock()
		size = len(kl.locks)
		kl.mu.Unlock()
		So(size, ShouldEqual, 0)
	})

	Convey("different keys do not block each other", t, func() {
		kl := New()
		kl.Lock("a")

		done := make(chan struct{})
		go func() {
			kl.Lock("b")
			kl.Unlock("b")
			close(done)
		}()

		<-done
		kl.Unlock("a")
	})
}
