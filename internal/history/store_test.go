package history

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"oracle/internal/pkg/cache"
)

// fakeCache is an in-memory Cache holding turn snapshots by key.
type fakeCache struct {
	data map[string][]Turn
	sets int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]Turn)}
}

func (f *fakeCache) Get(ctx context.Context, key string, dest any) error {
	turns, ok := f.data[key]
	if !ok {
		return errors.New("cache miss")
	}
	out := dest.(*[]Turn)
	*out = append([]Turn(nil), turns...)
	return nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	f.data[key] = append([]Turn(nil), value.([]Turn)...)
	f.sets++
	return nil
}

func TestStore_AppendAndTrim(t *testing.T) {
	ctx := context.Background()

	Convey("Append keeps the most recent maxTurns entries in order", t, func() {
		s := NewStore(10, nil, 0)

		for i := 1; i <= 10; i++ {
			s.Append(ctx, "acct", Turn{
				UserText:  fmt.Sprintf("q%d", i),
				ReplyText: fmt.Sprintf("r%d", i),
			})
		}

		turns := s.Turns(ctx, "acct")
		So(len(turns), ShouldEqual, 10)
		So(turns[0].UserText, ShouldEqual, "q1")
		So(turns[9].UserText, ShouldEqual, "q10")

		Convey("the 11th turn evicts the oldest", func() {
			s.Append(ctx, "acct", Turn{UserText: "q11", ReplyText: "r11"})

			turns := s.Turns(ctx, "acct")
			So(len(turns), ShouldEqual, 10)
			So(turns[0].UserText, ShouldEqual, "q2")
			So(turns[9].UserText, ShouldEqual, "q11")
		})
	})

	Convey("histories are scoped per account", t, func() {
		s := NewStore(10, nil, 0)

		s.Append(ctx, "alice", Turn{UserText: "hi", ReplyText: "hello alice"})
		s.Append(ctx, "bob", Turn{UserText: "hey", ReplyText: "hello bob"})

		So(len(s.Turns(ctx, "alice")), ShouldEqual, 1)
		So(len(s.Turns(ctx, "bob")), ShouldEqual, 1)
		So(s.Turns(ctx, "alice")[0].ReplyText, ShouldEqual, "hello alice")
		So(len(s.Turns(ctx, "carol")), ShouldEqual, 0)
	})

	Convey("Turns returns a copy the caller cannot mutate", t, func() {
		s := NewStore(10, nil, 0)
		s.Append(ctx, "acct", Turn{UserText: "q", ReplyText: "r"})

		turns := s.Turns(ctx, "acct")
		turns[0].UserText = "tampered"

		So(s.Turns(ctx, "acct")[0].UserText, ShouldEqual, "q")
	})
}

func TestStore_WarmCache(t *testing.T) {
	ctx := context.Background()

	Convey("a fresh store warms an unknown account from the cache", t, func() {
		c := newFakeCache()
		c.data[cache.HistoryCacheKey("acct")] = []Turn{
			{UserText: "cached q", ReplyText: "cached r"},
		}
		s := NewStore(10, c, time.Hour)

		turns := s.Turns(ctx, "acct")
		So(len(turns), ShouldEqual, 1)
		So(turns[0].UserText, ShouldEqual, "cached q")

		Convey("and keeps serving it from memory afterwards", func() {
			c.data[cache.HistoryCacheKey("acct")] = nil
			So(len(s.Turns(ctx, "acct")), ShouldEqual, 1)
		})
	})

	Convey("an oversized cached history is trimmed to the most recent turns on load", t, func() {
		c := newFakeCache()
		var cached []Turn
		for i := 1; i <= 12; i++ {
			cached = append(cached, Turn{
				UserText:  fmt.Sprintf("q%d", i),
				ReplyText: fmt.Sprintf("r%d", i),
			})
		}
		c.data[cache.HistoryCacheKey("acct")] = cached
		s := NewStore(10, c, time.Hour)

		turns := s.Turns(ctx, "acct")
		So(len(turns), ShouldEqual, 10)
		So(turns[0].UserText, ShouldEqual, "q3")
		So(turns[9].UserText, ShouldEqual, "q12")
	})

	Convey("in-memory history wins over a stale cache entry", t, func() {
		c := newFakeCache()
		s := NewStore(10, c, time.Hour)

		s.Append(ctx, "acct", Turn{UserText: "live q", ReplyText: "live r"})
		c.data[cache.HistoryCacheKey("acct")] = []Turn{
			{UserText: "stale q", ReplyText: "stale r"},
		}

		So(s.Turns(ctx, "acct")[0].UserText, ShouldEqual, "live q")
	})

	Convey("Append writes a snapshot through to the cache", t, func() {
		c := newFakeCache()
		s := NewStore(10, c, time.Hour)

		s.Append(ctx, "acct", Turn{UserText: "q1", ReplyText: "r1"})
		s.Append(ctx, "acct", Turn{UserText: "q2", ReplyText: "r2"})

		snapshot := c.data[cache.HistoryCacheKey("acct")]
		So(len(snapshot), ShouldEqual, 2)
		So(snapshot[1].UserText, ShouldEqual, "q2")
		So(c.sets, ShouldEqual, 2)

		Convey("a cache miss for another account stays empty", func() {
			So(len(s.Turns(ctx, "other")), ShouldEqual, 0)
		})
	})
}

func TestRender(t *testing.T) {
	Convey("Render serializes history for prompt interpolation", t, func() {
		Convey("an empty history renders as the empty string, no label", func() {
			So(Render(nil), ShouldEqual, "")
			So(Render([]Turn{}), ShouldEqual, "")
		})

		Convey("turns render as User/God line pairs in original order", func() {
			turns := []Turn{
				{UserText: "first question", ReplyText: "first answer"},
				{UserText: "second question", ReplyText: "second answer"},
			}

			got := Render(turns)
			So(got, ShouldEqual, "PREVIOUS CONVERSATION:\n"+
				"User: first question\n"+
				"God: first answer\n"+
				"User: second question\n"+
				"God: second answer\n"+
				"\n")
		})
	})
}
