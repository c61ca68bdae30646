package service

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"oracle/internal/history"
	"oracle/internal/model/auth"
)

type fakeGenerator struct {
	reply string
	err   error
	calls int
}

func (g *fakeGenerator) GenerateReply(ctx context.Context, userQuery, renderedHistory string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func TestChatService(t *testing.T) {
	ctx := context.Background()

	newService := func(store *fakeAccountStore, gen *fakeGenerator) (*ChatService, *history.Store) {
		hist := history.NewStore(10, nil, 0)
		return NewChatService(NewLedger(store, 20), gen, hist), hist
	}

	Convey("a successful chat consumes quota and records the turn", t, func() {
		store := newFakeAccountStore(&auth.Account{ID: "a1", MonthlyQueryCount: 4, LastQueryMonth: MonthKey(time.Now())})
		gen := &fakeGenerator{reply: "Peace, mortal."}
		svc, hist := newService(store, gen)

		res, err := svc.Chat(ctx, "a1", "  Why do I suffer?  ")
		So(err, ShouldBeNil)
		So(res.Reply, ShouldEqual, "Peace, mortal.")
		So(res.Subscribed, ShouldBeFalse)
		So(res.RemainingFreeQueries, ShouldEqual, 20-(store.accounts["a1"].MonthlyQueryCount))

		turns := hist.Turns(ctx, "a1")
		So(turns, ShouldHaveLength, 1)
		So(turns[0].UserText, ShouldEqual, "Why do I suffer?")
		So(turns[0].ReplyText, ShouldEqual, "Peace, mortal.")
	})

	Convey("an empty prompt is rejected before any work happens", t, func() {
		store := newFakeAccountStore(&auth.Account{ID: "a1"})
		gen := &fakeGenerator{reply: "unused"}
		svc, hist := newService(store, gen)

		_, err := svc.Chat(ctx, "a1", "   \t\n ")
		So(err, ShouldEqual, ErrEmptyPrompt)
		So(gen.calls, ShouldEqual, 0)
		So(store.swaps, ShouldEqual, 0)
		So(hist.Turns(ctx, "a1"), ShouldBeEmpty)
	})

	Convey("an exhausted account never reaches the generator", t, func() {
		store := newFakeAccountStore(&auth.Account{ID: "a1", MonthlyQueryCount: 20, LastQueryMonth: MonthKey(time.Now())})
		gen := &fakeGenerator{reply: "unused"}
		svc, _ := newService(store, gen)

		_, err := svc.Chat(ctx, "a1", "hello")
		So(err, ShouldEqual, ErrQuotaExceeded)
		So(gen.calls, ShouldEqual, 0)
		So(store.accounts["a1"].MonthlyQueryCount, ShouldEqual, 20)
	})

	Convey("a generation failure consumes no quota and leaves history untouched", t, func() {
		store := newFakeAccountStore(&auth.Account{ID: "a1", MonthlyQueryCount: 4, LastQueryMonth: MonthKey(time.Now())})
		gen := &fakeGenerator{err: errors.New("model unreachable")}
		svc, hist := newService(store, gen)

		_, err := svc.Chat(ctx, "a1", "hello")
		So(errors.Is(err, ErrGenerationFailed), ShouldBeTrue)
		So(store.accounts["a1"].MonthlyQueryCount, ShouldEqual, 4)
		So(store.swaps, ShouldEqual, 0)
		So(hist.Turns(ctx, "a1"), ShouldBeEmpty)
	})

	Convey("an unknown account id surfaces as ErrAccountNotFound", t, func() {
		svc, _ := newService(newFakeAccountStore(), &fakeGenerator{reply: "unused"})

		_, err := svc.Chat(ctx, "ghost", "hello")
		So(err, ShouldEqual, ErrAccountNotFound)
	})

	Convey("a subscribed account chats without a reported remainder", t, func() {
		store := newFakeAccountStore(&auth.Account{ID: "a1", MonthlyQueryCount: 900, LastQueryMonth: MonthKey(time.Now()), IsSubscribed: true})
		gen := &fakeGenerator{reply: "So be it."}
		svc, _ := newService(store, gen)

		res, err := svc.Chat(ctx, "a1", "bless me")
		So(err, ShouldBeNil)
		So(res.Subscribed, ShouldBeTrue)
		So(store.accounts["a1"].MonthlyQueryCount, ShouldEqual, 901)
	})
}
