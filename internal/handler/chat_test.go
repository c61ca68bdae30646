package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/smartystreets/goconvey/convey"

	"oracle/internal/history"
	"oracle/internal/model"
	"oracle/internal/model/auth"
	"oracle/internal/pkg/ctxutil"
	authRepo "oracle/internal/repository/auth"
	"oracle/internal/service"
)

type stubAccounts struct {
	account *auth.Account
}

func (s *stubAccounts) FindByID(ctx context.Context, id string) (*auth.Account, error) {
	if s.account == nil || s.account.ID != id {
		return nil, authRepo.ErrNotFound
	}
	cp := *s.account
	return &cp, nil
}

func (s *stubAccounts) StampQuotaMonth(ctx context.Context, id, month string) error {
	s.account.LastQueryMonth = month
	return nil
}

func (s *stubAccounts) CompareAndSwapQuota(ctx context.Context, id string, prevCount int, prevMonth string, newCount int, newMonth string) (bool, error) {
	s.account.MonthlyQueryCount = newCount
	s.account.LastQueryMonth = newMonth
	return true, nil
}

type stubGenerator struct {
	reply string
	err   error
}

func (g *stubGenerator) GenerateReply(ctx context.Context, userQuery, renderedHistory string) (string, error) {
	return g.reply, g.err
}

func newChatRouter(accounts service.AccountStore, gen service.ReplyGenerator, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)

	svc := service.NewChatService(
		service.NewLedger(accounts, 20),
		gen,
		history.NewStore(10, nil, 0),
	)
	hdl := NewChatHandler(svc)

	r := gin.New()
	r.POST("/api/v1/chat", func(c *gin.Context) {
		if userID != "" {
			c.Request = c.Request.WithContext(ctxutil.WithUserID(c.Request.Context(), userID))
		}
		hdl.Chat(c)
	})
	return r
}

func postChat(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChatHandler(t *testing.T) {
	month := service.MonthKey(time.Now())

	Convey("a valid prompt returns the reply with the remaining count", t, func() {
		accounts := &stubAccounts{account: &auth.Account{ID: "u1", MonthlyQueryCount: 4, LastQueryMonth: month}}
		r := newChatRouter(accounts, &stubGenerator{reply: "Be at peace."}, "u1")

		w := postChat(r, `{"prompt":"Why do I suffer?"}`)
		So(w.Code, ShouldEqual, http.StatusOK)

		var resp model.ChatResponse
		So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
		So(resp.Response, ShouldEqual, "Be at peace.")
		So(resp.RemainingFreeQueries, ShouldNotBeNil)
		So(*resp.RemainingFreeQueries, ShouldEqual, 15)
	})

	Convey("a subscribed account gets no remaining count field", t, func() {
		accounts := &stubAccounts{account: &auth.Account{ID: "u1", IsSubscribed: true}}
		r := newChatRouter(accounts, &stubGenerator{reply: "So be it."}, "u1")

		w := postChat(r, `{"prompt":"bless me"}`)
		So(w.Code, ShouldEqual, http.StatusOK)
		So(w.Body.String(), ShouldNotContainSubstring, "remaining_free_queries")
	})

	Convey("an empty prompt is a 400", t, func() {
		accounts := &stubAccounts{account: &auth.Account{ID: "u1"}}
		r := newChatRouter(accounts, &stubGenerator{reply: "unused"}, "u1")

		w := postChat(r, `{"prompt":"   "}`)
		So(w.Code, ShouldEqual, http.StatusBadRequest)
	})

	Convey("an exhausted quota is a 402 with the upgrade message", t, func() {
		accounts := &stubAccounts{account: &auth.Account{ID: "u1", MonthlyQueryCount: 20, LastQueryMonth: month}}
		r := newChatRouter(accounts, &stubGenerator{reply: "unused"}, "u1")

		w := postChat(r, `{"prompt":"hello"}`)
		So(w.Code, ShouldEqual, http.StatusPaymentRequired)

		var resp model.QuotaExceededResponse
		So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
		So(resp.LimitReached, ShouldBeTrue)
		So(resp.RemainingFreeQueries, ShouldEqual, 0)
		So(resp.Message, ShouldContainSubstring, "Subscribe")
	})

	Convey("an unknown account is a 404", t, func() {
		r := newChatRouter(&stubAccounts{}, &stubGenerator{reply: "unused"}, "ghost")

		w := postChat(r, `{"prompt":"hello"}`)
		So(w.Code, ShouldEqual, http.StatusNotFound)
	})

	Convey("a backend failure is a 502 and the counter is untouched", t, func() {
		accounts := &stubAccounts{account: &auth.Account{ID: "u1", MonthlyQueryCount: 4, LastQueryMonth: month}}
		r := newChatRouter(accounts, &stubGenerator{err: errors.New("model unreachable")}, "u1")

		w := postChat(r, `{"prompt":"hello"}`)
		So(w.Code, ShouldEqual, http.StatusBadGateway)
		So(accounts.account.MonthlyQueryCount, ShouldEqual, 4)
	})

	Convey("a request with no authenticated identity is a 401", t, func() {
		accounts := &stubAccounts{account: &auth.Account{ID: "u1"}}
		r := newChatRouter(accounts, &stubGenerator{reply: "unused"}, "")

		w := postChat(r, `{"prompt":"hello"}`)
		So(w.Code, ShouldEqual, http.StatusUnauthorized)
	})
}
