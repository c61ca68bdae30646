package ai

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// scriptedInvoker replays canned replies and records every prompt it saw.
type scriptedInvoker struct {
	replies []string
	errs    []error
	prompts []string
}

func (s *scriptedInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	i := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "", errors.New("unexpected invocation")
}

func TestPipeline_GenerateReply(t *testing.T) {
	Convey("GenerateReply runs exactly two sequential invocations", t, func() {
		ctx := context.Background()

		Convey("with empty history", func() {
			invoker := &scriptedInvoker{replies: []string{"  raw draft  ", "  final words  "}}
			p := NewPipeline(invoker)

			got, err := p.GenerateReply(ctx, "Why do I suffer?", "")
			So(err, ShouldBeNil)
			So(got, ShouldEqual, "final words")
			So(len(invoker.prompts), ShouldEqual, 2)

			Convey("stage 1 interpolates the query and no history label", func() {
				So(invoker.prompts[0], ShouldContainSubstring, `CURRENT USER QUERY: "Why do I suffer?"`)
				So(invoker.prompts[0], ShouldNotContainSubstring, "PREVIOUS CONVERSATION")
			})

			Convey("stage 2 is derived from stage 1's trimmed output", func() {
				So(invoker.prompts[1], ShouldContainSubstring, `"raw draft"`)
				So(invoker.prompts[1], ShouldNotContainSubstring, "Why do I suffer?")
			})
		})

		Convey("with rendered history", func() {
			history := "PREVIOUS CONVERSATION:\nUser: hello\nGod: greetings\n\n"
			invoker := &scriptedInvoker{replies: []string{"draft", "final"}}
			p := NewPipeline(invoker)

			_, err := p.GenerateReply(ctx, "and now?", history)
			So(err, ShouldBeNil)
			So(invoker.prompts[0], ShouldContainSubstring, "PREVIOUS CONVERSATION:\nUser: hello\nGod: greetings")
			So(invoker.prompts[0], ShouldContainSubstring, `CURRENT USER QUERY: "and now?"`)
		})
	})

	Convey("GenerateReply propagates backend failures without retrying", t, func() {
		ctx := context.Background()
		backendErr := errors.New("backend timeout")

		Convey("stage 1 failure stops the pipeline after one call", func() {
			invoker := &scriptedInvoker{errs: []error{backendErr}}
			p := NewPipeline(invoker)

			_, err := p.GenerateReply(ctx, "hello", "")
			So(errors.Is(err, backendErr), ShouldBeTrue)
			So(len(invoker.prompts), ShouldEqual, 1)
		})

		Convey("stage 2 failure propagates and the draft is never returned", func() {
			invoker := &scriptedInvoker{
				replies: []string{"draft", ""},
				errs:    []error{nil, backendErr},
			}
			p := NewPipeline(invoker)

			got, err := p.GenerateReply(ctx, "hello", "")
			So(errors.Is(err, backendErr), ShouldBeTrue)
			So(got, ShouldEqual, "")
			So(len(invoker.prompts), ShouldEqual, 2)
		})
	})
}
