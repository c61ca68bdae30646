package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"oracle/internal/history"
	"oracle/internal/pkg/keylock"
)

var (
	// ErrEmptyPrompt rejects a prompt that is empty after trimming.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
	// ErrQuotaExceeded rejects a free-tier account over its monthly limit.
	ErrQuotaExceeded = errors.New("monthly free quota exceeded")
	// ErrGenerationFailed wraps a backend failure; no quota is consumed.
	ErrGenerationFailed = errors.New("generation failed")
)

// ReplyGenerator is the prompt pipeline as the chat flow sees it.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, userQuery, renderedHistory string) (string, error)
}

// ChatService orchestrates one chat request: quota check, two-stage
// generation, history append, quota commit.
type ChatService struct {
	ledger   *Ledger
	pipeline ReplyGenerator
	history  *history.Store

	// accountLocks serializes requests per account so a request runs to
	// completion, including its quota commit, before the account's next
	// request evaluates its quota.
	accountLocks *keylock.KeyLock
}

// NewChatService creates the chat orchestration service.
func NewChatService(ledger *Ledger, pipeline ReplyGenerator, historyStore *history.Store) *ChatService {
	return &ChatService{
		ledger:       ledger,
		pipeline:     pipeline,
		history:      historyStore,
		accountLocks: keylock.New(),
	}
}

// ChatResult is a completed chat request.
type ChatResult struct {
	Reply string
	// RemainingFreeQueries is meaningful only when Subscribed is false.
	RemainingFreeQueries int
	Subscribed           bool
}

// Chat handles one prompt for one account.
func (s *ChatService) Chat(ctx context.Context, accountID, prompt string) (*ChatResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	s.accountLocks.Lock(accountID)
	defer s.accountLocks.Unlock(accountID)

	decision, err := s.ledger.Check(ctx, accountID, time.Now())
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, ErrQuotaExceeded
	}

	turns := s.history.Turns(ctx, accountID)
	reply, err := s.pipeline.GenerateReply(ctx, prompt, history.Render(turns))
	if err != nil {
		// Failed generations consume no quota and leave history untouched.
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	remaining, err := s.ledger.Commit(ctx, decision)
	if err != nil {
		log.Error().Err(err).Str("account_id", accountID).Msg("quota commit failed after successful generation")
		return nil, err
	}

	s.history.Append(ctx, accountID, history.Turn{UserText: prompt, ReplyText: reply})

	return &ChatResult{
		Reply:                reply,
		RemainingFreeQueries: remaining,
		Subscribed:           decision.Subscribed,
	}, nil
}
