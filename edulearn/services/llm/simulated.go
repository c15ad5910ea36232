package llm

import (
	"context"
	"sync/atomic"
	"time"

	"edulearn/edulearn/services/chatsession"
)

var cannedReplies = []string{
	"That's a great question! Let's break it down step by step. What part feels least clear to you right now?",
	"Good thinking. Try writing down what you already know and what you're asked to find, then we can connect the two.",
	"Let's check your understanding with a quick example. Can you explain the idea back to me in your own words?",
	"You're on the right track! A common mistake here is skipping a step, so let's go through it slowly together.",
}

// Simulated answers with canned tutoring replies after a fixed delay.
type Simulated struct {
	Delay   time.Duration
	Replies []string

	next atomic.Uint64
}

func NewSimulated(delay time.Duration) *Simulated {
	return &Simulated{Delay: delay, Replies: cannedReplies}
}

func (s *Simulated) GenerateResponse(ctx context.Context, _ chatsession.SessionContext) (chatsession.Message, error) {
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return chatsession.Message{}, ctx.Err()
	}
	replies := s.Replies
	if len(replies) == 0 {
		replies = cannedReplies
	}
	i := s.next.Add(1) - 1
	return chatsession.Message{
		Sender: chatsession.SenderAssistant,
		Text:   replies[i%uint64(len(replies))],
	}, nil
}
