// Package queue contains the pure business logic for message queueing:
// eligibility, per-topic ordering, and compensation delay rules.
// This is part of the Functional Core - no I/O, only pure functions.
package queue

import (
	"fmt"
	"sort"
	"time"

	"github.com/example/atelier/internal/models"
)

// IsEligible reports whether a pending message may be dispatched at now.
// Only pending messages are eligible; except_execute_time gates when.
func IsEligible(msg *models.QueuedMessage, now time.Time) bool {
	if msg.Status != models.MessageStatusPending {
		return false
	}
	return !msg.ExceptExecuteTime.After(now)
}

// Less defines the per-topic processing order: non-decreasing
// except_execute_time, ties broken by ID ascending (insertion order).
func Less(a, b *models.QueuedMessage) bool {
	if !a.ExceptExecuteTime.Equal(b.ExceptExecuteTime) {
		return a.ExceptExecuteTime.Before(b.ExceptExecuteTime)
	}
	return a.ID < b.ID
}

// SortMessages orders messages in processing order.
func SortMessages(msgs []*models.QueuedMessage) {
	sort.SliceStable(msgs, func(i, j int) bool { return Less(msgs[i], msgs[j]) })
}

// Delayed returns the new except_execute_time for a delayed message.
// Delay shifts from the later of the scheduled time and now, so a message
// already overdue is pushed to now+delay rather than into the near past.
func Delayed(current, now time.Time, delay time.Duration) time.Time {
	base := current
	if now.After(base) {
		base = now
	}
	return base.Add(delay)
}

// DispatchContext provides pre-fetched state for the dispatch guard.
type DispatchContext struct {
	Message           *models.QueuedMessage
	Now               time.Time
	TopicExists       bool
	CurrentTaskID     string
	CurrentTaskStatus models.TaskStatus
}

// Decision is the outcome of evaluating a candidate message.
type Decision int

const (
	// DecisionDispatch means the message should trigger a task now.
	DecisionDispatch Decision = iota
	// DecisionSkip means another worker owns the topic's active task;
	// leave the message pending for a later poll.
	DecisionSkip
	// DecisionReject means the message cannot be dispatched at all.
	DecisionReject
)

// Decide evaluates whether a candidate message should be dispatched.
// Skip (not reject) when the topic's current task is non-terminal or the
// queue has nothing eligible: a racing worker claiming the message
// between the poller's topic scan and this peek is routine, and the next
// poll re-evaluates the topic.
func Decide(ctx DispatchContext) (Decision, string) {
	if ctx.Message == nil {
		return DecisionSkip, "no eligible message"
	}
	if !ctx.TopicExists {
		return DecisionReject, fmt.Sprintf("topic %s not found", ctx.Message.TopicID)
	}
	if !IsEligible(ctx.Message, ctx.Now) {
		return DecisionSkip, fmt.Sprintf("message %s not eligible yet", ctx.Message.ID)
	}
	if ctx.CurrentTaskID != "" && !ctx.CurrentTaskStatus.IsTerminal() {
		return DecisionSkip, fmt.Sprintf("topic %s has active task %s", ctx.Message.TopicID, ctx.CurrentTaskID)
	}
	return DecisionDispatch, ""
}
