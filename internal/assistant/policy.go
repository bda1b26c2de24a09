// Package assistant produces the replies of the task assistant.
//
// Replies are canned or derived from the caller's tasks; no model is involved.
// A ResponsePolicy can be swapped without touching the chat service.
package assistant

import (
	"fmt"
	"math/rand/v2"

	"github.com/adanyl0v/manageq/internal/models"
)

type ResponsePolicy interface {
	// Name identifies the policy in logs and metrics.
	Name() string

	// Respond returns the assistant reply to message. The tasks are the
	// caller's full task list and must not be modified.
	Respond(message string, tasks []*models.Task) string
}

// CannedResponses are the replies of RandomPolicy.
var CannedResponses = []string{
	"I understand you're working on task management. How can I help you organize your tasks better?",
	"That's a great question! Let me help you with your task planning.",
	"I can help you prioritize your tasks. Would you like me to suggest a priority order?",
	"Task management is important for productivity. What specific area would you like to focus on?",
	"I'm here to assist with your task organization. What would you like to accomplish today?",
}

type RandomPolicy struct {
	responses []string
	intN      func(n int) int
}

// NewRandomPolicy picks uniformly from CannedResponses.
func NewRandomPolicy() *RandomPolicy {
	return NewRandomPolicyWith(CannedResponses, rand.IntN)
}

// NewRandomPolicyWith picks from responses using intN, which must
// return a value in [0, n).
func NewRandomPolicyWith(responses []string, intN func(n int) int) *RandomPolicy {
	return &RandomPolicy{
		responses: responses,
		intN:      intN,
	}
}

func (p *RandomPolicy) Name() string {
	return "random"
}

func (p *RandomPolicy) Respond(string, []*models.Task) string {
	if len(p.responses) == 0 {
		return ""
	}
	return p.responses[p.intN(len(p.responses))]
}

// PolicyByName builds the policy selected by configuration: "stats" is
// the stats-aware policy falling back to canned replies, "random" the
// canned replies alone.
func PolicyByName(name string) (ResponsePolicy, error) {
	switch name {
	case "", "stats":
		return NewStatsAwarePolicy(NewRandomPolicy()), nil
	case "random":
		return NewRandomPolicy(), nil
	}
	return nil, fmt.Errorf("unknown response policy: %q", name)
}
