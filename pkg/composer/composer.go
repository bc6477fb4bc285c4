// Package composer turns an utterance and an optional tool result into the
// assistant's reply text.
package composer

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"time"

	"github.com/harun/toolbot/pkg/toolexecutor"
)

// Branch identifies which reply rule produced a response.
type Branch string

const (
	BranchGreeting    Branch = "greeting"
	BranchHelp        Branch = "help"
	BranchToolReport  Branch = "tool_report"
	BranchToolFailure Branch = "tool_failure"
	BranchFallback    Branch = "fallback"
)

const (
	// GreetingMessage introduces the assistant.
	GreetingMessage = "Hello! I'm your agentic assistant. I can help you with calculations, tell you the time, generate random numbers, count words, and chat. What would you like to do?"

	// HelpMessage summarizes what the assistant can do.
	HelpMessage = "I'm an agentic assistant with several capabilities:\n\n" +
		"- Mathematical calculations\n" +
		"- Current time and date\n" +
		"- Random number generation\n" +
		"- Word counting\n" +
		"- General conversation\n\n" +
		"I pick the right tool automatically. Just ask me naturally."

	timeDisplayLayout = "Monday, January 2, 2006 at 3:04:05 PM MST"
)

// FallbackReplies is the pool a generic reply is drawn from.
var FallbackReplies = []string{
	"That's interesting! Is there anything specific I can help you with? I can do calculations, check the time, or generate random numbers.",
	"I understand. Would you like me to perform any calculations or use one of my tools?",
	"I'm here to help! You can ask me to calculate something, tell you the time, or generate random numbers.",
	"Got it! Feel free to ask me anything. I have several tools at my disposal to assist you.",
}

var (
	greetingPattern = regexp.MustCompile(`(?i)^\s*(?:hi|hello|hey|greetings)\b`)
	helpPattern     = regexp.MustCompile(`(?i)what can you do|\bhelp\b|capabilities|features`)
)

// RandSource picks fallback replies.
type RandSource interface {
	Intn(n int) int
}

type globalRand struct{}

func (globalRand) Intn(n int) int { return rand.Intn(n) }

// Options configures a Composer.
type Options struct {
	// Rand defaults to the math/rand global source.
	Rand RandSource
	// AcknowledgeFailures replies with an explicit apology when a tool
	// failed instead of drawing from the fallback pool.
	AcknowledgeFailures bool
}

// Composer builds reply text. It holds no mutable state of its own.
type Composer struct {
	rand                RandSource
	acknowledgeFailures bool
}

// New creates a Composer.
func New(opts Options) *Composer {
	if opts.Rand == nil {
		opts.Rand = globalRand{}
	}
	return &Composer{
		rand:                opts.Rand,
		acknowledgeFailures: opts.AcknowledgeFailures,
	}
}

// Branch reports which rule Compose would use. It is deterministic.
func (c *Composer) Branch(utterance string, result *toolexecutor.ToolResult) Branch {
	switch {
	case greetingPattern.MatchString(utterance):
		return BranchGreeting
	case helpPattern.MatchString(utterance):
		return BranchHelp
	case result != nil && result.Success && reportField(result.Output) != "":
		return BranchToolReport
	case result != nil && !result.Success && c.acknowledgeFailures:
		return BranchToolFailure
	default:
		return BranchFallback
	}
}

// Compose returns the reply for utterance. result is nil when no tool ran.
func (c *Composer) Compose(utterance string, result *toolexecutor.ToolResult) string {
	switch c.Branch(utterance, result) {
	case BranchGreeting:
		return GreetingMessage
	case BranchHelp:
		return HelpMessage
	case BranchToolReport:
		return report(result.Output)
	case BranchToolFailure:
		return fmt.Sprintf("Sorry, I couldn't complete that: %s. Could you rephrase it?", result.Error)
	default:
		return FallbackReplies[c.rand.Intn(len(FallbackReplies))]
	}
}

// reportField returns the first payload field a template exists for.
func reportField(payload map[string]interface{}) string {
	for _, field := range []string{"result", "time", "number", "count"} {
		if _, ok := payload[field]; ok {
			return field
		}
	}
	return ""
}

func report(payload map[string]interface{}) string {
	switch reportField(payload) {
	case "result":
		return "The result is: " + formatNumber(payload["result"])
	case "time":
		return "The current time is " + formatTime(payload["time"])
	case "number":
		return "I generated the random number: " + formatNumber(payload["number"])
	default:
		return fmt.Sprintf("Word count: %s words, %s characters",
			formatNumber(payload["count"]), formatNumber(payload["characters"]))
	}
}

func formatNumber(v interface{}) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case nil:
		return "0"
	default:
		return fmt.Sprint(n)
	}
}

func formatTime(v interface{}) string {
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return t.UTC().Format(timeDisplayLayout)
}
