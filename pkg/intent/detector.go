package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/harun/toolbot/pkg/coretools"
)

// Intent names reported in Detection.Intent.
const (
	IntentNone         = ""
	IntentArithmetic   = "arithmetic"
	IntentTime         = "time"
	IntentRandomNumber = "random_number"
	IntentWordCount    = "word_count"
)

// Fallback bounds used when a random-number request names no range.
const (
	DefaultRandomMin = 1
	DefaultRandomMax = 100
)

// Detection is the outcome of intent detection. Tool is empty when no tool
// should run.
type Detection struct {
	Intent string                 `json:"intent,omitempty"`
	Tool   string                 `json:"tool,omitempty"`
	Args   map[string]interface{} `json:"args,omitempty"`
}

// HasTool reports whether a tool was selected.
func (d Detection) HasTool() bool {
	return d.Tool != ""
}

// extractor pulls tool arguments out of the utterance. match is the trigger
// location in utterance. ok=false means the rule does not fire.
type extractor func(utterance string, match []int) (args map[string]interface{}, ok bool)

type rule struct {
	intent  string
	tool    string
	trigger *regexp.Regexp
	extract extractor
}

// signedNumber is an operand with an optional sign; ".5" is a number too.
const signedNumber = `(?:[-+]\s*)?(?:\d+(?:\.\d+)?|\.\d+)`

var (
	arithmeticTrigger = regexp.MustCompile(`(?i)calculate|compute|math|what(?:'s|’s|\s+is)\s*\(*\s*[-+]?\s*\.?\d|\d\s*[-+*/]\s*\(*\s*[-+]?\s*\.?\d`)
	arithmeticExpr    = regexp.MustCompile(`\(*\s*` + signedNumber + `\s*\)*(?:\s*[-+*/]\s*\(*\s*` + signedNumber + `\s*\)*)+`)

	timeTrigger = regexp.MustCompile(`(?i)what\s+time|current\s+time|what(?:'s|’s|\s+is)\s+the\s+(?:time|date)|date\s+today|today'?s\s+date|current\s+date`)

	randomTrigger = regexp.MustCompile(`(?i)random\s+number|pick\s+a\s+number|generate.*number`)
	randomBetween = regexp.MustCompile(`(?i)between\s+(-?\d+)\s+and\s+(-?\d+)`)

	wordCountTrigger = regexp.MustCompile(`(?i)count.*?words|how\s+many\s+words|word\s+count`)
	quotedText       = regexp.MustCompile(`"([^"]+)"|“([^”]+)”|‘([^’]+)’|(?:^|[^\p{L}\p{N}])'([^']+)'`)
	trailingText     = regexp.MustCompile(`(?s)[:\-–—]\s*(.+)$`)
)

// Detector maps an utterance to at most one tool invocation. Rules are
// evaluated in order; the first rule whose trigger matches and whose
// extractor succeeds wins.
type Detector struct {
	rules []rule
}

// New creates a detector with the built-in rule table.
func New() *Detector {
	return &Detector{
		rules: []rule{
			{intent: IntentArithmetic, tool: coretools.ToolCalculate, trigger: arithmeticTrigger, extract: extractExpression},
			{intent: IntentTime, tool: coretools.ToolCurrentTime, trigger: timeTrigger, extract: noArgs},
			{intent: IntentRandomNumber, tool: coretools.ToolRandomNumber, trigger: randomTrigger, extract: extractRange},
			{intent: IntentWordCount, tool: coretools.ToolWordCount, trigger: wordCountTrigger, extract: extractText},
		},
	}
}

var defaultDetector = New()

// Detect runs the built-in rule table against utterance.
func Detect(utterance string) Detection {
	return defaultDetector.Detect(utterance)
}

// Detect returns the first matching intent, or an empty Detection.
func (d *Detector) Detect(utterance string) Detection {
	for _, r := range d.rules {
		match := r.trigger.FindStringIndex(utterance)
		if match == nil {
			continue
		}
		args, ok := r.extract(utterance, match)
		if !ok {
			continue
		}
		return Detection{Intent: r.intent, Tool: r.tool, Args: args}
	}
	return Detection{}
}

// Tools returns the tool names the detector can select, in priority order.
func (d *Detector) Tools() []string {
	tools := make([]string, 0, len(d.rules))
	for _, r := range d.rules {
		tools = append(tools, r.tool)
	}
	return tools
}

func noArgs(string, []int) (map[string]interface{}, bool) {
	return map[string]interface{}{}, true
}

func extractExpression(utterance string, _ []int) (map[string]interface{}, bool) {
	expr := strings.TrimSpace(arithmeticExpr.FindString(utterance))
	if expr == "" {
		return nil, false
	}
	return map[string]interface{}{"expression": expr}, true
}

func extractRange(utterance string, _ []int) (map[string]interface{}, bool) {
	args := map[string]interface{}{"min": DefaultRandomMin, "max": DefaultRandomMax}

	m := randomBetween.FindStringSubmatch(utterance)
	if m == nil {
		return args, true
	}
	lo, errLo := strconv.Atoi(m[1])
	hi, errHi := strconv.Atoi(m[2])
	if errLo != nil || errHi != nil {
		return args, true
	}
	args["min"] = lo
	args["max"] = hi
	return args, true
}

func extractText(utterance string, match []int) (map[string]interface{}, bool) {
	if m := quotedText.FindStringSubmatch(utterance); m != nil {
		for _, group := range m[1:] {
			if text := strings.TrimSpace(group); text != "" {
				return map[string]interface{}{"text": group}, true
			}
		}
	}

	if m := trailingText.FindStringSubmatch(utterance[match[1]:]); m != nil {
		if text := strings.TrimSpace(m[1]); text != "" {
			return map[string]interface{}{"text": text}, true
		}
	}
	return nil, false
}
