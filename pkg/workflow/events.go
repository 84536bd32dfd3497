package workflow

import "time"

// Kind enumerates the closed set of stream event flavors produced by an
// engine. The processor dispatch on this is exhaustive.
type Kind int

const (
	KindToken Kind = iota
	KindTool
	KindStep
	KindResult
	KindEnd
)

func (k Kind) String() string {
	switch k {
	case KindToken:
		return "token"
	case KindTool:
		return "tool"
	case KindStep:
		return "step"
	case KindResult:
		return "result"
	case KindEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Event is one unit of engine output: a streamed token, a tool call phase,
// a planning step, a final result or an end-of-stream marker. Ordering
// within one job is the only delivery guarantee.
type Event struct {
	Kind       Kind
	Status     string // processing|complete|planning|error, may be empty
	Content    string
	Thought    string
	Tool       string
	ToolInput  string
	ToolOutput string
	CreatedAt  time.Time
}

func TokenEvent(content string) Event {
	return Event{Kind: KindToken, Content: content, CreatedAt: time.Now()}
}

func ToolStartEvent(tool, input string) Event {
	return Event{Kind: KindTool, Tool: tool, ToolInput: input, CreatedAt: time.Now()}
}

func ToolEndEvent(tool, input, output string) Event {
	return Event{Kind: KindTool, Tool: tool, ToolInput: input, ToolOutput: output, CreatedAt: time.Now()}
}

func PlanningEvent(content string) Event {
	return Event{Kind: KindStep, Status: "planning", Content: content, CreatedAt: time.Now()}
}

func ResultEvent(content string) Event {
	return Event{Kind: KindResult, Status: "complete", Content: content, CreatedAt: time.Now()}
}

func EndEvent() Event {
	return Event{Kind: KindEnd, Status: "complete", CreatedAt: time.Now()}
}
