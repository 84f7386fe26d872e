package llm

import (
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Strob0t/interviewlab/internal/domain/prompt"
	"github.com/Strob0t/interviewlab/internal/domain/run"
	"github.com/Strob0t/interviewlab/internal/port/agent"
)

// participantMessages renders the conversation from the speaker's point of
// view: its own entries are assistant turns, everything else is user input.
func participantMessages(req agent.ParticipantRequest) []openai.ChatCompletionMessage {
	var system strings.Builder
	system.WriteString(req.Prompt)
	fmt.Fprintf(&system, "\n\nInitial question: %s", req.InitialQuestion)
	if req.TaskTopic != "" {
		fmt.Fprintf(&system, "\nTopic: %s", req.TaskTopic)
	}
	if req.Profile != "" {
		fmt.Fprintf(&system, "\n\nYou are this person:\n%s", req.Profile)
	}

	msgs := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: system.String()}}
	for _, e := range req.Transcript {
		role := openai.ChatMessageRoleUser
		if speaks(req.Role, e.Role) {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: e.Content})
	}
	if len(req.Transcript) == 0 {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: "Begin the interview.",
		})
	}
	return msgs
}

func speaks(role prompt.Role, author run.Role) bool {
	if role == prompt.RoleInterviewer {
		return author == run.RoleInterviewer
	}
	return author == run.RolePersona || author == run.RoleHuman
}

// evaluatorMessages hands the evaluator the whole transcript as one document.
func evaluatorMessages(req agent.EvaluatorRequest) []openai.ChatCompletionMessage {
	var doc strings.Builder
	fmt.Fprintf(&doc, "Initial question: %s\n", req.InitialQuestion)
	if req.TaskTopic != "" {
		fmt.Fprintf(&doc, "Topic: %s\n", req.TaskTopic)
	}
	doc.WriteString("\nTranscript:\n")
	for i, e := range req.Transcript {
		fmt.Fprintf(&doc, "%d. [%s] %s\n", i+1, speakerLabel(e.Role), e.Content)
	}
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: req.Prompt},
		{Role: openai.ChatMessageRoleUser, Content: doc.String()},
	}
}

func speakerLabel(r run.Role) string {
	switch r {
	case run.RoleInterviewer:
		return "interviewer"
	case run.RolePersona:
		return "respondent"
	default:
		return "human"
	}
}
