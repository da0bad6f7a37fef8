package ai

import (
	"fmt"
	"time"
)

const summaryPromptTemplate = `You are an executive assistant analyzing an email for a busy professional.

Email Details:
- Subject: %s
- From: %s
- Received: %s

Email Content:
%s

Task: Provide a concise 3-6 bullet point summary of this email.

Requirements:
- Each bullet point should be clear and actionable
- Focus on the most important information
- Highlight any requests, deadlines, or action items
- Keep each point under 20 words
- Start each point with "•"

Summary:`

const actionsPromptTemplate = `You are an executive assistant helping to triage emails and recommend actions.

Email Details:
- Subject: %s
- From: %s
- Received: %s

Email Content:
%s

Task: Identify recommended actions for this email.

Return a JSON array of action items. Each action should have:
- "action": Brief description of the action
- "type": One of [reply, delegate, schedule, review, file, no_action]
- "priority": One of [low, medium, high, urgent]
- "due_date": Suggested due date (ISO format) or null
- "reasoning": Brief explanation (1 sentence)

Example format:
[
  {
    "action": "Reply to confirm attendance",
    "type": "reply",
    "priority": "high",
    "due_date": "2024-01-15T17:00:00Z",
    "reasoning": "Meeting is tomorrow and requires RSVP"
  }
]

If no specific action is needed, return:
[{"action": "No action required", "type": "no_action", "priority": "low", "due_date": null, "reasoning": "Informational email"}]

Actions:`

const classificationPromptTemplate = `Classify this email into ONE of the following categories:

Categories:
- urgent_action: Requires immediate action or response
- meeting_request: Meeting invitation or scheduling
- information: FYI, updates, newsletters
- task_assignment: Work assignments or delegations
- question: Asking for information or clarification
- approval: Requires approval or decision
- general: General correspondence

Email Subject: %s
Email From: %s
Email Preview: %s

Return ONLY the category name, nothing else.`

const sentimentPromptTemplate = `Analyze the sentiment/tone of this email.

Email Content:
%s

Return ONE word: positive, neutral, or negative`

const urgencyPromptTemplate = `Rate the urgency of this email on a scale of 0.0 to 1.0.

Consider:
- Explicit urgency indicators (URGENT, ASAP, deadline)
- Implied urgency (short timeframes, waiting on response)
- Sender importance
- Content importance

Email Subject: %s
Email From: %s
Email Body Preview: %s

Return ONLY a decimal number between 0.0 and 1.0, nothing else.
Examples: 0.2, 0.5, 0.9`

// Prompt bodies are capped to keep token spend bounded.
const promptBodyLimit = 2000

func summaryPrompt(subject, sender, body string, receivedAt time.Time) string {
	return fmt.Sprintf(summaryPromptTemplate,
		subject, sender, receivedAt.Format("2006-01-02 15:04"), truncateRunes(body, promptBodyLimit))
}

func actionsPrompt(subject, sender, body string, receivedAt time.Time) string {
	return fmt.Sprintf(actionsPromptTemplate,
		subject, sender, receivedAt.Format("2006-01-02 15:04"), truncateRunes(body, promptBodyLimit))
}

func classificationPrompt(subject, sender, body string) string {
	return fmt.Sprintf(classificationPromptTemplate, subject, sender, truncateRunes(body, 200))
}

func sentimentPrompt(body string) string {
	return fmt.Sprintf(sentimentPromptTemplate, truncateRunes(body, promptBodyLimit))
}

func urgencyPrompt(subject, sender, body string) string {
	return fmt.Sprintf(urgencyPromptTemplate, subject, sender, truncateRunes(body, 200))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
