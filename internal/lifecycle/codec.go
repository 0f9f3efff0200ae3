package lifecycle

import "strings"

// Separator delimits both the teacher's problem statements and the
// student's per-example answers.
const Separator = "\n---\n"

// EncodeAnswers packs ordered per-example answers into one stored string.
func EncodeAnswers(answers []string) string {
	return strings.Join(answers, Separator)
}

// DecodeAnswers unpacks a stored answer and reconciles it with the current
// number of examples: missing slots are padded with "", extra slots dropped.
func DecodeAnswers(stored string, examples int) []string {
	if examples < 0 {
		examples = 0
	}
	parts := strings.Split(stored, Separator)
	answers := make([]string, examples)
	copy(answers, parts)
	return answers
}

// SplitStatements turns a teacher's problem content into ordered statements.
// Statements are trimmed and blank ones are dropped.
func SplitStatements(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	statements := make([]string, 0)
	for _, part := range strings.Split(content, Separator) {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		statements = append(statements, trimmed)
	}
	return statements
}

// JoinStatements is the inverse of SplitStatements for an ordered list.
func JoinStatements(statements []string) string {
	kept := make([]string, 0, len(statements))
	for _, statement := range statements {
		if trimmed := strings.TrimSpace(statement); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, Separator)
}

// Example pairs one statement with the answer given for it.
type Example struct {
	Index     int    `json:"index"`
	Statement string `json:"statement"`
	Answer    string `json:"answer"`
}

// Zip aligns statements with the decoded answer by index. An assignment
// without statements exposes every stored answer part, at least one.
func Zip(statements []string, storedAnswer string) []Example {
	count := len(statements)
	if count == 0 {
		count = strings.Count(storedAnswer, Separator) + 1
	}
	answers := DecodeAnswers(storedAnswer, count)
	examples := make([]Example, count)
	for i := range examples {
		examples[i] = Example{Index: i, Answer: answers[i]}
		if i < len(statements) {
			examples[i].Statement = statements[i]
		}
	}
	return examples
}
