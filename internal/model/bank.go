package model

// BankFile is the on-disk format of a question bank (JSON or YAML).
// Each file describes one document and its questions.
type BankFile struct {
	Title     string         `json:"title" yaml:"title"`
	Author    string         `json:"author,omitempty" yaml:"author,omitempty"`
	Questions []BankQuestion `json:"questions" yaml:"questions" validate:"dive"`
}

// BankQuestion is a single question entry in a bank file.
// Answer is the canonical short answer; Explanation is the longer
// reference text. Either may be empty but not both.
type BankQuestion struct {
	ID          string   `json:"id,omitempty" yaml:"id,omitempty"`
	Question    string   `json:"question" yaml:"question" validate:"required"`
	Answer      string   `json:"correct_answer,omitempty" yaml:"correct_answer,omitempty" validate:"required_without=Explanation"`
	Explanation string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// ReferenceAnswer returns the text a submitted answer is compared against:
// the short answer when present, the explanation otherwise.
func (q BankQuestion) ReferenceAnswer() string {
	if q.Answer != "" {
		return q.Answer
	}
	return q.Explanation
}

// ReferenceExplanation returns the explanation shown after grading:
// the explanation when present, the short answer otherwise.
func (q BankQuestion) ReferenceExplanation() string {
	if q.Explanation != "" {
		return q.Explanation
	}
	return q.Answer
}
