// Package source provides the question sources a session.Store runs over:
// a static question bank graded locally, and an HTTP client for the recall
// API that grades remotely.
package source

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/pavelanni/recall/internal/model"
	"github.com/pavelanni/recall/internal/session"
)

//go:embed default_bank.yaml
var defaultBankData []byte

// DefaultBankName is the file name reported for the embedded bank.
const DefaultBankName = "default_bank.yaml"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Bank is a fixed question sequence with reference answers and no grading
// endpoint. A store over a Bank runs in static mode.
type Bank struct {
	title     string
	questions []session.Question
}

// NewBank builds a bank from a parsed bank file. Questions without an id are
// numbered from 1 in file order.
func NewBank(f model.BankFile) (*Bank, error) {
	b := &Bank{title: f.Title, questions: make([]session.Question, 0, len(f.Questions))}
	seen := make(map[string]struct{}, len(f.Questions))
	for i, bq := range f.Questions {
		id := bq.ID
		if id == "" {
			id = strconv.Itoa(i + 1)
		}
		if _, dup := seen[id]; dup {
			return nil, &FormatError{Op: "build bank", Err: fmt.Errorf("duplicate question id %q", id)}
		}
		seen[id] = struct{}{}
		b.questions = append(b.questions, session.Question{
			ID:              id,
			Prompt:          bq.Question,
			ReferenceAnswer: bq.ReferenceAnswer(),
		})
	}
	return b, nil
}

// LoadBank reads a JSON or YAML bank file, chosen by extension.
func LoadBank(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	f, err := ParseBankFile(path, data)
	if err != nil {
		return nil, err
	}
	return NewBank(f)
}

// DefaultBank returns the bank embedded in the binary.
func DefaultBank() (*Bank, error) {
	f, err := ParseBankFile(DefaultBankName, defaultBankData)
	if err != nil {
		return nil, err
	}
	return NewBank(f)
}

// DefaultBankData returns the raw embedded bank file.
func DefaultBankData() []byte {
	return bytes.Clone(defaultBankData)
}

// Title returns the bank's title.
func (b *Bank) Title() string { return b.title }

// Len returns the number of questions in the bank.
func (b *Bank) Len() int { return len(b.questions) }

// ListQuestions returns the bank's questions. A bank holds a single
// document, so documentID is ignored.
func (b *Bank) ListQuestions(ctx context.Context, _ string) ([]session.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]session.Question, len(b.questions))
	copy(out, b.questions)
	return out, nil
}

// ParseBankFile decodes bank data, picking YAML for .yaml/.yml paths and
// JSON otherwise. Both the object form ({title, questions}) and a bare list
// of questions are accepted.
func ParseBankFile(path string, data []byte) (model.BankFile, error) {
	var (
		f   model.BankFile
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		f, err = parseYAML(data)
	default:
		f, err = parseJSON(data)
	}
	if err != nil {
		return model.BankFile{}, &FormatError{Op: "parse " + path, Err: err}
	}
	if len(f.Questions) == 0 {
		return model.BankFile{}, &FormatError{Op: "parse " + path, Err: errors.New("no questions")}
	}
	if err := validate.Struct(f); err != nil {
		return model.BankFile{}, &FormatError{Op: "validate " + path, Err: err}
	}
	if f.Title == "" {
		f.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return f, nil
}

func parseJSON(data []byte) (model.BankFile, error) {
	var f model.BankFile
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err := json.Unmarshal(trimmed, &f.Questions)
		return f, err
	}
	err := json.Unmarshal(trimmed, &f)
	return f, err
}

func parseYAML(data []byte) (model.BankFile, error) {
	var (
		f    model.BankFile
		root yaml.Node
	)
	if err := yaml.Unmarshal(data, &root); err != nil {
		return f, err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return f, errors.New("empty document")
	}
	doc := root.Content[0]
	if doc.Kind == yaml.SequenceNode {
		err := doc.Decode(&f.Questions)
		return f, err
	}
	err := doc.Decode(&f)
	return f, err
}
