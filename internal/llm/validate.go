package llm

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// gradeSchema constrains the grader's reply to the three allowed scores.
const gradeSchema = `{
  "type": "object",
  "required": ["score", "feedback"],
  "properties": {
    "score": {"enum": [0, 0.5, 1]},
    "feedback": {"type": "string"}
  }
}`

var (
	gradeSchemaOnce     sync.Once
	gradeSchemaCompiled *jsonschema.Schema
	gradeSchemaErr      error
)

// InvalidResponseError reports an LLM reply that is not valid grade JSON.
type InvalidResponseError struct {
	Content string
	Err     error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid grading response: %v (raw: %s)", e.Err, e.Content)
}

func (e *InvalidResponseError) Unwrap() error { return e.Err }

func validateGrade(raw []byte) error {
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &InvalidResponseError{Content: string(raw), Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	compiled, err := compiledGradeSchema()
	if err != nil {
		return &InvalidResponseError{Content: string(raw), Err: fmt.Errorf("compile schema: %w", err)}
	}
	if err := compiled.Validate(parsed); err != nil {
		return &InvalidResponseError{Content: string(raw), Err: fmt.Errorf("schema validation failed: %w", err)}
	}
	return nil
}

func compiledGradeSchema() (*jsonschema.Schema, error) {
	gradeSchemaOnce.Do(func() {
		def, err := jsonschema.UnmarshalJSON(strings.NewReader(gradeSchema))
		if err != nil {
			gradeSchemaErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://grade.json"
		if err := c.AddResource(url, def); err != nil {
			gradeSchemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		gradeSchemaCompiled, gradeSchemaErr = c.Compile(url)
	})
	return gradeSchemaCompiled, gradeSchemaErr
}
