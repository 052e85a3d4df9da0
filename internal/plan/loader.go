package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/felixgeelhaar/planguard/internal/errors"
)

// ResponseKind distinguishes generator responses that carry a plan from
// those that only answer a question.
type ResponseKind string

const (
	KindPlan   ResponseKind = "plan"
	KindAnswer ResponseKind = "answer"
)

// SchemaVersion is the envelope version this package understands.
const SchemaVersion = "v1"

// Answer is the payload of an answer-kind response.
type Answer struct {
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
}

// Response is the generator envelope around a Plan.
type Response struct {
	SchemaVersion string       `json:"schema_version" yaml:"schema_version"`
	Kind          ResponseKind `json:"kind" yaml:"kind"`
	Plan          *Plan        `json:"plan,omitempty" yaml:"plan,omitempty"`
	Answer        *Answer      `json:"answer,omitempty" yaml:"answer,omitempty"`
}

// LoadPlan reads a Plan from a JSON file. The file may hold a bare plan or
// a generator response envelope, optionally surrounded by prose or a code
// fence.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewPlanNotFoundError(path)
		}
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, "read plan file", err)
	}

	resp, err := DecodeResponse(data)
	if err != nil {
		return nil, err
	}

	if resp.Kind == KindAnswer {
		title := ""
		if resp.Answer != nil {
			title = resp.Answer.Title
		}
		return nil, errors.New(errors.ErrCodeAnswerResponse, fmt.Sprintf("response is an answer, not a plan: %q", title)).
			WithSuggestion("Ask the generator for a code change so it returns kind \"plan\"")
	}

	if err := resp.Plan.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodePlanInvalid, "validate plan", err)
	}

	return resp.Plan, nil
}

// DecodeResponse decodes generator output into a Response. A bare plan
// object is wrapped in a plan-kind envelope.
func DecodeResponse(data []byte) (*Response, error) {
	obj, ok := ExtractJSONObject(string(data))
	if !ok {
		return nil, errors.New(errors.ErrCodePlanUnmarshal, "no JSON object found in input").
			WithSuggestion("Make sure the generator returned a JSON plan")
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &probe); err != nil {
		return nil, errors.Wrap(errors.ErrCodePlanUnmarshal, "unmarshal plan", err)
	}

	if _, enveloped := probe["kind"]; !enveloped {
		var p Plan
		if err := json.Unmarshal([]byte(obj), &p); err != nil {
			return nil, errors.Wrap(errors.ErrCodePlanUnmarshal, "unmarshal plan", err)
		}
		return &Response{SchemaVersion: SchemaVersion, Kind: KindPlan, Plan: &p}, nil
	}

	var resp Response
	if err := json.Unmarshal([]byte(obj), &resp); err != nil {
		return nil, errors.Wrap(errors.ErrCodePlanUnmarshal, "unmarshal response", err)
	}

	switch resp.Kind {
	case KindPlan:
		if resp.Plan == nil {
			return nil, errors.New(errors.ErrCodePlanInvalid, "plan response has no plan")
		}
	case KindAnswer:
	default:
		return nil, errors.New(errors.ErrCodePlanInvalid, fmt.Sprintf("unknown response kind %q", resp.Kind))
	}

	return &resp, nil
}

// ExtractJSONObject returns the first balanced top-level JSON object in s.
// Braces inside JSON strings are ignored.
func ExtractJSONObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}

// SavePlan writes a Plan to a JSON file
func SavePlan(p *Plan, path string) error {
	data, err := MarshalPlan(p)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileMarshal, "marshal plan", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "write plan file", err)
	}

	return nil
}

// MarshalPlan renders p as indented JSON with a trailing newline.
func MarshalPlan(p *Plan) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// describe renders a step for warnings and errors.
func describe(s Step) string {
	if fs, ok := s.(FileStep); ok {
		return fmt.Sprintf("%s %s", s.Action(), fs.TargetPath())
	}
	cmd, _ := CommandOf(s)
	return fmt.Sprintf("%s %s", s.Action(), strings.TrimSpace(cmd))
}
