package injection

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ScriptEvaluator is the part of a web view the bridge needs.
type ScriptEvaluator interface {
	CurrentURL() string
	EvaluateScript(ctx context.Context, script string) error
}

// ScriptSurface stores facts in the page's localStorage.
type ScriptSurface struct {
	id        string
	evaluator ScriptEvaluator
}

var _ Surface = (*ScriptSurface)(nil)

func NewScriptSurface(evaluator ScriptEvaluator) *ScriptSurface {
	return &ScriptSurface{
		id:        uuid.NewString(),
		evaluator: evaluator,
	}
}

func (s *ScriptSurface) ID() string {
	return s.id
}

func (s *ScriptSurface) URL() string {
	return s.evaluator.CurrentURL()
}

func (s *ScriptSurface) SetFact(ctx context.Context, key FactKey, value string) error {
	script := fmt.Sprintf("window.localStorage.setItem(%s, %s);", jsString(string(key)), jsString(value))
	if err := s.evaluator.EvaluateScript(ctx, script); err != nil {
		return errors.Wrap(err, "[ScriptSurface.SetFact]")
	}
	return nil
}

func (s *ScriptSurface) RemoveFact(ctx context.Context, key FactKey) error {
	script := fmt.Sprintf("window.localStorage.removeItem(%s);", jsString(string(key)))
	if err := s.evaluator.EvaluateScript(ctx, script); err != nil {
		return errors.Wrap(err, "[ScriptSurface.RemoveFact]")
	}
	return nil
}

// jsString quotes s as a JavaScript string literal. encoding/json escapes
// quotes, control characters, <, >, & and the U+2028/U+2029 separators.
func jsString(s string) string {
	quoted, _ := json.Marshal(s)
	return string(quoted)
}
