package ai

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed evaluation.schema.json
var evaluationSchemaJSON []byte

// answerSchema validates model answers: the wire schema minus its
// additionalProperties restriction.
var answerSchema = jsonschema.MustCompileString("evaluation.answer.schema.json", string(relaxedSchema(evaluationSchemaJSON)))

// EvaluationSchemaJSON returns a copy of the JSON schema sent as the response format.
func EvaluationSchemaJSON() json.RawMessage {
	out := make(json.RawMessage, len(evaluationSchemaJSON))
	copy(out, evaluationSchemaJSON)
	return out
}

// ParseEvaluation validates a model answer against the evaluation schema and
// decodes it. Any failure wraps ErrInvocationFailed.
func ParseEvaluation(content []byte) (EvaluationResult, error) {
	cleaned := stripCodeFence(content)

	decoder := json.NewDecoder(bytes.NewReader(cleaned))
	decoder.UseNumber()
	var document interface{}
	if err := decoder.Decode(&document); err != nil {
		return EvaluationResult{}, fmt.Errorf("%w: response is not valid JSON: %v", ErrInvocationFailed, err)
	}

	if err := answerSchema.Validate(document); err != nil {
		return EvaluationResult{}, fmt.Errorf("%w: response violates evaluation schema: %v", ErrInvocationFailed, err)
	}

	var schema EvaluationSchema
	if err := json.Unmarshal(cleaned, &schema); err != nil {
		return EvaluationResult{}, fmt.Errorf("%w: decode evaluation: %v", ErrInvocationFailed, err)
	}

	return EvaluationResult{
		EvaluationSchema: schema,
		Raw:              json.RawMessage(cleaned),
	}, nil
}

func relaxedSchema(schema []byte) []byte {
	var document map[string]interface{}
	if err := json.Unmarshal(schema, &document); err != nil {
		panic(fmt.Sprintf("evaluation schema: %v", err))
	}
	delete(document, "additionalProperties")
	relaxed, err := json.Marshal(document)
	if err != nil {
		panic(fmt.Sprintf("evaluation schema: %v", err))
	}
	return relaxed
}

// stripCodeFence removes a ```json fence some models wrap around structured answers.
func stripCodeFence(content []byte) []byte {
	trimmed := strings.TrimSpace(string(content))
	if !strings.HasPrefix(trimmed, "```") {
		return []byte(trimmed)
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return []byte(strings.TrimSpace(trimmed))
}
