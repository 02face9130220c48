// FILE: pkg/llm/oracle.go
// PURPOSE: Structured-completion wrapper around LLMProvider. Every call
// carries a bounded timeout and the reply is parsed strictly into the
// caller's shape; one retry is allowed on malformed JSON only.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// ErrUnavailable marks any oracle failure (timeout, transport error,
// unparsable reply after retry). Callers recover via deterministic paths
// and must never surface this to the user.
var ErrUnavailable = errors.New("oracle unavailable")

// Oracle sends a system+user prompt pair to the model and decodes the
// JSON object embedded in the reply.
type Oracle struct {
	provider LLMProvider
	timeout  time.Duration
	logger   *log.Logger
}

func NewOracle(provider LLMProvider, timeout time.Duration, logger *log.Logger) *Oracle {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Oracle{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
	}
}

// Complete runs one structured completion. The JSON object in the reply
// is unmarshalled into out. A malformed reply is retried once with a
// corrective nudge; timeouts and transport errors are not retried.
func (o *Oracle) Complete(ctx context.Context, systemPrompt, userPrompt string, out interface{}) error {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	history := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}

	response, err := o.provider.Chat(callCtx, history, WithTemperature(0.0))
	if err != nil {
		o.logger.Printf("[ORACLE] call failed: %v", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if parseErr := decodeJSON(response, out); parseErr == nil {
		return nil
	}

	o.logger.Printf("[ORACLE] malformed reply, retrying once")

	// Single bounded retry: re-ask with an explicit format reminder.
	retryCtx, cancelRetry := context.WithTimeout(ctx, o.timeout)
	defer cancelRetry()

	history = append(history,
		Message{Role: "assistant", Content: response},
		Message{Role: "user", Content: "Tu respuesta no era JSON válido. Responde SOLO con el objeto JSON pedido, sin texto adicional."},
	)

	response, err = o.provider.Chat(retryCtx, history, WithTemperature(0.0))
	if err != nil {
		o.logger.Printf("[ORACLE] retry failed: %v", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if parseErr := decodeJSON(response, out); parseErr != nil {
		o.logger.Printf("[ORACLE] retry still malformed: %v", parseErr)
		return fmt.Errorf("%w: %v", ErrUnavailable, parseErr)
	}

	return nil
}

// decodeJSON isolates the JSON object in a model reply (models often wrap
// it in prose or code fences) and unmarshals it.
func decodeJSON(response string, out interface{}) error {
	content := ExtractJSON(response)
	if content == "" {
		return fmt.Errorf("no JSON object found in reply")
	}
	return json.Unmarshal([]byte(content), out)
}

// ExtractJSON returns the outermost JSON object in the text, or "".
func ExtractJSON(response string) string {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return cleaned[start : end+1]
}
