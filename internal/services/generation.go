package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/epesi-labs/epesi-backend/internal/logger"
)

// RawChart is one validated-but-unreconciled generation result. Payload is
// handed to Reconcile untouched so shape probing happens in exactly one
// place.
type RawChart struct {
	Question  string
	ChartType string
	Payload   any
}

// GenerationService is the gateway in front of the generation backend. It
// owns the strict output contract: JSON only, schema-shaped, and at most one
// retry with a reinforced instruction when the contract is violated. No chart
// is ever handed downstream from an unvalidated payload.
type GenerationService interface {
	GenerateCharts(ctx context.Context, pkg PromptPackage, expectedCount int) ([]RawChart, error)
}

type generationService struct {
	log *logger.Logger
	ai  AIClient
}

func NewGenerationService(log *logger.Logger, ai AIClient) GenerationService {
	return &generationService{
		log: log.With("service", "GenerationService"),
		ai:  ai,
	}
}

const contractReminder = `REMINDER: your previous reply violated the output contract.
Return ONLY a valid JSON array. No markdown. No code fences. No commentary.`

func (s *generationService) GenerateCharts(ctx context.Context, pkg PromptPackage, expectedCount int) ([]RawChart, error) {
	opts := &AIOptions{Temperature: 0.2, MaxTokens: 4096}

	var lastViolation *GenerationContractViolation
	for attempt := 0; attempt < 2; attempt++ {
		system := pkg.System
		if attempt > 0 {
			system = system + "\n\n" + contractReminder
		}

		text, err := s.ai.Complete(ctx, system, pkg.User, opts)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			return nil, &GenerationBackendError{Err: err}
		}

		charts, violation := parseChartResponse(text)
		if violation == nil {
			if len(charts) < expectedCount {
				// Under-delivery is not fatal; the caller reports the
				// actual count to the user.
				s.log.Warn("Generation under-delivered",
					"expected", expectedCount,
					"actual", len(charts),
				)
			}
			return charts, nil
		}

		lastViolation = violation
		s.log.Warn("Generation contract violated",
			"attempt", attempt+1,
			"reason", violation.Reason,
		)
	}

	return nil, lastViolation
}

// parseChartResponse applies the defensive-parsing pipeline: strip code
// fences, parse JSON, validate shape and required fields.
func parseChartResponse(text string) ([]RawChart, *GenerationContractViolation) {
	cleaned := sanitizeJSONText(text)
	if cleaned == "" {
		return nil, &GenerationContractViolation{Reason: "empty response", Raw: text}
	}

	var decoded any
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return nil, &GenerationContractViolation{Reason: "response is not valid JSON", Raw: text}
	}

	var items []any
	switch v := decoded.(type) {
	case []any:
		items = v
	case map[string]any:
		// Single-chart generation returns one object.
		items = []any{v}
	default:
		return nil, &GenerationContractViolation{Reason: "response is neither a JSON array nor object", Raw: text}
	}

	charts := make([]RawChart, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		chart, ok := validateChartItem(obj)
		if ok {
			charts = append(charts, chart)
		}
	}
	if len(charts) == 0 {
		return nil, &GenerationContractViolation{Reason: "no element has the required fields", Raw: text}
	}
	return charts, nil
}

func validateChartItem(obj map[string]any) (RawChart, bool) {
	question := stringField(obj, "question", "title")
	chartType := stringField(obj, "chart_type", "chartType", "type")
	payload, hasPayload := firstPresentOK(obj, "chart_payload", "data", "series")
	if question == "" || chartType == "" || !hasPayload {
		return RawChart{}, false
	}
	return RawChart{
		Question:  question,
		ChartType: chartType,
		Payload:   payload,
	}, true
}

func firstPresentOK(obj map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if value, ok := obj[key]; ok && value != nil {
			return value, true
		}
	}
	return nil, false
}

// sanitizeJSONText strips a markdown code-fence wrapper when the backend
// ignores the no-markdown instruction.
func sanitizeJSONText(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	// Strip leading ```lang and trailing ```
	firstNL := strings.IndexByte(s, '\n')
	if firstNL == -1 {
		return strings.TrimSpace(strings.Trim(s, "`"))
	}
	s = s[firstNL+1:]

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
