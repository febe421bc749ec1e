package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
	"github.com/custodia-labs/docportal/internal/logger"
)

// GenerationConfig holds the language model call parameters.
type GenerationConfig struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// GenerationConfigFrom derives generation parameters from application settings.
func GenerationConfigFrom(settings *domain.AppSettings) GenerationConfig {
	return GenerationConfig{
		Temperature: settings.LLM.Temperature,
		MaxTokens:   settings.LLM.MaxTokens,
		Timeout:     settings.Timeouts.LLM,
	}
}

// Format instructions handed to the structured prompts.
const (
	changeListInstructions = `Return ONLY a JSON array. Each element is an object with exactly two string fields:
"Page": the page or section reference where the change occurs,
"Changes": a description of the difference, or "NO CHANGE".
Example: [{"Page": "1", "Changes": "Title changed from X to Y"}]`

	documentMetadataInstructions = `{
  "Summary": ["key point", "..."],
  "Title": "document title",
  "Author": ["author name"],
  "DateCreated": "creation date or \"Not Available\"",
  "LastModifiedDate": "modification date or \"Not Available\"",
  "Publisher": "publisher or \"Not Available\"",
  "Language": "language",
  "PageCount": 1,
  "SentimentTone": "overall tone"
}`
)

// structuredExtractor asks the language model for JSON and repairs one bad reply.
type structuredExtractor struct {
	llm      driven.LLMService
	prompts  driven.PromptStore
	validate *validator.Validate
	cfg      GenerationConfig
	log      *logger.Logger
}

func newStructuredExtractor(
	llm driven.LLMService, prompts driven.PromptStore, cfg GenerationConfig, log *logger.Logger,
) *structuredExtractor {
	return &structuredExtractor{
		llm:      llm,
		prompts:  prompts,
		validate: validator.New(),
		cfg:      cfg,
		log:      log,
	}
}

// extract renders promptName with instructions and input, then decodes the
// reply with decode. A reply that fails to decode gets one pass through the
// output_fix prompt; a second failure is tagged with parseErr.
func (e *structuredExtractor) extract(
	ctx context.Context,
	promptName, instructions, input string,
	parseErr error,
	decode func(reply string) error,
) error {
	if e.llm == nil {
		return domain.ErrLLMUnavailable
	}

	tmpl, err := e.prompts.Load(promptName)
	if err != nil {
		return fmt.Errorf("loading prompt %s: %w", promptName, err)
	}
	reply, err := e.generate(ctx, fmt.Sprintf(tmpl, instructions, input))
	if err != nil {
		return err
	}

	firstErr := decode(reply)
	if firstErr == nil {
		return nil
	}
	e.log.Warn("Structured output from %s did not parse, attempting repair: %v", promptName, firstErr)

	fixTmpl, err := e.prompts.Load(driven.PromptOutputFix)
	if err != nil {
		return fmt.Errorf("loading prompt %s: %w", driven.PromptOutputFix, err)
	}
	fixed, err := e.generate(ctx, fmt.Sprintf(fixTmpl, instructions, reply, firstErr.Error()))
	if err != nil {
		return err
	}
	if err := decode(fixed); err != nil {
		return fmt.Errorf("%w: %w", parseErr, err)
	}
	return nil
}

func (e *structuredExtractor) generate(ctx context.Context, prompt string) (string, error) {
	gctx, cancel := withTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	reply, err := e.llm.Generate(gctx, prompt, driven.GenerateOptions{
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
	})
	if err != nil {
		return "", domain.ClassifyCollaboratorError(err, domain.ErrModelUnavailable)
	}
	return reply, nil
}

// decodeChangeRows accepts a JSON array of rows or an object wrapping one.
func (e *structuredExtractor) decodeChangeRows(reply string) ([]domain.ChangeRow, error) {
	payload := jsonPayload(reply)
	if payload == "" {
		return nil, errors.New("reply contains no JSON")
	}

	var rows []domain.ChangeRow
	if strings.HasPrefix(payload, "{") {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal([]byte(payload), &wrapper); err != nil {
			return nil, fmt.Errorf("decoding object: %w", err)
		}
		keys := make([]string, 0, len(wrapper))
		for k := range wrapper {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		found := false
		for _, k := range keys {
			raw := wrapper[k]
			if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
				if err := json.Unmarshal(raw, &rows); err != nil {
					return nil, fmt.Errorf("decoding rows: %w", err)
				}
				found = true
				break
			}
		}
		if !found {
			return nil, errors.New("object holds no array of rows")
		}
	} else if err := json.Unmarshal([]byte(payload), &rows); err != nil {
		return nil, fmt.Errorf("decoding rows: %w", err)
	}

	if len(rows) == 0 {
		return nil, errors.New("no rows in reply")
	}
	for i := range rows {
		if err := e.validate.Struct(rows[i]); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return rows, nil
}

// decodeMetadata decodes and validates a document metadata object.
func (e *structuredExtractor) decodeMetadata(reply string) (*domain.DocumentMetadata, error) {
	payload := jsonPayload(reply)
	if !strings.HasPrefix(payload, "{") {
		return nil, errors.New("reply contains no JSON object")
	}

	var meta domain.DocumentMetadata
	if err := json.Unmarshal([]byte(payload), &meta); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	if err := e.validate.Struct(meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// jsonPayload strips code fences and surrounding prose from a model reply,
// returning the outermost JSON array or object.
func jsonPayload(reply string) string {
	s := strings.TrimSpace(reply)
	if start := strings.Index(s, "```"); start >= 0 {
		rest := s[start+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		s = strings.TrimSpace(rest)
	}

	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return ""
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return ""
	}
	return s[start : end+1]
}
