package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
	"github.com/custodia-labs/docportal/internal/core/ports/driving"
	"github.com/custodia-labs/docportal/internal/logger"
)

// Ensure AnalysisService implements the interface.
var _ driving.AnalysisService = (*AnalysisService)(nil)

// AnalysisService summarises a single document into structured metadata.
type AnalysisService struct {
	registry          driven.NormaliserRegistry
	extractor         *structuredExtractor
	extractionTimeout time.Duration
	log               *logger.Logger
}

// NewAnalysisService creates an analysis service.
func NewAnalysisService(
	registry driven.NormaliserRegistry,
	llm driven.LLMService,
	prompts driven.PromptStore,
	gen GenerationConfig,
	extractionTimeout time.Duration,
	log *logger.Logger,
) *AnalysisService {
	return &AnalysisService{
		registry:          registry,
		extractor:         newStructuredExtractor(llm, prompts, gen, log),
		extractionTimeout: extractionTimeout,
		log:               log,
	}
}

// Analyze extracts the text of file and summarises it.
// A missing page count is filled from the extractor when it reports one.
func (s *AnalysisService) Analyze(ctx context.Context, file domain.UploadedFile) (*domain.DocumentMetadata, error) {
	kind, ok := domain.DetectFileType(file.Name)
	if !ok {
		return nil, domain.NewOpError("analyze", file.Name,
			fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, file.Name))
	}

	ectx, cancel := withTimeout(ctx, s.extractionTimeout)
	result, err := s.registry.Normalise(ectx, &domain.RawDocument{
		URI:      file.Name,
		MIMEType: kind.MIMEType(),
		Content:  file.Content,
		Metadata: map[string]any{"filename": file.Name},
	})
	cancel()
	if err != nil {
		return nil, domain.NewOpError("analyze", file.Name,
			domain.ClassifyCollaboratorError(err, domain.ErrExtraction))
	}

	text := strings.TrimSpace(result.Document.Content)
	if text == "" {
		return nil, domain.NewOpError("analyze", file.Name,
			fmt.Errorf("%w: no text in %s", domain.ErrExtraction, file.Name))
	}

	var meta *domain.DocumentMetadata
	err = s.extractor.extract(ctx, driven.PromptDocumentAnalysis, documentMetadataInstructions, text,
		domain.ErrAnalysisParse, func(reply string) error {
			parsed, err := s.extractor.decodeMetadata(reply)
			if err != nil {
				return err
			}
			meta = parsed
			return nil
		})
	if err != nil {
		return nil, domain.NewOpError("analyze", file.Name, err)
	}

	if _, ok := meta.PageCount.Int(); !ok {
		if n, ok := result.Document.Metadata["page_count"].(int); ok && n > 0 {
			meta.PageCount = domain.PageCount(strconv.Itoa(n))
		}
	}
	s.log.Debug("Analysed %s: %q", file.Name, meta.Title)
	return meta, nil
}
