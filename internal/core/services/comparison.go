package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
	"github.com/custodia-labs/docportal/internal/core/ports/driving"
	"github.com/custodia-labs/docportal/internal/logger"
)

// Ensure ComparisonService implements the interface.
var _ driving.ComparisonService = (*ComparisonService)(nil)

// ComparisonService compares a reference PDF against an actual PDF.
// Uploaded files are staged in their own namespace per session, separate
// from ingested session files.
type ComparisonService struct {
	staging           driven.BlobStore
	registry          driven.NormaliserRegistry
	extractor         *structuredExtractor
	extractionTimeout time.Duration
	log               *logger.Logger
	now               func() time.Time
}

// NewComparisonService creates a comparison service staging files in staging.
func NewComparisonService(
	staging driven.BlobStore,
	registry driven.NormaliserRegistry,
	llm driven.LLMService,
	prompts driven.PromptStore,
	gen GenerationConfig,
	extractionTimeout time.Duration,
	log *logger.Logger,
) *ComparisonService {
	return &ComparisonService{
		staging:           staging,
		registry:          registry,
		extractor:         newStructuredExtractor(llm, prompts, gen, log),
		extractionTimeout: extractionTimeout,
		log:               log,
		now:               time.Now,
	}
}

// SaveUploadedFiles clears the session's staging area and stores both files.
// Only PDF files are accepted.
func (s *ComparisonService) SaveUploadedFiles(
	ctx context.Context, sessionID string, reference, actual domain.UploadedFile,
) (string, string, error) {
	refName, actName := filepath.Base(reference.Name), filepath.Base(actual.Name)
	for _, f := range []domain.UploadedFile{reference, actual} {
		if kind, ok := domain.DetectFileType(f.Name); !ok || kind != domain.FileTypePDF {
			return "", "", domain.NewOpError("compare", sessionID,
				fmt.Errorf("%w: %s is not a PDF", domain.ErrUnsupportedFileType, f.Name))
		}
	}
	if refName == actName {
		return "", "", domain.NewOpError("compare", sessionID,
			fmt.Errorf("%w: reference and actual are both named %s", domain.ErrValidation, refName))
	}

	if err := s.staging.Clear(ctx, sessionID); err != nil {
		return "", "", domain.NewOpError("compare", sessionID, fmt.Errorf("clearing staged files: %w", err))
	}

	refPath, err := s.staging.Put(ctx, sessionID, refName, reference.Content)
	if err != nil {
		return "", "", domain.NewOpError("compare", sessionID, fmt.Errorf("staging %s: %w", refName, err))
	}
	actPath, err := s.staging.Put(ctx, sessionID, actName, actual.Content)
	if err != nil {
		return "", "", domain.NewOpError("compare", sessionID, fmt.Errorf("staging %s: %w", actName, err))
	}

	s.log.Debug("Staged %s and %s for comparison in %s", refName, actName, sessionID)
	return refPath, actPath, nil
}

// CombineDocuments extracts every staged file in filename order and joins
// them under "Document: <filename>" headers. Unchanged staging yields
// byte-identical output.
func (s *ComparisonService) CombineDocuments(ctx context.Context, sessionID string) (string, error) {
	names, err := s.staging.List(ctx, sessionID)
	if err != nil {
		return "", domain.NewOpError("compare", sessionID, fmt.Errorf("listing staged files: %w", err))
	}
	if len(names) == 0 {
		return "", domain.NewOpError("compare", sessionID, domain.ErrNoDocumentsIngested)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		kind, ok := domain.DetectFileType(name)
		if !ok {
			return "", domain.NewOpError("compare", sessionID,
				fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, name))
		}
		doc, err := extractStored(ctx, s.staging, s.registry, sessionID, domain.StoredFile{
			SessionID:    sessionID,
			OriginalName: name,
			StoredName:   name,
			Type:         kind,
		}, s.extractionTimeout)
		if err != nil {
			return "", domain.NewOpError("compare", sessionID, err)
		}
		parts = append(parts, "Document: "+name+"\n"+doc.Content+"\n")
	}
	return strings.Join(parts, "\n"), nil
}

// Compare extracts the change-list from combined document text.
func (s *ComparisonService) Compare(ctx context.Context, combined string) ([]domain.ChangeRow, error) {
	if strings.TrimSpace(combined) == "" {
		return nil, domain.NewOpError("compare", "", fmt.Errorf("%w: nothing to compare", domain.ErrValidation))
	}

	var rows []domain.ChangeRow
	err := s.extractor.extract(ctx, driven.PromptDocumentComparison, changeListInstructions, combined,
		domain.ErrComparisonParse, func(reply string) error {
			parsed, err := s.extractor.decodeChangeRows(reply)
			if err != nil {
				return err
			}
			rows = parsed
			return nil
		})
	if err != nil {
		return nil, domain.NewOpError("compare", "", err)
	}
	return rows, nil
}

// CompareFiles stages both files under a fresh session, compares them and
// removes the staged files afterwards.
func (s *ComparisonService) CompareFiles(
	ctx context.Context, reference, actual domain.UploadedFile,
) ([]domain.ChangeRow, error) {
	sessionID := domain.NewSessionID(s.now(), strings.ReplaceAll(uuid.NewString(), "-", ""))
	defer func() {
		if err := s.staging.Remove(context.WithoutCancel(ctx), sessionID); err != nil {
			s.log.Warn("Failed to remove comparison staging %s: %v", sessionID, err)
		}
	}()

	if _, _, err := s.SaveUploadedFiles(ctx, sessionID, reference, actual); err != nil {
		return nil, err
	}
	combined, err := s.CombineDocuments(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.Compare(ctx, combined)
}
