package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/logger"
)

const analysisReply = `{"Summary":["Budget for cranes"],"Title":"Harbour plan","Author":["Port authority"],` +
	`"DateCreated":"Not Available","Language":"English","PageCount":"Not Available","SentimentTone":"neutral"}`

func TestAnalysisService_Analyze(t *testing.T) {
	llm := newFakeLLM()
	llm.replies = []string{analysisReply}
	svc := NewAnalysisService(fakeRegistry{extra: map[string]any{"page_count": 7}}, llm,
		fakePrompts(testPrompts), GenerationConfig{}, 0, logger.Nop())

	meta, err := svc.Analyze(context.Background(), textFile("plan.pdf", documentA))

	require.NoError(t, err)
	assert.Equal(t, "Harbour plan", meta.Title)
	assert.Equal(t, []string{"Budget for cranes"}, meta.Summary)
	assert.Equal(t, domain.PageCount("7"), meta.PageCount, "page count filled from extraction")
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], documentA)
}

func TestAnalysisService_KeepsModelPageCount(t *testing.T) {
	llm := newFakeLLM()
	llm.replies = []string{`{"Summary":["x"],"Title":"T","PageCount":3}`}
	svc := NewAnalysisService(fakeRegistry{extra: map[string]any{"page_count": 7}}, llm,
		fakePrompts(testPrompts), GenerationConfig{}, 0, logger.Nop())

	meta, err := svc.Analyze(context.Background(), textFile("plan.pdf", "text"))

	require.NoError(t, err)
	assert.Equal(t, domain.PageCount("3"), meta.PageCount)
}

func TestAnalysisService_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    domain.UploadedFile
		replies []string
		genErr  error
		want    error
	}{
		{"unsupported", textFile("sheet.xlsx", "x"), nil, nil, domain.ErrUnsupportedFileType},
		{"extraction failure", textFile("a.pdf", "!broken"), nil, nil, domain.ErrExtraction},
		{"empty text", textFile("a.txt", "  "), nil, nil, domain.ErrExtraction},
		{"unparseable", textFile("a.txt", "text"), []string{"nope", "nope"}, nil, domain.ErrAnalysisParse},
		{"model down", textFile("a.txt", "text"), nil, errors.New("503"), domain.ErrModelUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := newFakeLLM()
			llm.replies = tt.replies
			llm.genErr = tt.genErr
			svc := NewAnalysisService(fakeRegistry{}, llm, fakePrompts(testPrompts), GenerationConfig{}, 0, logger.Nop())

			_, err := svc.Analyze(context.Background(), tt.file)

			assert.ErrorIs(t, err, tt.want)
			var opErr *domain.OpError
			require.True(t, errors.As(err, &opErr))
			assert.Equal(t, "analyze", opErr.Op)
		})
	}
}
