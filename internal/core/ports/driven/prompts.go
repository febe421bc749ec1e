package driven

// PromptStore supplies the templates sent to the LLM.
type PromptStore interface {
	// Load returns the template registered under name.
	Load(name string) (string, error)

	// Reload forgets cached templates so the next Load reads them again.
	Reload()
}

// Prompt names. The fmt arguments each template takes are listed in order.
const (
	// PromptContextualizeQuestion turns a follow-up into a standalone question. No arguments.
	PromptContextualizeQuestion = "contextualize_question"

	// PromptContextQA answers from retrieved context: context.
	PromptContextQA = "context_qa"

	// PromptDocumentComparison builds the change-list: format instructions, combined documents.
	PromptDocumentComparison = "document_comparison"

	// PromptOutputFix repairs unparseable output: format instructions, output, parse error.
	PromptOutputFix = "output_fix"

	// PromptDocumentAnalysis extracts document metadata: format instructions, document text.
	PromptDocumentAnalysis = "document_analysis"
)
