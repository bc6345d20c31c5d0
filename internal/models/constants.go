package models

const (
	ThinkTag         = `(?s)<think>.*?</think>`
	JSONFence        = "(?s)```(?:json)?\\s*(.*?)\\s*```"
	ContextSeparator = "\n\n---\n\n"

	// Returned by the summarizer when the description service fails.
	ImageSummaryFallback = "No summary could be generated for this image."
)

var (
	ImageSummaryPrompt = `Provide a detailed description of this image. If it contains charts, graphs, or tables, extract the key information and data. Describe the main subject and any important context.`

	FormulaSummaryPrompt = `This image contains a mathematical or chemical formula. Transcribe it into a standard textual representation like LaTeX or a simple plain text description. For example, for an image of x squared, return 'x^2'.`

	QueryImagePrompt = `Describe this image in detail. Focus on key objects, text, charts, and the overall context. This description will be used to find relevant information in a database.`

	AnswerPromptTemplate = `**Your Role**: You are a document analysis assistant.
**Task**: Based ONLY on the "Context Information" below, answer the "User's Question".
---
**Context Information**:
%s
---
**User's Question**:
%s
---
**Your Answer**:
`

	CitationPromptTemplate = `You are a highly analytical and skeptical citation-finding assistant. Your ONLY job is to determine which of the provided sources were *actually used* to create the given answer.

You must follow these STRICT rules:
1. Compare the "Generated Answer" against each "Source" provided below.
2. Identify ONLY the sources that contain the EXACT information, facts, or data points present in the answer.
3. **CRITICAL RULE**: Do NOT cite a source just because it shares some keywords with the answer. The source must SEMANTICALLY support the claims in the answer.
4. If the answer makes a specific claim (e.g., "Revenue was $5M"), the source MUST contain that exact fact.
5. Be extremely skeptical. It is better to return an empty list than to cite an irrelevant source.
6. Respond with a JSON object containing a single key "cited_sources". The value should be a list of the IDs of the relevant sources (e.g., {"cited_sources": ["SOURCE_1", "SOURCE_3"]}).
7. If no source directly supports the answer, you MUST return an empty list: {"cited_sources": []}.
8. Do not add any explanation or text outside of the JSON object.
---
**Generated Answer**:
%s
---
**Available Sources**:
%s
---
**Your JSON Response**:
`
)
