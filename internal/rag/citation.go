package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"multimodal-rag/internal/models"

	"github.com/rs/zerolog/log"
)

var (
	thinkTagRe  = regexp.MustCompile(models.ThinkTag)
	jsonFenceRe = regexp.MustCompile(models.JSONFence)
)

// Verifier asks the verification service which retrieved chunks actually
// support a generated answer. Parsing is fail-closed: any malformed or
// missing response yields an empty citation list, never "cite everything"
// and never an error that aborts answering.
type Verifier struct {
	llm Generator
}

func NewVerifier(llm Generator) *Verifier {
	return &Verifier{llm: llm}
}

// Verify returns the indices into results deemed cited, preserving result
// order. Labels that do not match the expected SOURCE_i format are ignored.
func (v *Verifier) Verify(ctx context.Context, answer string, results []models.SearchResult) []int {
	if len(results) == 0 {
		return nil
	}

	labeled := make([]string, 0, len(results))
	for i, res := range results {
		labeled = append(labeled, fmt.Sprintf("<SOURCE_%d>\n%s\n</SOURCE_%d>", i+1, res.Chunk.DisplayText(), i+1))
	}
	prompt := fmt.Sprintf(models.CitationPromptTemplate, answer, strings.Join(labeled, "\n\n"))

	raw, err := v.llm.GenerateJSON(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Msg("Citation verification call failed, returning no citations")
		return nil
	}

	cited := parseCitedLabels(raw)
	if cited == nil {
		return nil
	}

	var indices []int
	for i := range results {
		if _, ok := cited[fmt.Sprintf("SOURCE_%d", i+1)]; ok {
			indices = append(indices, i)
		}
	}
	return indices
}

// parseCitedLabels extracts the cited_sources label set from a model
// response. Reasoning tags and code fences are stripped first; anything
// that still fails to parse yields nil.
func parseCitedLabels(raw string) map[string]struct{} {
	cleaned := thinkTagRe.ReplaceAllString(raw, "")
	if m := jsonFenceRe.FindStringSubmatch(cleaned); m != nil {
		cleaned = m[1]
	}
	cleaned = strings.TrimSpace(cleaned)

	var parsed struct {
		CitedSources []string `json:"cited_sources"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		log.Warn().Str("response", truncate(raw, 200)).Msg("Unparseable citation response, returning no citations")
		return nil
	}

	labels := make(map[string]struct{}, len(parsed.CitedSources))
	for _, label := range parsed.CitedSources {
		labels[strings.TrimSpace(label)] = struct{}{}
	}
	return labels
}
