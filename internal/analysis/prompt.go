package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// systemPrompt is the fixed system prompt sent with every analysis
// request. The subject description is serialized separately.
const systemPrompt = `You are a pharmaceutical sales strategy analyst.
You receive one subject (a product, a province, or a strategy indicator)
as JSON, together with locally detected anomalies and candidate causes.
Write a concise business assessment in plain prose: what happened, the
most likely reasons, and what the planning team should watch next
quarter. Introduce each reason with "because" or "driven by" so it can
be referenced. Do not invent numbers that are not in the input.`

// promptPayload is the serialized subject description attached to the
// user prompt.
type promptPayload struct {
	Kind      string         `json:"kind"`
	Subject   any            `json:"subject"`
	Anomalies []Anomaly      `json:"anomalies,omitempty"`
	Gaps      []GapAnalysis  `json:"gaps,omitempty"`
	Causes    []CauseFinding `json:"causes,omitempty"`
}

// buildPrompt serializes the subject and local findings for the
// completion request.
func buildPrompt(kind string, subject any, anomalies []Anomaly, gaps []GapAnalysis, causes []CauseFinding) (string, error) {
	payload := promptPayload{
		Kind:      kind,
		Subject:   subject,
		Anomalies: anomalies,
		Gaps:      gaps,
		Causes:    causes,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing subject: %w", err)
	}
	return fmt.Sprintf("Analyze the following %s performance data:\n\n%s", kind, data), nil
}

// reasonMarkers are the phrases the reason extractor scans for in the
// generated narration. Keyword matching over free text is heuristic;
// it lives here, behind the analyzer boundary, and nowhere near the
// cache.
var reasonMarkers = []string{"because", "driven by", "due to"}

// extractReasons pulls reason sentences out of generated free text by
// keyword matching. Best effort: an empty result only means the model
// phrased its reasons differently.
func extractReasons(text string) []string {
	var reasons []string
	for _, sentence := range strings.Split(text, ".") {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		lower := strings.ToLower(sentence)
		for _, marker := range reasonMarkers {
			if strings.Contains(lower, marker) {
				reasons = append(reasons, sentence+".")
				break
			}
		}
	}
	return reasons
}
