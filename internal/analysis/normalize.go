package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrUnparsableResponse indicates the model output could not be
	// turned into JSON even after cleanup.
	ErrUnparsableResponse = errors.New("ai response is not valid JSON")

	// ErrInvalidResponseShape indicates valid JSON that is missing the
	// required analysis structure.
	ErrInvalidResponseShape = errors.New("ai response missing required structure")
)

// ParseError wraps ErrUnparsableResponse with the parser's own error
// and a short excerpt of the text that failed to parse.
type ParseError struct {
	Err     error
	Excerpt string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse ai response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return ErrUnparsableResponse }

const excerptLimit = 300

var (
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentRe  = regexp.MustCompile(`//.*`)
)

type envelope struct {
	OverallAnalysis json.RawMessage `json:"overallAnalysis"`
	Sections        json.RawMessage `json:"sections"`
}

// Normalize turns raw model output into a typed Result and its
// sections. Models wrap JSON in markdown fences, chat around it, and
// sometimes emit comments or currency symbols inside the payload; the
// cleanup here recovers everything recoverable before giving up.
func Normalize(raw string) (Result, []Section, error) {
	text := stripFences(raw)
	text = sliceBraces(text)

	var env envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		cleaned := aggressiveClean(text)
		if retryErr := json.Unmarshal([]byte(cleaned), &env); retryErr != nil {
			return Result{}, nil, &ParseError{Err: err, Excerpt: excerpt(cleaned)}
		}
	}

	if len(env.OverallAnalysis) == 0 || len(env.Sections) == 0 {
		return Result{}, nil, fmt.Errorf("%w: overallAnalysis and sections are required", ErrInvalidResponseShape)
	}

	result, err := decodeResult(env.OverallAnalysis)
	if err != nil {
		return Result{}, nil, err
	}

	sections, err := decodeSections(env.Sections)
	if err != nil {
		return Result{}, nil, err
	}

	return result, sections, nil
}

// stripFences removes markdown code fences anywhere in the output.
func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// sliceBraces drops any prose before the first { and after the last }.
func sliceBraces(text string) string {
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first >= 0 && last > first {
		return text[first : last+1]
	}
	return text
}

// aggressiveClean strips JS-style comments and currency symbols that
// models occasionally leave inside otherwise-valid JSON.
func aggressiveClean(text string) string {
	text = blockCommentRe.ReplaceAllString(text, "")
	text = lineCommentRe.ReplaceAllString(text, "")
	return strings.ReplaceAll(text, "$", "")
}

func excerpt(text string) string {
	if len(text) <= excerptLimit {
		return text
	}
	return text[:excerptLimit]
}

var requiredScoreKeys = []string{
	"problemScore",
	"solutionScore",
	"marketScore",
	"tractionScore",
	"teamScore",
	"financialsScore",
	"overallScore",
}

func decodeResult(raw json.RawMessage) (Result, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Result{}, fmt.Errorf("%w: overallAnalysis is not an object", ErrInvalidResponseShape)
	}
	for _, key := range requiredScoreKeys {
		if _, ok := fields[key]; !ok {
			return Result{}, fmt.Errorf("%w: overallAnalysis.%s missing", ErrInvalidResponseShape, key)
		}
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return Result{}, fmt.Errorf("%w: overallAnalysis: %v", ErrInvalidResponseShape, err)
	}

	result.ProblemScore = clampScore(result.ProblemScore)
	result.SolutionScore = clampScore(result.SolutionScore)
	result.MarketScore = clampScore(result.MarketScore)
	result.TractionScore = clampScore(result.TractionScore)
	result.TeamScore = clampScore(result.TeamScore)
	result.FinancialsScore = clampScore(result.FinancialsScore)
	result.OverallScore = clampScore(result.OverallScore)

	result.Strengths = ensureSlice(result.Strengths)
	result.Weaknesses = ensureSlice(result.Weaknesses)
	result.KeyInsights = ensureSlice(result.KeyInsights)
	result.VisualInsights = ensureSlice(result.VisualInsights)

	if cv := result.ChecklistVerification; cv != nil {
		cv.FoundationalChecklistScore = clampScore(cv.FoundationalChecklistScore)
		cv.MissingItems = ensureSlice(cv.MissingItems)
		cv.VerifiedItems = ensureSlice(cv.VerifiedItems)
	}

	return result, nil
}

func decodeSections(raw json.RawMessage) ([]Section, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: sections is not an array", ErrInvalidResponseShape)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: sections is empty", ErrInvalidResponseShape)
	}

	sections := make([]Section, 0, len(entries))
	for i, entry := range entries {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(entry, &fields); err != nil {
			return nil, fmt.Errorf("%w: sections[%d] is not an object", ErrInvalidResponseShape, i)
		}
		if _, ok := fields["sectionName"]; !ok {
			return nil, fmt.Errorf("%w: sections[%d].sectionName missing", ErrInvalidResponseShape, i)
		}
		if _, ok := fields["sectionScore"]; !ok {
			return nil, fmt.Errorf("%w: sections[%d].sectionScore missing", ErrInvalidResponseShape, i)
		}

		var section Section
		if err := json.Unmarshal(entry, &section); err != nil {
			return nil, fmt.Errorf("%w: sections[%d]: %v", ErrInvalidResponseShape, i, err)
		}
		if strings.TrimSpace(section.SectionName) == "" {
			return nil, fmt.Errorf("%w: sections[%d].sectionName empty", ErrInvalidResponseShape, i)
		}

		section.SectionScore = clampScore(section.SectionScore)
		section.Strengths = ensureSlice(section.Strengths)
		section.Improvements = ensureSlice(section.Improvements)
		sections = append(sections, section)
	}

	return sections, nil
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func ensureSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
