package ai

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/preppal/interview-prep-ai/internal/adapter/observability"
	"github.com/preppal/interview-prep-ai/internal/domain"
)

// excerptLen bounds the head/tail diagnostics attached to unparsable errors.
const excerptLen = 500

var (
	leadingFence  = regexp.MustCompile("(?i)^[\\s\\n]*```(?:json)?")
	trailingFence = regexp.MustCompile("(?i)```[\\s\\n]*$")
	pairPattern   = regexp.MustCompile(`"question"\s*:\s*"((?:[^"\\]|\\.)*)"\s*,\s*"answer"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// StripFences removes a leading/trailing markdown code fence (optional json
// language tag, case-insensitive) and trims whitespace.
func StripFences(raw string) string {
	s := leadingFence.ReplaceAllString(raw, "")
	s = trailingFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ExtractObject normalizes a single-object payload: fence strip, slice the
// first '{' to last '}', direct parse. No deeper recovery is attempted for
// objects; short payloads that fail here are hopeless.
func ExtractObject(raw string, out any) error {
	cleaned := StripFences(raw)
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start != -1 && end > start {
		cleaned = cleaned[start : end+1]
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		observability.NormalizerFailuresTotal.Inc()
		return domain.NewUnparsableResponseError(raw, "object parse: "+err.Error(), excerptLen)
	}
	observability.NormalizerRecoveriesTotal.WithLabelValues("direct").Inc()
	return nil
}

// ExtractArray normalizes a JSON-array payload of arbitrary element shape:
// fence strip, slice first '[' to last ']', direct parse. Used for payloads
// (quiz questions) whose elements the normalizer has no field knowledge of.
func ExtractArray(raw string, out any) error {
	cleaned := StripFences(raw)
	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start != -1 && end > start {
		cleaned = cleaned[start : end+1]
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		observability.NormalizerFailuresTotal.Inc()
		return domain.NewUnparsableResponseError(raw, "array parse: "+err.Error(), excerptLen)
	}
	observability.NormalizerRecoveriesTotal.WithLabelValues("direct").Inc()
	return nil
}

// ExtractPairs recovers question/answer pairs from raw model output,
// tolerating fences, surrounding prose, and truncation. Strategies run in
// order and the first that yields at least one valid pair wins:
//
//  1. fence strip + bracket slice + direct parse
//  2. truncated-array repair (close the array at the last complete object)
//  3. regex extraction of question/answer fields with per-object re-parse
//  4. brace-balanced scan of every {...} span after the opening bracket
//
// Every returned pair has a non-empty question and answer post-trim; partial
// elements are dropped, never defaulted.
func ExtractPairs(raw string) ([]domain.QuestionAnswerPair, error) {
	cleaned := StripFences(raw)

	arrStart := strings.Index(cleaned, "[")
	arrEnd := strings.LastIndex(cleaned, "]")

	if arrEnd == -1 || arrEnd <= arrStart {
		// No closing bracket: the response was likely truncated mid-array.
		// Cut at the last complete object and close the array ourselves.
		lastObj := strings.LastIndex(cleaned, "}")
		if arrStart == -1 || lastObj <= arrStart {
			observability.NormalizerFailuresTotal.Inc()
			return nil, domain.NewUnparsableResponseError(raw, "no array structure found", excerptLen)
		}
		cleaned = cleaned[arrStart:lastObj+1] + "\n]"
		slog.Warn("response truncated, recovering complete questions",
			slog.Int("raw_len", len(raw)))
	} else {
		cleaned = cleaned[arrStart : arrEnd+1]
	}

	if pairs, ok := parsePairArray(cleaned); ok {
		strategy := "direct"
		if arrEnd == -1 || arrEnd <= arrStart {
			strategy = "truncated"
		}
		observability.NormalizerRecoveriesTotal.WithLabelValues(strategy).Inc()
		return pairs, nil
	}

	if pairs := extractPairsByRegex(cleaned); len(pairs) > 0 {
		observability.NormalizerRecoveriesTotal.WithLabelValues("regex").Inc()
		slog.Warn("recovered questions via regex extraction", slog.Int("count", len(pairs)))
		return pairs, nil
	}

	if pairs := extractPairsByScan(cleaned); len(pairs) > 0 {
		observability.NormalizerRecoveriesTotal.WithLabelValues("scan").Inc()
		slog.Warn("recovered questions via brace scan", slog.Int("count", len(pairs)))
		return pairs, nil
	}

	observability.NormalizerFailuresTotal.Inc()
	return nil, domain.NewUnparsableResponseError(raw, "no recoverable question/answer pairs", excerptLen)
}

// parsePairArray attempts a strict parse and filters out elements missing
// either field.
func parsePairArray(text string) ([]domain.QuestionAnswerPair, bool) {
	var parsed []domain.QuestionAnswerPair
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, false
	}
	pairs := filterValid(parsed)
	if len(pairs) == 0 {
		return nil, false
	}
	return pairs, true
}

// extractPairsByRegex pattern-matches question/answer fields even across
// malformed surrounding structure. Each match is re-expanded to its enclosing
// object and parsed in isolation; if that fails, the raw captures are
// unescaped and used directly.
func extractPairsByRegex(text string) []domain.QuestionAnswerPair {
	matches := pairPattern.FindAllStringSubmatchIndex(text, -1)
	var pairs []domain.QuestionAnswerPair
	for _, m := range matches {
		objStart := strings.LastIndex(text[:m[0]], "{")
		objEnd := strings.Index(text[m[0]:], "}")
		if objStart >= 0 && objEnd >= 0 {
			objText := text[objStart : m[0]+objEnd+1]
			var p domain.QuestionAnswerPair
			if err := json.Unmarshal([]byte(objText), &p); err == nil {
				if valid(p) {
					pairs = append(pairs, p)
				}
				continue
			}
		}
		p := domain.QuestionAnswerPair{
			Question: unescape(text[m[2]:m[3]]),
			Answer:   unescape(text[m[4]:m[5]]),
		}
		if valid(p) {
			pairs = append(pairs, p)
		}
	}
	return pairs
}

// extractPairsByScan walks the text locating every balanced {...} span after
// the opening bracket and keeps those that parse with both fields present.
func extractPairsByScan(text string) []domain.QuestionAnswerPair {
	var pairs []domain.QuestionAnswerPair
	pos := strings.Index(text, "[") + 1
	for pos < len(text) {
		objStart := strings.Index(text[pos:], "{")
		if objStart == -1 {
			break
		}
		objStart += pos
		objEnd := balancedEnd(text, objStart)
		if objEnd == -1 {
			break // incomplete trailing object
		}
		var p domain.QuestionAnswerPair
		if err := json.Unmarshal([]byte(text[objStart:objEnd]), &p); err == nil && valid(p) {
			pairs = append(pairs, p)
		}
		pos = objEnd
	}
	return pairs
}

// balancedEnd returns the index one past the brace matching text[start],
// or -1 when the span never closes.
func balancedEnd(text string, start int) int {
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

func valid(p domain.QuestionAnswerPair) bool {
	return strings.TrimSpace(p.Question) != "" && strings.TrimSpace(p.Answer) != ""
}

func filterValid(in []domain.QuestionAnswerPair) []domain.QuestionAnswerPair {
	out := in[:0]
	for _, p := range in {
		if valid(p) {
			out = append(out, p)
		}
	}
	return out
}

// unescape interprets JSON escape sequences in a regex-captured string body.
func unescape(s string) string {
	if u, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return u
	}
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\n`, "\n")
	return s
}
