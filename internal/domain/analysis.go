package domain

import (
	"errors"
	"sort"
	"strings"
	"unicode"
)

// Analysis-specific validation errors
var (
	// ErrAnalysisTextEmpty is returned when there is no text to analyze.
	ErrAnalysisTextEmpty = errors.New("analysis text cannot be empty")
)

// Concept is one key idea extracted from a reading text, with a relevance
// weight in (0, 1].
type Concept struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// TextStats is the structural profile of a reading text.
type TextStats struct {
	WordCount          int       `json:"word_count"`
	SentenceCount      int       `json:"sentence_count"`
	AvgSentenceLength  float64   `json:"avg_sentence_length"`
	AvgWordLength      float64   `json:"avg_word_length"`
	UniqueWordRatio    float64   `json:"unique_word_ratio"`
	ReadingTimeMinutes float64   `json:"reading_time_minutes"`
	Concepts           []Concept `json:"concepts"`
	Summary            string    `json:"summary,omitempty"`
}

// baselineWPM is the reference reading speed used to estimate reading time.
const baselineWPM = 200

// stopwords filtered out of frequency-based concept extraction. Mixed
// English/Vietnamese to match the texts the app serves.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "of": {},
	"to": {}, "in": {}, "on": {}, "at": {}, "is": {}, "are": {}, "was": {},
	"were": {}, "be": {}, "been": {}, "it": {}, "its": {}, "this": {},
	"that": {}, "with": {}, "as": {}, "for": {}, "by": {}, "from": {},
	"có": {}, "là": {}, "và": {}, "của": {}, "các": {}, "những": {},
	"một": {}, "được": {}, "trong": {}, "cho": {}, "với": {}, "không": {},
	"để": {}, "đã": {}, "này": {}, "khi": {}, "cũng": {}, "như": {},
}

// ComputeTextStats derives the structural profile of a text locally, with no
// remote dependency. Concept extraction is frequency based: the most common
// non-stopword terms of at least three letters, weights normalized against
// the top term. Results are deterministic for a given input.
func ComputeTextStats(text string, maxConcepts int) (*TextStats, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrAnalysisTextEmpty
	}
	if maxConcepts <= 0 {
		maxConcepts = 8
	}

	words := splitWords(text)
	sentences := SplitSentences(text)

	freq := make(map[string]int)
	unique := make(map[string]struct{})
	totalRunes := 0
	for _, w := range words {
		lw := strings.ToLower(w)
		unique[lw] = struct{}{}
		totalRunes += len([]rune(lw))
		if _, skip := stopwords[lw]; skip || len([]rune(lw)) < 3 {
			continue
		}
		freq[lw]++
	}

	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	// Frequency descending, term ascending for a stable order.
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxConcepts {
		terms = terms[:maxConcepts]
	}

	concepts := make([]Concept, 0, len(terms))
	if len(terms) > 0 {
		top := float64(freq[terms[0]])
		for _, t := range terms {
			concepts = append(concepts, Concept{
				Term:   t,
				Weight: round1(float64(freq[t]) / top),
			})
		}
	}

	stats := &TextStats{
		WordCount:     len(words),
		SentenceCount: len(sentences),
		Concepts:      concepts,
	}
	if stats.SentenceCount > 0 {
		stats.AvgSentenceLength = round1(float64(stats.WordCount) / float64(stats.SentenceCount))
	}
	if len(words) > 0 {
		stats.AvgWordLength = round1(float64(totalRunes) / float64(len(words)))
		stats.UniqueWordRatio = round1(float64(len(unique)) / float64(len(words)))
		stats.ReadingTimeMinutes = round1(float64(len(words)) / baselineWPM)
	}
	return stats, nil
}

// SplitSentences splits text on terminal punctuation, dropping empty
// fragments.
func SplitSentences(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
