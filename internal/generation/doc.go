// Package generation provides the interface boundary between feature code
// and external AI/LLM services for text generation. It abstracts the details
// of LLM API integration (Gemini), allowing quiz generation, grading, and
// text analysis to run against any generator implementation, and defines the
// closed set of failure kinds produced at the HTTP boundary and consumed by
// the orchestration layer.
package generation
