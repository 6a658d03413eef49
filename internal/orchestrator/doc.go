// Package orchestrator implements the multi-key LLM request orchestration
// layer: the credential pool with per-credential health tracking
// (KeyRegistry), the serializing request scheduler with in-place retry
// (RequestScheduler), and the orchestration facade (Service) that rotates
// credentials across attempts and implements generation.TextGenerator.
//
// All components are explicitly constructed with injectable configuration
// and have an explicit lifecycle; nothing in this package is ambient global
// state.
package orchestrator
