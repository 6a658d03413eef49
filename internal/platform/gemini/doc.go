// Package gemini implements the HTTP client for the Gemini generateContent
// REST API. The client performs exactly one exchange per Call: it builds the
// request envelope, posts it with the supplied credential, and classifies
// the outcome into the closed failure taxonomy of the generation package.
// Retry, backoff, and credential rotation all live above this package.
package gemini
