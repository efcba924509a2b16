// Package normalize turns raw language-model output into a tagged Result.
//
// Worker output is untrusted text: it may be empty, wrapped in code fences,
// valid JSON, JSON embedded in prose, or plain narrative. Normalize applies a
// fixed fallback chain (structured, salvaged text, sentinel) and never returns
// an error, so callers switch on Result.Kind instead of handling parse
// failures.
package normalize
