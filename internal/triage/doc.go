// Package triage routes a transcript to exactly one capability agent.
//
// The Router asks an Assessor for three independent signals (concluded,
// agenda drift, needs clarification) and applies a fixed priority policy to
// pick a handoff target from the router's dispatch table. The Service wraps a
// single invocation: read the transcript, decide, run the chosen agent once,
// and normalize its output. When the assessment itself cannot be turned into
// a decision the Service returns *services.RoutingIndecisionError; it never
// falls back to a default agent.
package triage
