// Package agents defines the capability agents the triage router hands off to.
//
// Each agent is bound to one Capability (summarizer, agenda checker, question
// asker) and is described by an immutable Spec loaded from the agent catalog
// at startup. Agents read a transcript by reference, retrieve the turns most
// relevant to their capability, and make exactly one Worker call. Their raw
// output is returned unmodified for the normalizer.
package agents
