// Package services holds the cross-cutting error taxonomy and context helpers
// shared by the transcript pipeline, the capability agents, and the triage
// router, plus the remote-collaborator adapters under its subpackages.
//
// Errors are classified with sentinel markers so callers can use errors.Is
// without knowing which component failed. The typed errors (StorageError,
// TranscriptionError, WorkerInvocationError, RoutingIndecisionError) carry the
// detail a caller needs to report the failure and always match their marker.
package services
