// Package preflight provides readiness checks for the language-model worker,
// the transcription backend, and the filesystem paths huddle writes into.
//
// These checks run in two contexts:
//   - `huddle serve` runs RunAll at startup and logs every failure before
//     accepting requests.
//   - `huddle doctor` prints the same results alongside CheckSystemDeps.
//
// Checks for backends that are not selected in the config are skipped.
package preflight
