// Package logs reads the server log for `huddle logs`.
//
// Last returns the final lines of a file with bounded memory; Follow then
// streams appended lines, waking on fsnotify events for the log directory so
// it also picks up the new file when the huddle.log pointer is swapped on
// restart.
package logs
