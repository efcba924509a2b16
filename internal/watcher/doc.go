// Package watcher ingests meeting audio dropped into an inbox directory.
//
// fsnotify create and write events are debounced per file by a settle delay
// so partially copied recordings are not read. Each settled file is ingested
// through the transcript pipeline, then moved to <work_dir>/processed or, on
// failure, <work_dir>/failed so it is never picked up twice. At most
// MaxConcurrent files are ingested at once. Files already present when the
// watcher starts are handled the same way.
package watcher
