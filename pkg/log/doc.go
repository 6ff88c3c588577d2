// Package log is a small wrapper around the standard library logger that
// gives every service its own named logger.
//
// Every line carries a level and a `[name>]` prefix, which keeps output
// grep-friendly when the search kinds, the storage layer and the HTTP API
// log concurrently:
//
//	2025/01/02 10:00:00.000000 INFO [search>] 3 kinds in 12ms
//
// Debug lines are printed when debug is enabled globally (SetGlobalDebug, the
// --debug flag), per service (EnableDebugFor), or when the minimum level set
// with SetLevel is "debug".
//
// Output goes to stderr unless SetOutput or OpenFile routes it elsewhere.
// OpenFile writes to a size-rotated file.
//
//	l := log.ForService("search")
//	l.Infof("query %q returned %d hits", q, n)
//	l.Debugf("boundary %+v", b)
//
// All functions are safe for concurrent use. The package name collides with
// the standard library; alias one of them when both are needed.
package log
