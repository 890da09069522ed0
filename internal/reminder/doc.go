// Package reminder runs the periodic-event notification engine.
//
// On every tick the Loop re-reads all event definitions, merges their
// occurrences up to now+lookahead, keeps those within the tolerance window
// around now, and hands them to the Dispatcher, which sends each occurrence
// at most once.
//
// Notification records live in memory only. After a restart an occurrence
// that is still inside the window can be announced a second time.
package reminder
