// Package schedule triggers update cycles: once, or daily at a wall-clock
// time.
//
// The recurring mode is a level-triggered poll loop. Every poll interval it
// compares the current time with the next due time and, when due, runs the
// cycle inline before computing the following due time. Cycles never
// overlap and a cycle that outlives its slot does not cause catch-up runs.
package schedule
