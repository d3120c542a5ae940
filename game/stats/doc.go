// Package stats keeps the win, loss and tie counters.
package stats
