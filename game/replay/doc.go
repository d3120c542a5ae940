// Package replay manages the fixed pool of saved replay slots.
package replay
