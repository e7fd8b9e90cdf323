// Package library reads back what lives on a prepared target: the games
// under CD and DVD joined with their manifest entries, and removal of a
// game together with its art files and journal entry.
package library
