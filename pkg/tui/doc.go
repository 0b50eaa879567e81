// Package tui is the interactive intake desk: a bubbletea program with the
// "Add New Primate" form, the isolation list and live views of the
// enclosures and roster.
package tui
