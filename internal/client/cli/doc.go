// Package cli is the terminal presentation layer: an interactive screen
// loop over the application services. Screens render state and translate
// typed errors into messages; all flow decisions live in the controllers
// underneath.
package cli
