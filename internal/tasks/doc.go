// Package tasks holds the four panel task bodies.
//
// Indicator and Pulse drive outputs on a fixed rhythm and know nothing about
// being controlled. Control polls the buttons and toggles their run-state
// through registry handles. Status waits for both handles and then redraws
// the display on a fixed period. Every body is a kernel.Entry and can be
// re-entered after a fault without losing its state.
package tasks
