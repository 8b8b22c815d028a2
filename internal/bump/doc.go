// Package bump provides generation-tagged bump arenas and the double buffer
// the engine renders into.
//
// An Arena hands out Refs and Spans instead of pointers. Each handle records
// the arena it came from and the arena generation at allocation time. Reset
// frees every value at once and bumps the generation, so any handle kept
// past a reset is detected on its next use and panics with *StaleRefError.
//
// A DoubleBuffer pairs two buffers. Renders write into the work-in-progress
// side while the committed side stays readable; Flip swaps their roles once
// the diff is done.
package bump
