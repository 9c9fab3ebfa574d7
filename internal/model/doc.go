// Package model defines the data structures shared between the rotation
// controller, the history store, and the report writers: per-rotation
// events and whole-session summaries.
package model
