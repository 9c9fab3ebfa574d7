// Package history provides SQLite-based storage for rotation sessions.
//
// Each run of the rotate command produces one session row plus one row per
// rotation attempt, so the history command can show what happened across
// invocations.
//
// Design decision: We use SQLite (via modernc.org/sqlite) because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package history
