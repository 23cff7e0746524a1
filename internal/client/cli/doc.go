// Package cli is the interactive dualcal terminal client: a REPL that signs
// in, renders the dual Gregorian/Hijri month from the offline cache and
// forwards account actions to the server.
package cli
