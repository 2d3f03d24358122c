// Package staleness decides whether a build output must be regenerated.
//
// The default checker compares modification times: an output is up to date
// only when it exists and its mtime is strictly later than the mtime of
// every input. Equal timestamps count as stale, since filesystems with
// one-second resolution cannot order two writes within the same second.
//
// HashChecker answers the same question from file contents. It keeps an
// xxhash digest of the inputs in a sidecar stamp file next to the output,
// written by Record after the producing stage succeeds.
//
// Decisions are never cached between calls; every call reads the filesystem.
package staleness
