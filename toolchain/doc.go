// Package toolchain maps build stages onto external tool invocations.
//
// Each stage kind turns its declared inputs, output and options into one
// command line: nasm for assembly, a freestanding gcc for C, ar, ld with a
// layout script, tar, grub-mkrescue and qemu. Tool names and flag sets come
// from an immutable Config.
//
// Assemble and Compile are cacheable and consult a staleness.Checker before
// running. Archive, Link and the package stages always run.
//
// A tool that runs and exits non-zero produces a StageResult with
// Success=false and a TOOL_FAILED error attached; the method itself
// returns a nil error. Go errors are reserved for infrastructure problems:
// a missing tool, a canceled context or a filesystem failure.
package toolchain
