// Package build turns a project manifest into a graph of toolchain stages
// and runs it.
//
// Stages run in a fixed order: compile and assemble, then archive, link,
// install into the sysroot, tar and finally ISO. Compile and assemble are
// skipped when their object is up to date; every later stage always runs.
// The first failing stage stops the build. Nothing is rolled back.
package build
