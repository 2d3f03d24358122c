// Package version reports the kbuild release, set at link time:
//
//	go build -ldflags "-X github.com/kbukum/kbuild/version.Version=1.2.0" ./cmd/kbuild
//
// Unset values fall back to the VCS stamp in the binary's build info.
package version
