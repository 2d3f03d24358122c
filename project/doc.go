// Package project loads the kbuild.yaml manifest that declares what a build
// produces: static libraries, executables linked against them, files copied
// into the sysroot, and the tar and ISO images packaged from it.
//
//	name: skift
//	build_dir: build
//	sysroot: build/sysroot
//	includes: [libraries]
//	libraries:
//	  - name: libsystem
//	    sources: [libraries/libsystem/*.c]
//	    install: lib/libsystem.a
//	executables:
//	  - name: kernel
//	    sources: [kernel/*.c, kernel/*.s]
//	    libraries: [libsystem]
//	    script: kernel/link.ld
//	    install: boot/kernel.bin
//	package:
//	  tar: build/ramdisk.tar
//	  iso: build/bootdisk.iso
//
// Relative paths in the manifest are resolved against the directory that
// holds it.
package project
