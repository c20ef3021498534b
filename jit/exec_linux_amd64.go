//go:build linux && amd64

package jit

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// CanExecute reports whether emitted code can be run on this platform.
func CanExecute() bool { return true }

// NewCode copies the finalized bytes into an executable mapping.
func NewCode(buf []byte) (*Code, error) {
	if len(buf) == 0 {
		return nil, errors.Errorf("jit: empty code buffer")
	}
	size := (len(buf) + unix.Getpagesize() - 1) &^ (unix.Getpagesize() - 1)
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, errors.Wrapf(err, "jit: mmap of %d code bytes", size)
	}
	copy(mem, buf)
	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		_ = unix.Munmap(mem)
		return nil, errors.Wrap(err, "jit: mprotect PROT_EXEC")
	}
	return &Code{size: len(buf), mem: mem}, nil
}

// Run calls the code with the cell base pointer in RDI.
func (c *Code) Run(base unsafe.Pointer) {
	jitcall(unsafe.Pointer(&c.mem[0]), base)
}

// Release unmaps the executable region.
func (c *Code) Release() error {
	if c.mem == nil {
		return nil
	}
	err := unix.Munmap(c.mem)
	c.mem = nil
	return err
}

// jitcall transfers control to code with base in RDI. Implemented in
// jitcall_amd64.s.
//
//go:noescape
func jitcall(code, base unsafe.Pointer)
