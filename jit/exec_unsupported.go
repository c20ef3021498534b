//go:build !(linux && amd64)

package jit

import (
	"unsafe"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// CanExecute reports whether emitted code can be run on this platform.
func CanExecute() bool { return false }

// NewCode fails: executing emitted code requires linux/amd64. Emission
// itself works on any platform.
func NewCode(buf []byte) (*Code, error) {
	return nil, errors.Errorf("jit: executable code buffers require linux/amd64")
}

// Run aborts; NewCode never succeeds on this platform.
func (c *Code) Run(base unsafe.Pointer) {
	klog.Fatalf("jit: cannot run emitted code on this platform")
}

// Release is a no-op on this platform.
func (c *Code) Release() error { return nil }
