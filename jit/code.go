package jit

// Code is a finalized, executable code object. The bytes live in a mapped
// region owned by the Code; Release unmaps it.
type Code struct {
	size int
	mem  []byte
}

// Size returns the code size in bytes.
func (c *Code) Size() int { return c.size }

// Bytes returns the executable bytes (read-only).
func (c *Code) Bytes() []byte { return c.mem[:c.size] }
