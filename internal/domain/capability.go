package domain

// Capabilities are fixed at process start. Mutating operations (deploy,
// frontend update, domain binding, delete) are disabled unless write access
// was explicitly enabled; callers query CanMutate before invoking them.
type Capabilities struct {
	AllowWrite bool
}

// CanMutate reports whether mutating operations are permitted. Pure check;
// enforcement happens at the calling boundary.
func (c Capabilities) CanMutate() bool { return c.AllowWrite }
