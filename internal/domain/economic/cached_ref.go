package economic

// cachedRef remembers the entity last resolved for a handle-typed property
// together with the handle it was resolved from. Assigning a different
// handle drops the entity; assigning an equal one keeps it.
type cachedRef[T Record] struct {
	key   Handle
	value T
	ok    bool
}

func (c *cachedRef[T]) lookup(h Handle) (T, bool) {
	if c.ok && c.key.Equal(h) {
		return c.value, true
	}
	var zero T
	return zero, false
}

func (c *cachedRef[T]) store(h Handle, v T) {
	c.key = h
	c.value = v
	c.ok = true
}

// invalidate drops the cached entity unless h equals the handle it was resolved from
func (c *cachedRef[T]) invalidate(h Handle) {
	if c.ok && !c.key.Equal(h) {
		var zero T
		c.key = Handle{}
		c.value = zero
		c.ok = false
	}
}
