package epub

// Navigate moves the spine cursor to index and returns that entry's
// resource. Any in-range index is allowed, including non-linear entries.
func (d *Document) Navigate(index int) (Resource, error) {
	if index < 0 || index >= len(d.spine) {
		return Resource{}, ErrSpineBoundary
	}
	d.cursor = index
	return d.Resource(d.spine[index].IDRef)
}

// Next moves the cursor to the next linear spine entry and returns its
// resource. It fails with ErrSpineBoundary at the end of the spine, when no
// linear entry follows, or when the current entry is non-linear: non-linear
// entries are reachable only through Navigate.
func (d *Document) Next() (Resource, error) {
	if len(d.spine) == 0 || d.cursor >= len(d.spine)-1 || !d.spine[d.cursor].Linear {
		return Resource{}, ErrSpineBoundary
	}
	for i := d.cursor + 1; i < len(d.spine); i++ {
		if d.spine[i].Linear {
			d.cursor = i
			return d.Resource(d.spine[i].IDRef)
		}
	}
	return Resource{}, ErrSpineBoundary
}

// Prev is the backward counterpart of Next.
func (d *Document) Prev() (Resource, error) {
	if len(d.spine) == 0 || d.cursor == 0 || !d.spine[d.cursor].Linear {
		return Resource{}, ErrSpineBoundary
	}
	for i := d.cursor - 1; i >= 0; i-- {
		if d.spine[i].Linear {
			d.cursor = i
			return d.Resource(d.spine[i].IDRef)
		}
	}
	return Resource{}, ErrSpineBoundary
}

// Current returns the resource at the cursor without moving it.
func (d *Document) Current() (Resource, error) {
	if len(d.spine) == 0 {
		return Resource{}, ErrSpineBoundary
	}
	return d.Resource(d.spine[d.cursor].IDRef)
}

// SpineIndex returns the cursor position.
func (d *Document) SpineIndex() int { return d.cursor }
