package types

// SetByPath sets value at the dotted path, creating intermediate Documents
// as needed. If an intermediate segment already holds a non-Document,
// non-Array value, it is overwritten with a new Document.
//
// When an intermediate segment resolves to an Array, value is set on
// every element of the array that is itself a Document (array-aware
// write, mirroring the array-aware read in ResolvePath); this supports
// $addFields targeting a path that runs through an array of sub-documents.
func SetByPath(d *Document, path []string, value any) {
	if len(path) == 0 {
		return
	}

	if len(path) == 1 {
		d.Set(path[0], value)
		return
	}

	segment, rest := path[0], path[1:]

	child, ok := d.Get(segment)
	if !ok {
		child = MakeDocument(1)
		d.Set(segment, child)
	}

	switch c := child.(type) {
	case *Document:
		SetByPath(c, rest, value)
	case *Array:
		for i := 0; i < c.Len(); i++ {
			elem, _ := c.Get(i)
			if ed, ok := elem.(*Document); ok {
				SetByPath(ed, rest, value)
			}
		}
	default:
		nd := MakeDocument(1)
		SetByPath(nd, rest, value)
		d.Set(segment, nd)
	}
}

// PickByPath copies the value at the dotted path from src into dst,
// creating intermediate Documents as needed (mirroring SetByPath) and,
// array-aware, descending into every Document element of an
// intermediate Array while passing non-Document elements through
// unchanged -- this is what $project's inclusion mode uses to walk into
// sub-objects and sub-arrays while preserving array structure. A path
// that doesn't resolve in src is a no-op, same as RemoveByPath.
func PickByPath(dst, src *Document, path []string) {
	if dst == nil || src == nil || len(path) == 0 {
		return
	}

	segment, rest := path[0], path[1:]

	v, ok := src.Get(segment)
	if !ok {
		return
	}

	if len(rest) == 0 {
		dst.Set(segment, v)
		return
	}

	switch child := v.(type) {
	case *Document:
		sub, ok := dst.Get(segment)
		subDoc, ok2 := sub.(*Document)

		if !ok || !ok2 {
			subDoc = MakeDocument(1)
			dst.Set(segment, subDoc)
		}

		PickByPath(subDoc, child, rest)
	case *Array:
		dstArr := pickArrayShell(dst, segment, child)

		for i := 0; i < child.Len(); i++ {
			elem, _ := child.Get(i)

			ed, ok := elem.(*Document)
			if !ok {
				continue
			}

			cur, _ := dstArr.Get(i)

			curDoc, ok := cur.(*Document)
			if !ok {
				curDoc = MakeDocument(1)
				_ = dstArr.Set(i, curDoc)
			}

			PickByPath(curDoc, ed, rest)
		}
	}
}

// pickArrayShell returns the Array already at dst[segment] if it
// already mirrors src's length, or builds a fresh one the same length
// as src: Document elements start as empty placeholders for PickByPath
// to fill in, non-Document elements are carried through verbatim since
// a dotted inclusion path has nothing to select out of them.
func pickArrayShell(dst *Document, segment string, src *Array) *Array {
	if v, ok := dst.Get(segment); ok {
		if arr, ok := v.(*Array); ok && arr.Len() == src.Len() {
			return arr
		}
	}

	arr := MakeArray(src.Len())

	for i := 0; i < src.Len(); i++ {
		elem, _ := src.Get(i)

		if _, isDoc := elem.(*Document); isDoc {
			_ = arr.Append(MakeDocument(0))
		} else {
			_ = arr.Append(elem)
		}
	}

	dst.Set(segment, arr)

	return arr
}

// RemoveByPath removes the field named by the dotted path, descending
// into nested Documents (and, array-aware, every Document element of a
// nested Array) without creating anything.
func RemoveByPath(d *Document, path []string) {
	if d == nil || len(path) == 0 {
		return
	}

	if len(path) == 1 {
		d.Remove(path[0])
		return
	}

	segment, rest := path[0], path[1:]

	child, ok := d.Get(segment)
	if !ok {
		return
	}

	switch c := child.(type) {
	case *Document:
		RemoveByPath(c, rest)
	case *Array:
		for i := 0; i < c.Len(); i++ {
			elem, _ := c.Get(i)
			if ed, ok := elem.(*Document); ok {
				RemoveByPath(ed, rest)
			}
		}
	}
}
