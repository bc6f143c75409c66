package page

// NewTestPage builds a page stamped with id, with data copied (and
// truncated if necessary) into its payload. Used by buffer/disk tests.
func NewTestPage(id ID, data []byte) *Page {
	p := New(id)
	if len(data) > len(p.Data) {
		data = data[:len(p.Data)]
	}
	copy(p.Data[:], data)
	return p
}
