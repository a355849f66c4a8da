package tlv8

// Builder accumulates Items in explicit append order. Some pairing
// variants require a particular field ordering on the wire (e.g.
// Sequence before PublicKey in pair-verify M1); Encode preserves
// whatever order the caller appended in, so Builder exists purely to
// make that intent readable at call sites.
type Builder struct {
	items []Item
}

// Add appends a field to the record.
func (b *Builder) Add(tag Tag, value []byte) *Builder {
	b.items = append(b.items, Item{Tag: tag, Value: value})
	return b
}

// AddByte appends a single-byte field, the common case for Method,
// Sequence and Error.
func (b *Builder) AddByte(tag Tag, value byte) *Builder {
	return b.Add(tag, []byte{value})
}

// Bytes renders the accumulated items to wire bytes.
func (b *Builder) Bytes() []byte {
	return Encode(b.items)
}

// Items returns the accumulated items without encoding them, useful
// when a caller wants to nest them inside another TLV8 record (e.g.
// the sub-TLV encrypted inside EncryptedData).
func (b *Builder) Items() []Item {
	return b.items
}
