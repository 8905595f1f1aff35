package bytesx

import "encoding/binary"

// MaskXOR XORs payload in place with the 4-byte big-endian mask key, cycling by offset modulo 4
// (RFC 6455 §5.3). The middle, 4-byte-aligned slice is XORed a full word at a time against the
// mask reassembled as a big-endian uint32 so the compiler can vectorize it; the unaligned head and
// tail bytes are XORed one at a time against a rotated view of the key.
//
// offset is the running payload offset of payload[0], needed because MaskXOR may be called
// repeatedly across successive reads of one frame's payload.
func MaskXOR(payload []byte, key [4]byte, offset int) {
	if len(payload) == 0 {
		return
	}

	// Rotate the key so that key32's first logical byte lines up with payload[0].
	rot := offset & 3
	var rotated [4]byte
	for i := 0; i < 4; i++ {
		rotated[i] = key[(i+rot)&3]
	}
	key32 := binary.BigEndian.Uint32(rotated[:])

	i := 0
	// Head: XOR single bytes until payload[i:] is 4-byte aligned relative to key32's start.
	for ; i < len(payload) && i%4 != 0; i++ {
		payload[i] ^= rotated[i%4]
	}

	// Aligned middle: XOR whole words.
	for ; i+4 <= len(payload); i += 4 {
		v := binary.BigEndian.Uint32(payload[i : i+4])
		binary.BigEndian.PutUint32(payload[i:i+4], v^key32)
	}

	// Tail.
	for ; i < len(payload); i++ {
		payload[i] ^= rotated[i%4]
	}
}
