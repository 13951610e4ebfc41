package adapter

// abiPad left-pads a byte slice with zeros to one 32-byte ABI word.
func abiPad(b []byte, length int) []byte {
	if len(b) >= length {
		return b
	}
	padded := make([]byte, length)
	copy(padded[length-len(b):], b)
	return padded
}
