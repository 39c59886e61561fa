package common

// WipeByteArray overwrites the contents of b with zeroes. Used to clear
// password buffers once they have been handed to the identity backend.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
