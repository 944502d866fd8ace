package w3g

// decodeGameString reverses the byte masking applied to the settings string
// embedded in the replay metadata. The input is processed in groups of
// eight bytes: the first byte of each group is a bitmask and produces no
// output; each following byte at group position k (1..7) is kept verbatim
// when mask bit k is set and decremented by one when it is clear.
//
// The masking exists so the encoded field never contains a null byte and
// can be stored as a C string; decoding never fails.
func decodeGameString(enc []byte) []byte {
	if len(enc) == 0 {
		return nil
	}

	out := make([]byte, 0, len(enc)-(len(enc)+7)/8)
	var mask byte
	for i, b := range enc {
		pos := i % 8
		if pos == 0 {
			mask = b
			continue
		}
		if mask&(1<<uint(pos)) == 0 {
			b--
		}
		out = append(out, b)
	}
	return out
}
