package capture

// mixInt16 merges two mono PCM16 buffers by saturating addition. When
// the buffers differ in length the tail of the longer one is carried
// through unchanged, so neither stream loses samples.
func mixInt16(a, b []int16) []int16 {
	if len(b) > len(a) {
		a, b = b, a
	}

	out := make([]int16, len(a))
	for i := range a {
		if i < len(b) {
			out[i] = saturate(int32(a[i]) + int32(b[i]))
		} else {
			out[i] = a[i]
		}
	}
	return out
}

func saturate(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
