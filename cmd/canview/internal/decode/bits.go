package decode

import "github.com/example/canview/cmd/canview/internal/model"

// payloadBit returns bit n of the payload, numbering bit 0 as the least
// significant bit of byte 0.
func payloadBit(payload []byte, n uint64) uint64 {
	return uint64(payload[n/8]>>(n%8)) & 1
}

// extract reads the raw field of sig from payload.
func extract(sig *model.Signal, payload []byte) (int64, error) {
	total := 8 * uint64(len(payload))
	if sig.Length > 64 {
		return 0, ErrRangeTooBig
	}

	var raw uint64
	switch sig.Order {
	case model.BigEndian:
		// Motorola: StartBit is the MSB, the walk runs towards bit 0 of the
		// byte and then continues at bit 7 of the next byte. StartBit+Length
		// says nothing about the span here, so the walk bounds the field.
		n := sig.StartBit
		for i := uint64(0); i < sig.Length; i++ {
			if n >= total {
				return 0, ErrRangeTooBig
			}
			raw = raw<<1 | payloadBit(payload, n)
			if n%8 == 0 {
				n += 15
			} else {
				n--
			}
		}
	default:
		if sig.StartBit+sig.Length > total {
			return 0, ErrRangeTooBig
		}
		for i := uint64(0); i < sig.Length; i++ {
			raw |= payloadBit(payload, sig.StartBit+i) << i
		}
	}

	if sig.Signed {
		return signExtend(raw, sig.Length), nil
	}
	return int64(raw), nil
}

func signExtend(raw, length uint64) int64 {
	if length == 0 || length >= 64 {
		return int64(raw)
	}
	if raw&(1<<(length-1)) != 0 {
		raw |= ^uint64(0) << length
	}
	return int64(raw)
}
