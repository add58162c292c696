package codec

import "testing"

// BenchmarkDecode measures decoding one 2.5 ms stereo frame into the
// fixed output buffer.
func BenchmarkDecode(b *testing.B) {
	enc, err := NewEncoder(SampleRate, Channels, FrameSamples)
	if err != nil {
		b.Fatal(err)
	}
	pkt, err := enc.Encode(sineFrame(FrameSamples, Channels, 0))
	if err != nil {
		b.Fatal(err)
	}
	pkt = append([]byte(nil), pkt...)

	dec, err := NewDecoder(SampleRate, Channels, FrameSamples)
	if err != nil {
		b.Fatal(err)
	}

	b.SetBytes(int64(FrameSamples * Channels * 2))
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := dec.Decode(pkt); err != nil {
			b.Fatal(err)
		}
	}
}
