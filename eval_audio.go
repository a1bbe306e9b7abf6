package patchbay

import "fmt"

// evalAudio handles the nodes that pick apart the frame's audio snapshot.
// They never touch a capture backend; whatever the hosting loop sampled
// into the frame context is all they see.
func evalAudio(n *Node, in Inputs, fc FrameContext) (Outputs, error) {
	switch n.TypeKey {
	case "audioLevel":
		return Outputs{"output": fc.Audio.Level * in.Number("gain", 1)}, nil

	case "audioBand":
		lo := int(in.Number("from", 0))
		hi := int(in.Number("to", 7))
		return Outputs{"output": fc.Audio.Band(lo, hi) * in.Number("gain", 1)}, nil

	case "audioBeat":
		return Outputs{"beat": fc.Audio.Beat, "bpm": fc.Audio.BPM}, nil

	case "audioSpectrum":
		// Shared slice; consumers read, never write.
		return Outputs{"output": fc.Audio.Bands}, nil
	}
	return nil, fmt.Errorf("patchbay: unknown audio node %q", n.TypeKey)
}
