package analysis

// ChannelGain is applied to each side before the channels are merged.
const ChannelGain = 0.5

// Downmix splits stereo frames into left and right, scales each by ChannelGain,
// and merges them into a single channel. Beat and waveform code assume this one signal.
func Downmix(frames [][2]float64) []float64 {
	left, right := split(frames)
	out := make([]float64, len(frames))
	for i := range out {
		out[i] = left[i]*ChannelGain + right[i]*ChannelGain
	}
	return out
}

func split(frames [][2]float64) (left, right []float64) {
	left = make([]float64, len(frames))
	right = make([]float64, len(frames))
	for i, f := range frames {
		left[i], right[i] = f[0], f[1]
	}
	return left, right
}
