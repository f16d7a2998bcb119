package audio

// Smoothstep eases t in [0,1] with 3t² - 2t³; values outside are clamped.
func Smoothstep(t float64) float64 {
	switch {
	case t <= 0:
		return 0
	case t >= 1:
		return 1
	}
	return t * t * (3 - 2*t)
}

// CrossfadeFrames mixes outgoing into incoming along the smoothstep curve.
// progress 0 is all outgoing, 1 is all incoming. The result has the length
// of the shorter frame and is clipped to int16.
func CrossfadeFrames(outgoing, incoming []int16, progress float64) []int16 {
	gain := Smoothstep(progress)
	mixed := make([]int16, min(len(outgoing), len(incoming)))
	for i := range mixed {
		mixed[i] = clip16(float64(outgoing[i])*(1-gain) + float64(incoming[i])*gain)
	}
	return mixed
}

func clip16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
