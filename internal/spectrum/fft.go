package spectrum

import (
	"fmt"
	"math"
	"math/bits"
)

// fft is an in-place iterative radix-2 transform over complex64.
// Twiddles and the bit-reversal permutation are computed once.
type fft struct {
	n       int
	twiddle []complex64
	rev     []int
}

func newFFT(n int) (*fft, error) {
	if n < 2 || n&(n-1) != 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidSize, n)
	}

	logn := bits.TrailingZeros(uint(n))
	f := &fft{
		n:       n,
		twiddle: make([]complex64, n/2),
		rev:     make([]int, n),
	}
	for i := range f.rev {
		f.rev[i] = int(bits.Reverse(uint(i)) >> (bits.UintSize - logn))
	}
	for k := range f.twiddle {
		angle := -2 * math.Pi * float64(k) / float64(n)
		f.twiddle[k] = complex(float32(math.Cos(angle)), float32(math.Sin(angle)))
	}
	return f, nil
}

// forward transforms x in place. len(x) must equal f.n.
func (f *fft) forward(x []complex64) {
	for i, j := range f.rev {
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}

	for size := 2; size <= f.n; size <<= 1 {
		half := size >> 1
		step := f.n / size
		for start := 0; start < f.n; start += size {
			for k := 0; k < half; k++ {
				w := f.twiddle[k*step]
				a := x[start+k]
				b := x[start+k+half] * w
				x[start+k] = a + b
				x[start+k+half] = a - b
			}
		}
	}
}

// norm returns |c|².
func norm(c complex64) float32 {
	re, im := real(c), imag(c)
	return re*re + im*im
}
