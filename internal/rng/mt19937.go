// Package rng implements the math/RNG core (spec component C1): a 32-bit
// Mersenne Twister with period 2^19937-1, uniform draws in the open
// interval (0,1), exponential free-path sampling, cached polar Box-Muller
// Gaussian sampling, a numerically stable quadratic solver, and a
// tolerant float comparison.
//
// Algorithm choice grounded on original_source/src/PhgMath.c, which
// selects PHGMATH_USE_MT_RNG and seeds via init_genrand(seed); no example
// repo in the pack ships an MT19937 generator (Go's math/rand uses a
// different, non-MT algorithm), so the generator itself is written from
// the standard public-domain reference algorithm rather than adapted from
// a library.
package rng

import (
	"encoding/binary"
	"io"
	"math"
	"time"
)

const (
	n          = 624
	m          = 397
	matrixA    = 0x9908b0df
	upperMask  = 0x80000000
	lowerMask  = 0x7fffffff
)

// MT is a self-contained Mersenne Twister 19937 generator plus the
// derived sampling routines the tracker needs. It is not safe for
// concurrent use; per spec.md §5 each worker owns its own instance.
type MT struct {
	state [n]uint32
	index int

	haveGaussian  bool
	cachedGauss   float64
}

// New creates a generator seeded from seed. Per spec.md §4.1, seeds <= 0
// are replaced by the system clock masked to 32 bits so the effective
// seed is never negative.
func New(seed int64) *MT {
	mt := &MT{}
	mt.Seed(seed)
	return mt
}

// Seed (re)initializes the generator state. A non-positive seed is
// replaced with the low 32 bits of the wall clock.
func (g *MT) Seed(seed int64) {
	effective := seed
	if effective <= 0 {
		effective = time.Now().UnixNano() & 0xffffffff
	}
	g.initGenrand(uint32(effective))
	g.haveGaussian = false
	g.cachedGauss = 0
}

func (g *MT) initGenrand(s uint32) {
	g.state[0] = s
	for i := 1; i < n; i++ {
		g.state[i] = 1812433253*(g.state[i-1]^(g.state[i-1]>>30)) + uint32(i)
	}
	g.index = n
}

var mag01 = [2]uint32{0x0, matrixA}

// genrandUint32 returns the next raw 32-bit word, regenerating the state
// array every n draws (the standard MT19937 twist step).
func (g *MT) genrandUint32() uint32 {
	if g.index >= n {
		var y uint32
		for kk := 0; kk < n-m; kk++ {
			y = (g.state[kk] & upperMask) | (g.state[kk+1] & lowerMask)
			g.state[kk] = g.state[kk+m] ^ (y >> 1) ^ mag01[y&1]
		}
		for kk := n - m; kk < n-1; kk++ {
			y = (g.state[kk] & upperMask) | (g.state[kk+1] & lowerMask)
			g.state[kk] = g.state[kk+(m-n)] ^ (y >> 1) ^ mag01[y&1]
		}
		y = (g.state[n-1] & upperMask) | (g.state[0] & lowerMask)
		g.state[n-1] = g.state[m-1] ^ (y >> 1) ^ mag01[y&1]
		g.index = 0
	}

	y := g.state[g.index]
	g.index++

	y ^= y >> 11
	y ^= (y << 7) & 0x9d2c5680
	y ^= (y << 15) & 0xefc60000
	y ^= y >> 18
	return y
}

// Uniform01 returns a draw in the open interval (0,1); 0 is resampled so
// it is never returned, and the 32-bit word is normalized so 1 is never
// returned either.
func (g *MT) Uniform01() float64 {
	for {
		v := g.genrandUint32()
		if v == 0 {
			continue
		}
		// divide by 2^32 so the result lies strictly in (0,1)
		return float64(v) / 4294967296.0
	}
}

// Uniform01DP returns a 53-bit-precision draw in (0,1), combining two raw
// words the way the standard MT19937 53-bit generator does.
func (g *MT) Uniform01DP() float64 {
	for {
		a := g.genrandUint32() >> 5 // 27 bits
		b := g.genrandUint32() >> 6 // 26 bits
		v := (float64(a)*67108864.0 + float64(b)) / 9007199254740992.0
		if v > 0 {
			return v
		}
	}
}

// ExpFreePaths returns -ln(1 - Uniform01()), an exponential draw with
// mean 1, used throughout the tracker to budget free paths.
func (g *MT) ExpFreePaths() float64 {
	return -math.Log(1 - g.Uniform01())
}

// Gaussian returns a N(mean, sd) draw using polar Box-Muller. The second
// deviate produced by each pair of underlying uniform draws is cached and
// returned (scaled) on the next call without consuming new randomness.
func (g *MT) Gaussian(mean, sd float64) float64 {
	if g.haveGaussian {
		g.haveGaussian = false
		return mean + sd*g.cachedGauss
	}

	var x1, x2, w float64
	for {
		x1 = 2*g.Uniform01() - 1
		x2 = 2*g.Uniform01() - 1
		w = x1*x1 + x2*x2
		if w > 0 && w < 1 {
			break
		}
	}
	w = math.Sqrt((-2 * math.Log(w)) / w)
	g.cachedGauss = x2 * w
	g.haveGaussian = true
	return mean + sd*(x1*w)
}

// SerializeState writes the full 624-word MT state plus the read index.
func (g *MT) SerializeState(w io.Writer) error {
	buf := make([]byte, 4*(n+1))
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(buf[4*i:], g.state[i])
	}
	binary.LittleEndian.PutUint32(buf[4*n:], uint32(g.index))
	_, err := w.Write(buf)
	return err
}

// RestoreState reads back a state dump written by SerializeState.
func (g *MT) RestoreState(r io.Reader) error {
	buf := make([]byte, 4*(n+1))
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		g.state[i] = binary.LittleEndian.Uint32(buf[4*i:])
	}
	g.index = int(binary.LittleEndian.Uint32(buf[4*n:]))
	g.haveGaussian = false
	g.cachedGauss = 0
	return nil
}

// Checkpoint and Restore are the same wire format as
// SerializeState/RestoreState, exposed as the io.Writer/io.Reader-shaped
// checkpoint operation spec.md §6 implies ("RNG state dumps carry the
// full 624-word MT state plus the read index") and which a long-running
// simulation uses at explicit safepoints between decays.
func (g *MT) Checkpoint(w io.Writer) error { return g.SerializeState(w) }
func (g *MT) Restore(r io.Reader) error    { return g.RestoreState(r) }
