// Package modem ties Mercury's PHY stages into one transmit/receive
// pipeline and runs the poll loop that couples it to the audio rings and
// the ARQ link layer. The pipeline is built once per preset; switching
// preset rebuilds it on both ends of the link.
package modem

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/dl9sec/mercury-modem/internal/config"
	"github.com/dl9sec/mercury-modem/internal/interleave"
	"github.com/dl9sec/mercury-modem/internal/ldpc"
	"github.com/dl9sec/mercury-modem/internal/modulation"
	"github.com/dl9sec/mercury-modem/internal/ofdm"
	msync "github.com/dl9sec/mercury-modem/internal/sync"
)

const (
	// ldpcSeed keys the deterministic parity-check matrix; both ends of a
	// link derive the identical code from it.
	ldpcSeed uint32 = 0x4D455243

	// bitInterleaverSeed keys the coded-bit permutation.
	bitInterleaverSeed uint32 = 0x1DECAF

	// gridStride is the per-row column rotation of the time/frequency
	// interleaver. Coprime with every preset's Nc.
	gridStride = 7

	// maxDecodeIters bounds both LDPC decoders; past this the frame is
	// declared lost and left to ARQ retransmission.
	maxDecodeIters = 30

	// gbfEta weighs a bit's initial soft confidence against its violated
	// checks in the bit-flipping retry.
	gbfEta = 0.8

	// freqOffsetIgnoreLimitHz: offsets below this are noise in the
	// estimator itself and are not corrected.
	freqOffsetIgnoreLimitHz = 1.0

	// passbandAmplitude scales the transmitted audio into a comfortable
	// sound-card range.
	passbandAmplitude = 0.5
)

// Pipeline is the per-preset PHY chain: payload bytes in, baseband (or
// passband audio) samples out, and the reverse. It owns all its working
// state; the grid and pilot tables inside it are read-only after
// construction.
type Pipeline struct {
	Preset config.Preset

	engine   *ofdm.SymbolEngine
	grid     *ofdm.Grid
	framer   *ofdm.Framer
	deframer *ofdm.Deframer
	gridIlv  *interleave.TwistedBlockInterleaver

	code   *ldpc.Code
	bitIlv *interleave.BitInterleaver

	qam  *modulation.QAMConstellation // nil for MFSK presets
	mfsk *mfskGrid                    // nil for QAM presets

	freq     *msync.FreqSync
	preamble []complex128

	mixer          *ofdm.PassbandMixer
	rxFilter       *ofdm.FIRFilter
	basebandRate   float64
	resampleFactor int

	// lastFrameEnd is the baseband index just past the most recently
	// decoded frame, letting a streaming caller resume after it.
	lastFrameEnd int

	presetIndex int
}

// NewPipeline builds the full PHY chain for one preset. presetIndex is
// the position of the preset in the shared preset table; it is what the
// CONFIG cells carry on air.
func NewPipeline(p config.Preset, presetIndex int) (*Pipeline, error) {
	engine, err := ofdm.NewSymbolEngine(p.Nfft, p.Nc, p.GI)
	if err != nil {
		return nil, err
	}

	pl := &Pipeline{
		Preset:      p,
		engine:      engine,
		freq:        msync.NewFreqSync(p.Nfft),
		presetIndex: presetIndex,
	}

	switch p.Mod {
	case config.ModQAM:
		pl.grid = ofdm.BuildGrid(p.Nsymb, p.Nc, p.Lattice)
		pl.framer = ofdm.NewFramer(pl.grid, p.Lattice.PilotBoost, presetIndex)
		pl.deframer = ofdm.NewDeframer(pl.grid, p.Lattice.PilotBoost)
		pl.gridIlv = interleave.NewTwistedBlockInterleaver(p.Nsymb, p.Nc, gridStride)
		pl.qam, err = modulation.NewQAMConstellation(p.M)
		if err != nil {
			return nil, err
		}
	case config.ModMFSK:
		pl.mfsk, err = newMFSKGrid(p.M, p.Streams, p.Nc)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("modem: unknown modulation kind %v", p.Mod)
	}

	rate16 := int(p.CodeRate*16 + 0.5)
	if rate16 < 1 {
		rate16 = 1
	} else if rate16 > 14 {
		rate16 = 14
	}
	z := pl.circulantSize(rate16)
	if z < 2 {
		return nil, fmt.Errorf("modem: preset %q carries too few bits per frame for the LDPC code", p.Name)
	}
	pl.code, err = ldpc.NewCode(z, rate16, ldpcSeed)
	if err != nil {
		return nil, err
	}
	pl.bitIlv = interleave.NewBitInterleaver(pl.code.N(), bitInterleaverSeed)

	pl.preamble = buildPreamble(engine, p.PreambleNSymb)

	pl.basebandRate = p.Bandwidth * float64(p.Nfft) / float64(p.Nc)
	pl.resampleFactor = int(p.SampleRate/pl.basebandRate + 0.5)
	if pl.resampleFactor < 1 {
		pl.resampleFactor = 1
	}
	pl.mixer = ofdm.NewPassbandMixer(p.CarrierFreq, p.SampleRate, passbandAmplitude)
	pl.rxFilter = ofdm.NewLowpass(p.Bandwidth, p.SampleRate, p.Bandwidth/2, ofdm.Hamming)
	return pl, nil
}

// frameBits is the raw modulated bit capacity of one frame.
func (pl *Pipeline) frameBits() int {
	if pl.mfsk != nil {
		return pl.Preset.Nsymb * pl.mfsk.bitsPerSymbol()
	}
	return pl.grid.DataCellCount() * pl.qam.Bits
}

// circulantSize picks the largest Z whose 16-block codeword fits the
// frame's bit capacity while keeping K = rate16*Z a whole number of
// bytes.
func (pl *Pipeline) circulantSize(rate16 int) int {
	z := pl.frameBits() / ldpc.QCmatrixV
	for z > 0 && (z*rate16)%8 != 0 {
		z--
	}
	return z
}

// MaxPayload is the number of application bytes one frame can carry after
// the in-band length prefix.
func (pl *Pipeline) MaxPayload() int {
	return pl.code.K()/8 - 2
}

// FrameSamples is the baseband length of one full frame including
// preamble.
func (pl *Pipeline) FrameSamples() int {
	return len(pl.preamble) + pl.Preset.Nsymb*pl.engine.SymbolLen()
}

// PassbandFrameSamples is FrameSamples after resampling to the audio rate.
func (pl *Pipeline) PassbandFrameSamples() int {
	return pl.FrameSamples() * pl.resampleFactor
}

// Transmit encodes data into one baseband frame: length-prefix, LDPC
// encode, bit-interleave, modulate, frame onto the grid, grid-interleave,
// OFDM modulate, and prepend the preamble.
func (pl *Pipeline) Transmit(data []byte) ([]complex128, error) {
	if len(data) > pl.MaxPayload() {
		return nil, fmt.Errorf("modem: payload %d bytes exceeds frame capacity %d", len(data), pl.MaxPayload())
	}

	info := make([]byte, pl.code.K()/8)
	binary.BigEndian.PutUint16(info[:2], uint16(len(data)))
	copy(info[2:], data)

	word, err := pl.code.Encode(bytesToBits(info))
	if err != nil {
		return nil, err
	}
	coded, err := pl.bitIlv.Interleave(word)
	if err != nil {
		return nil, err
	}

	var rows [][]complex128
	if pl.mfsk != nil {
		rows = pl.mfsk.modulate(padBits(coded, pl.frameBits()), pl.Preset.Nsymb)
	} else {
		symbols := pl.qam.ModulateBits(padBits(coded, pl.frameBits()))
		symbols = symbols[:pl.grid.DataCellCount()]
		rows, err = pl.framer.Frame(symbols)
		if err != nil {
			return nil, err
		}
		rows = pl.gridIlv.Interleave(rows)
	}

	baseband := pl.engine.ModulateFrame(rows)
	out := make([]complex128, 0, len(pl.preamble)+len(baseband))
	out = append(out, pl.preamble...)
	out = append(out, baseband...)
	return out, nil
}

// Receive locates and decodes one frame anywhere inside baseband,
// returning the delivered payload and the estimated SNR (linear). A sync
// or decode failure is reported as an error; the caller counts it as
// frame loss and moves on.
func (pl *Pipeline) Receive(baseband []complex128) ([]byte, float64, error) {
	start, ok := pl.findPreamble(baseband)
	if !ok {
		return nil, 0, fmt.Errorf("modem: no preamble found")
	}
	// Back off a couple of samples into the cyclic prefix: a late window
	// picks up inter-symbol interference, while a slightly early one
	// only rotates the subcarriers, which the pilots equalize away.
	backoff := pl.engine.Ngi / 8
	if start >= backoff {
		start -= backoff
	}

	eps := pl.freq.EstimateOffset(baseband, start+pl.engine.Ngi)
	offsetHz := eps * pl.basebandRate / float64(pl.Preset.Nfft)
	if math.Abs(offsetHz) >= freqOffsetIgnoreLimitHz {
		baseband = pl.freq.CorrectOffset(baseband, eps)
	}

	dataStart := start + len(pl.preamble)
	need := pl.Preset.Nsymb * pl.engine.SymbolLen()
	if dataStart+need > len(baseband) {
		return nil, 0, fmt.Errorf("modem: truncated frame: have %d samples past preamble, need %d", len(baseband)-dataStart, need)
	}

	rows, err := pl.engine.DemodulateFrame(baseband[dataStart:], pl.Preset.Nsymb)
	if err != nil {
		return nil, 0, err
	}

	var llr []float64
	var snr float64
	if pl.mfsk != nil {
		llr = pl.mfsk.demodulate(rows)
		snr = pl.mfsk.lastSNR
	} else {
		llr, snr, err = pl.demodQAM(rows)
		if err != nil {
			return nil, 0, err
		}
	}

	dec, err := pl.bitIlv.DeinterleaveLLR(llr[:pl.code.N()])
	if err != nil {
		return nil, 0, err
	}

	word, _, ok := pl.code.DecodeSPA(dec, maxDecodeIters)
	if !ok {
		// Retry with the cheap bit-flipping decoder before declaring the
		// frame lost; it occasionally cleans up what min-sum leaves.
		hard := make([]byte, len(dec))
		for i, v := range dec {
			if v < 0 {
				hard[i] = 1
			}
		}
		word, _, ok = pl.code.DecodeGBF(hard, dec, gbfEta, maxDecodeIters)
	}
	if !ok {
		return nil, snr, fmt.Errorf("modem: LDPC decode failed")
	}

	info := bitsToBytes(word[:pl.code.K()])
	n := int(binary.BigEndian.Uint16(info[:2]))
	if n > len(info)-2 {
		return nil, snr, fmt.Errorf("modem: frame length %d exceeds info block", n)
	}
	pl.lastFrameEnd = dataStart + need
	return info[2 : 2+n], snr, nil
}

// ConsumedPassband reports how many audio-rate samples the most recent
// successful ReceivePassband used up, so the caller can drop exactly
// that much of its accumulation buffer.
func (pl *Pipeline) ConsumedPassband() int {
	return pl.lastFrameEnd * pl.resampleFactor
}

// demodQAM runs the coherent receive path: grid-deinterleave, pilot-aided
// channel estimation, equalization, and soft demapping.
func (pl *Pipeline) demodQAM(rows [][]complex128) ([]float64, float64, error) {
	rows = pl.gridIlv.Deinterleave(rows)

	raw, err := pl.deframer.Deframe(rows)
	if err != nil {
		return nil, 0, err
	}
	obs := pl.pilotObservations(raw)
	h := msync.InterpolateGrid(obs, pl.Preset.Nsymb, pl.Preset.Nc)
	snr := msync.EstimateSNR(obs, h)

	eq, err := pl.deframer.Deframe(msync.Equalize(rows, h))
	if err != nil {
		return nil, 0, err
	}

	sigma2 := 1.0
	if snr > 0 && !math.IsInf(snr, 1) {
		sigma2 = 1 / snr
	}
	if sigma2 < 1e-6 {
		sigma2 = 1e-6
	}
	s2 := make([]float64, len(eq.Data))
	for i := range s2 {
		s2[i] = sigma2
	}
	return pl.qam.DemodulateSoft(eq.Data, s2), snr, nil
}

// pilotObservations zips the deframer's flat pilot streams back with
// their grid positions, in the same row-major order the deframer walked.
func (pl *Pipeline) pilotObservations(res *ofdm.DeframeResult) []msync.PilotObservation {
	obs := make([]msync.PilotObservation, 0, len(res.PilotRx))
	i := 0
	for r := 0; r < pl.grid.Nsymb && i < len(res.PilotRx); r++ {
		for c := 0; c < pl.grid.Nc && i < len(res.PilotRx); c++ {
			if pl.grid.Cells[r][c] != ofdm.Pilot {
				continue
			}
			obs = append(obs, msync.PilotObservation{
				Row: r, Col: c,
				Ref: res.PilotRef[i], Rx: res.PilotRx[i],
			})
			i++
		}
	}
	return obs
}

// findPreamble matched-filters the known preamble against baseband and
// returns the best-aligned start offset. The correlation is summed
// coherently only within short segments, so an uncorrected carrier
// offset of a few subcarrier spacings dents the score instead of
// nulling it.
func (pl *Pipeline) findPreamble(baseband []complex128) (int, bool) {
	m := len(pl.preamble)
	if len(baseband) < m {
		return 0, false
	}
	seg := pl.Preset.Nfft / 2
	var refEnergy float64
	for _, s := range pl.preamble {
		refEnergy += real(s)*real(s) + imag(s)*imag(s)
	}
	best, bestIdx := 0.0, -1
	for d := 0; d+m <= len(baseband); d++ {
		var sum, energy float64
		for off := 0; off < m; off += seg {
			end := off + seg
			if end > m {
				end = m
			}
			var corr complex128
			for k := off; k < end; k++ {
				s := baseband[d+k]
				corr += s * cmplx.Conj(pl.preamble[k])
				energy += real(s)*real(s) + imag(s)*imag(s)
			}
			sum += cmplx.Abs(corr)
		}
		if energy == 0 {
			continue
		}
		score := sum / math.Sqrt(energy*refEnergy)
		if score > best {
			best, bestIdx = score, d
		}
	}
	if bestIdx < 0 || best < 0.5 {
		return 0, false
	}
	return bestIdx, true
}

// TransmitPassband runs Transmit, resamples the baseband up to the audio
// rate, and mixes it onto the carrier.
func (pl *Pipeline) TransmitPassband(data []byte) ([]float64, error) {
	baseband, err := pl.Transmit(data)
	if err != nil {
		return nil, err
	}
	up := ofdm.LinearResampleComplex(baseband, pl.basebandRate, pl.Preset.SampleRate)
	return pl.mixer.Upconvert(up), nil
}

// ReceivePassband mixes audio-rate passband samples down to baseband,
// low-pass filters the image away, resamples to the pipeline rate, and
// decodes.
func (pl *Pipeline) ReceivePassband(samples []float64) ([]byte, float64, error) {
	mixed := pl.mixer.Downconvert(samples)

	i := make([]float64, len(mixed))
	q := make([]float64, len(mixed))
	for n, s := range mixed {
		i[n] = real(s)
		q[n] = imag(s)
	}
	i = pl.rxFilter.Apply(i)
	q = pl.rxFilter.Apply(q)
	filtered := make([]complex128, len(mixed))
	for n := range filtered {
		// The mixer halves the wanted signal; restore unity and undo the
		// transmit amplitude here.
		g := 2 / passbandAmplitude
		filtered[n] = complex(i[n]*g, q[n]*g)
	}

	baseband := ofdm.LinearResampleComplex(filtered, pl.Preset.SampleRate, pl.basebandRate)
	return pl.Receive(baseband)
}

// buildPreamble constructs PreambleNSymb OFDM symbols whose occupied
// bins are all even-indexed, making each symbol's second time half
// repeat its first (the structure the frequency estimator relies on).
// The bin values are a seeded QPSK sequence that keeps running across
// symbols, so no two preamble symbols are alike and the matched filter
// has a single alignment.
func buildPreamble(engine *ofdm.SymbolEngine, nsymb int) []complex128 {
	state := uint32(0x9E3779B9)
	next := func() uint32 {
		state = state*1664525 + 1013904223
		return state
	}
	// Row index 0 lands at FFT bin Nfft/2 - Nc/2 + 1 (the one-bin DC
	// offset). Only even FFT bins may be occupied for the symbol's two
	// time halves to repeat, so start at whichever row index has even
	// absolute bin parity.
	start := 0
	if (engine.Nfft/2-engine.Nc/2+1)%2 != 0 {
		start = 1
	}

	out := make([]complex128, 0, nsymb*engine.SymbolLen())
	for s := 0; s < nsymb; s++ {
		row := make([]complex128, engine.Nc)
		for k := start; k < engine.Nc; k += 2 {
			i := float64(2*int(next()>>31&1) - 1)
			q := float64(2*int(next()>>31&1) - 1)
			row[k] = complex(i, q)
		}
		out = append(out, engine.ModulateSymbol(row)...)
	}
	return out
}

// bytesToBits unpacks bytes MSB-first into one bit per byte.
func bytesToBits(data []byte) []byte {
	out := make([]byte, len(data)*8)
	for i, b := range data {
		for k := 0; k < 8; k++ {
			out[i*8+k] = (b >> (7 - k)) & 1
		}
	}
	return out
}

// bitsToBytes packs bits MSB-first; len(bits) must be a multiple of 8.
func bitsToBytes(bits []byte) []byte {
	out := make([]byte, len(bits)/8)
	for i := range out {
		var b byte
		for k := 0; k < 8; k++ {
			b = b<<1 | bits[i*8+k]&1
		}
		out[i] = b
	}
	return out
}

// padBits zero-extends bits to n.
func padBits(bits []byte, n int) []byte {
	if len(bits) >= n {
		return bits[:n]
	}
	out := make([]byte, n)
	copy(out, bits)
	return out
}
