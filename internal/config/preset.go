// Package config holds Mercury's compiled waveform presets and the
// goconfigparser-based loader for overriding them from an ini-style file,
//
package config

import (
	"fmt"

	"github.com/dl9sec/mercury-modem/internal/ofdm"
)

// ModKind selects which modulation family a preset uses.
type ModKind int

const (
	ModQAM ModKind = iota
	ModMFSK
)

func (k ModKind) String() string {
	if k == ModMFSK {
		return "MFSK"
	}
	return "QAM"
}

// Preset is one complete Mercury waveform configuration: the OFDM grid
// geometry, the modulation family and order, the LDPC code rate, and the
// RF parameters needed to place it in the passband.
type Preset struct {
	Name string

	Nfft  int
	Nc    int
	Nsymb int
	GI    float64

	Lattice ofdm.Lattice

	Mod      ModKind
	M        int // QAM order, or MFSK tones per stream
	Streams  int // MFSK diversity streams; unused for QAM
	CodeRate float64

	CarrierFreq   float64
	Bandwidth     float64
	PreambleNSymb int

	SampleRate float64
}

// bitsPerSymbol returns log2(M) for whichever modulation family the
// preset uses.
func (p Preset) bitsPerSymbol() float64 {
	bits := 0
	for (1 << bits) < p.M {
		bits++
	}
	return float64(bits)
}

// NetBitrate estimates the preset's payload throughput in bits/second:
// data-carrying OFDM cells per frame, times bits per cell, times the LDPC
// code rate, divided by the frame's time-domain duration (preamble
// included, at the baseband rate Bandwidth*Nfft/Nc the modem runs the
// OFDM symbols at). This backs the `-l` CLI flag, which lists presets with
// their bitrates.
func (p Preset) NetBitrate() float64 {
	grid := ofdm.BuildGrid(p.Nsymb, p.Nc, p.Lattice)
	dataCells := grid.DataCellCount()

	bitsPerFrame := float64(dataCells) * p.bitsPerSymbol() * p.CodeRate
	symbolLen := float64(p.Nfft) * (1 + p.GI)
	basebandRate := p.Bandwidth * float64(p.Nfft) / float64(p.Nc)
	frameDuration := float64(p.PreambleNSymb+p.Nsymb) * symbolLen / basebandRate
	if frameDuration <= 0 {
		return 0
	}
	return bitsPerFrame / frameDuration
}

// Presets is the compiled table of Mercury waveform configurations,
// ranging from a robust low-rate BPSK mode to a fast 64-QAM mode, plus an
// MFSK mode for the control/ACK channel.
var Presets = []Preset{
	{
		Name: "ROBUST-BPSK", Nfft: 64, Nc: 48, Nsymb: 16, GI: 0.25,
		Lattice:       ofdm.Lattice{Dx: 4, Dy: 2, FirstCol: ofdm.Config, LastCol: ofdm.CopyFirstCol, SecondCol: ofdm.Zero, FirstRow: ofdm.Pilot, LastRow: ofdm.Pilot, FirstRowZeros: true, PilotBoost: 1.5},
		Mod:           ModQAM, M: 2, CodeRate: 0.5,
		CarrierFreq: 1500, Bandwidth: 1500, PreambleNSymb: 4, SampleRate: 48000,
	},
	{
		Name: "NORMAL-QAM16", Nfft: 64, Nc: 48, Nsymb: 16, GI: 0.25,
		Lattice:       ofdm.Lattice{Dx: 4, Dy: 2, FirstCol: ofdm.Config, LastCol: ofdm.CopyFirstCol, SecondCol: ofdm.Zero, FirstRow: ofdm.Pilot, LastRow: ofdm.Pilot, FirstRowZeros: true, PilotBoost: 1.5},
		Mod:           ModQAM, M: 16, CodeRate: 0.75,
		CarrierFreq: 1500, Bandwidth: 1500, PreambleNSymb: 4, SampleRate: 48000,
	},
	{
		Name: "FAST-QAM64", Nfft: 128, Nc: 96, Nsymb: 16, GI: 0.125,
		Lattice:       ofdm.Lattice{Dx: 6, Dy: 3, FirstCol: ofdm.Config, LastCol: ofdm.CopyFirstCol, SecondCol: ofdm.Zero, FirstRow: ofdm.Pilot, LastRow: ofdm.Pilot, FirstRowZeros: true, PilotBoost: 1.25},
		Mod:           ModQAM, M: 64, CodeRate: 0.875,
		CarrierFreq: 2000, Bandwidth: 2400, PreambleNSymb: 4, SampleRate: 48000,
	},
	{
		Name: "CONTROL-MFSK16", Nfft: 64, Nc: 48, Nsymb: 8, GI: 0.25,
		Lattice:       ofdm.Lattice{Dx: 4, Dy: 2, FirstCol: ofdm.Config, LastCol: ofdm.CopyFirstCol, SecondCol: ofdm.Zero, FirstRow: ofdm.Pilot, LastRow: ofdm.Pilot, FirstRowZeros: true, PilotBoost: 1.5},
		Mod:           ModMFSK, M: 16, Streams: 2, CodeRate: 0.5,
		CarrierFreq: 1000, Bandwidth: 1000, PreambleNSymb: 4, SampleRate: 48000,
	},
}

// ByName looks up a compiled preset by name.
func ByName(name string) (Preset, error) {
	for _, p := range Presets {
		if p.Name == name {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("config: no such preset %q", name)
}
