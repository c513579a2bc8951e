package config

import "testing"

func TestByNameFindsCompiledPresets(t *testing.T) {
	for _, name := range []string{"ROBUST-BPSK", "NORMAL-QAM16", "FAST-QAM64", "CONTROL-MFSK16"} {
		if _, err := ByName(name); err != nil {
			t.Fatalf("ByName(%q): %v", name, err)
		}
	}
}

func TestByNameRejectsUnknown(t *testing.T) {
	if _, err := ByName("NOPE"); err == nil {
		t.Fatal("expected error for unknown preset")
	}
}

func TestNetBitrateOrderingAcrossPresets(t *testing.T) {
	robust, err := ByName("ROBUST-BPSK")
	if err != nil {
		t.Fatal(err)
	}
	fast, err := ByName("FAST-QAM64")
	if err != nil {
		t.Fatal(err)
	}
	if robust.NetBitrate() >= fast.NetBitrate() {
		t.Fatalf("robust bitrate %v should be less than fast bitrate %v", robust.NetBitrate(), fast.NetBitrate())
	}
}

func TestNetBitratePositive(t *testing.T) {
	for _, p := range Presets {
		if p.NetBitrate() <= 0 {
			t.Fatalf("preset %s: net bitrate = %v, want > 0", p.Name, p.NetBitrate())
		}
	}
}
