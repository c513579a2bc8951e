package arq

import (
	"fmt"

	"github.com/klauspost/reedsolomon"
)

// Default shard counts for the outer Reed-Solomon control codec: far
// fewer shards than a bulk data path needs, since control frames are
// small. The modem does not apply this codec; control frames travel
// through the same LDPC pipeline as data.
const (
	ControlDataShards   = 16
	ControlParityShards = 4
)

// ControlCodec wraps Reed-Solomon encode/decode for one fixed-size control
// frame.
type ControlCodec struct {
	enc        reedsolomon.Encoder
	dataShards int
	parShards  int
}

// NewControlCodec builds the outer FEC codec for the control channel.
func NewControlCodec() (*ControlCodec, error) {
	enc, err := reedsolomon.New(ControlDataShards, ControlParityShards)
	if err != nil {
		return nil, fmt.Errorf("arq: create control codec: %w", err)
	}
	return &ControlCodec{enc: enc, dataShards: ControlDataShards, parShards: ControlParityShards}, nil
}

// EncodeBlock pads data to DataShards bytes (one byte per shard) and
// appends ParityShards parity bytes.
func (c *ControlCodec) EncodeBlock(data []byte) ([]byte, error) {
	if len(data) > c.dataShards {
		return nil, fmt.Errorf("arq: control payload too large: %d > %d", len(data), c.dataShards)
	}
	total := c.dataShards + c.parShards
	shards := make([][]byte, total)
	for i := 0; i < c.dataShards; i++ {
		var b byte
		if i < len(data) {
			b = data[i]
		}
		shards[i] = []byte{b}
	}
	for i := c.dataShards; i < total; i++ {
		shards[i] = make([]byte, 1)
	}
	if err := c.enc.Encode(shards); err != nil {
		return nil, fmt.Errorf("arq: encode control block: %w", err)
	}
	out := make([]byte, total)
	for i, s := range shards {
		out[i] = s[0]
	}
	return out, nil
}

// DecodeBlock reconstructs the original payload from a control block,
// given the set of shard indices known to be erased (e.g. flagged bad by
// the demodulator).
func (c *ControlCodec) DecodeBlock(block []byte, erasures []int) ([]byte, error) {
	total := c.dataShards + c.parShards
	if len(block) != total {
		return nil, fmt.Errorf("arq: invalid control block size %d != %d", len(block), total)
	}
	shards := make([][]byte, total)
	for i := 0; i < total; i++ {
		shards[i] = []byte{block[i]}
	}
	for _, idx := range erasures {
		if idx >= 0 && idx < total {
			shards[idx] = nil
		}
	}
	if err := c.enc.Reconstruct(shards); err != nil {
		return nil, fmt.Errorf("arq: reconstruct control block: %w", err)
	}
	ok, err := c.enc.Verify(shards)
	if err != nil {
		return nil, fmt.Errorf("arq: verify control block: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("arq: control block unrecoverable")
	}
	out := make([]byte, c.dataShards)
	for i := 0; i < c.dataShards; i++ {
		out[i] = shards[i][0]
	}
	return out, nil
}
