package asset

import "encoding/binary"

const ComputeBudgetProgramID = "ComputeBudget111111111111111111111111111111"

type InstructionKind string

const (
	SetComputeUnitLimit InstructionKind = "set_compute_unit_limit"
	SetComputeUnitPrice InstructionKind = "set_compute_unit_price"
)

// instruction discriminators of the compute budget program
const (
	discriminatorUnitLimit = 2
	discriminatorUnitPrice = 3
)

type Instruction struct {
	ProgramID string
	Kind      InstructionKind
	Value     uint64
	Data      []byte
}

// ComputeBudget carries the optional priority fee and compute unit ceiling. Either
// knob may be set without the other.
type ComputeBudget struct {
	// Price is the priority fee in micro-lamports per compute unit
	Price uint64 `mapstructure:"price" json:"price,omitempty"`
	Units uint32 `mapstructure:"units" json:"units,omitempty"`
}

// Instructions returns zero, one or two instructions, price first.
func (b *ComputeBudget) Instructions() []Instruction {
	if b == nil {
		return nil
	}

	var out []Instruction
	if b.Price > 0 {
		data := make([]byte, 9)
		data[0] = discriminatorUnitPrice
		binary.LittleEndian.PutUint64(data[1:], b.Price)
		out = append(out, Instruction{
			ProgramID: ComputeBudgetProgramID,
			Kind:      SetComputeUnitPrice,
			Value:     b.Price,
			Data:      data,
		})
	}
	if b.Units > 0 {
		data := make([]byte, 5)
		data[0] = discriminatorUnitLimit
		binary.LittleEndian.PutUint32(data[1:], b.Units)
		out = append(out, Instruction{
			ProgramID: ComputeBudgetProgramID,
			Kind:      SetComputeUnitLimit,
			Value:     uint64(b.Units),
			Data:      data,
		})
	}
	return out
}

func (b *ComputeBudget) IsZero() bool {
	return b == nil || (b.Price == 0 && b.Units == 0)
}
