package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeBudget_Instructions(t *testing.T) {
	tests := []struct {
		name   string
		budget *ComputeBudget
		want   []InstructionKind
	}{
		{"nil", nil, nil},
		{"none", &ComputeBudget{}, nil},
		{"price only", &ComputeBudget{Price: 1000}, []InstructionKind{SetComputeUnitPrice}},
		{"units only", &ComputeBudget{Units: 200_000}, []InstructionKind{SetComputeUnitLimit}},
		{"both", &ComputeBudget{Price: 1, Units: 1}, []InstructionKind{SetComputeUnitPrice, SetComputeUnitLimit}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ixs := tt.budget.Instructions()
			var kinds []InstructionKind
			for _, ix := range ixs {
				assert.Equal(t, ComputeBudgetProgramID, ix.ProgramID)
				kinds = append(kinds, ix.Kind)
			}
			assert.Equal(t, tt.want, kinds)
		})
	}
}

func TestComputeBudget_Encoding(t *testing.T) {
	ixs := (&ComputeBudget{Price: 0x0102, Units: 300_000}).Instructions()
	require.Len(t, ixs, 2)

	assert.Equal(t, []byte{3, 0x02, 0x01, 0, 0, 0, 0, 0, 0}, ixs[0].Data)
	assert.Equal(t, uint64(0x0102), ixs[0].Value)

	// 300000 = 0x000493E0
	assert.Equal(t, []byte{2, 0xE0, 0x93, 0x04, 0x00}, ixs[1].Data)
	assert.Equal(t, uint64(300_000), ixs[1].Value)
}

func TestComputeBudget_IsZero(t *testing.T) {
	var nilBudget *ComputeBudget
	assert.True(t, nilBudget.IsZero())
	assert.True(t, (&ComputeBudget{}).IsZero())
	assert.False(t, (&ComputeBudget{Units: 1}).IsZero())
}
