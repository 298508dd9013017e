// Package asset prepares asset and collection transactions from uploaded files. Signing
// and submission are delegated to a Builder supplied by the caller.
package asset

import "context"

// Handle is a built and signed transaction ready for submission.
type Handle struct {
	Operation Operation
	// Address is the asset or collection the transaction creates or updates
	Address      string
	Instructions []Instruction
	Transaction  []byte
}

type Result struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

type Builder interface {
	// Build assembles and signs req. Callers run req.Validate first.
	Build(ctx context.Context, req Request, budget *ComputeBudget) (*Handle, error)
	Submit(ctx context.Context, h *Handle) (*Result, error)
}
