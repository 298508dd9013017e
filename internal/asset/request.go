package asset

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/coremint/coremint/internal/wallet"
)

type Operation string

const (
	OpCreateAsset      Operation = "create_asset"
	OpCreateCollection Operation = "create_collection"
	OpUpdateAsset      Operation = "update_asset"
	OpUpdateCollection Operation = "update_collection"
)

const MaxBasisPoints = 10000

var (
	ErrNameRequired   = errors.New("name is required")
	ErrInvalidURI     = errors.New("uri must be absolute")
	ErrInvalidAddress = errors.New("invalid address")
	ErrNoChanges      = errors.New("update changes nothing")
	ErrRoyalty        = errors.New("invalid royalty config")
)

// Request is a transaction the Builder knows how to assemble.
type Request interface {
	Operation() Operation
	Validate() error
}

type Creator struct {
	Address    string `json:"address" yaml:"address"`
	Percentage uint8  `json:"percentage" yaml:"percentage"`
}

type RoyaltyConfig struct {
	BasisPoints uint16    `json:"basisPoints" yaml:"basisPoints"`
	Creators    []Creator `json:"creators" yaml:"creators"`
	// Authority defaults to the signer
	Authority string `json:"authority,omitempty" yaml:"authority,omitempty"`
}

func (c *RoyaltyConfig) Validate() error {
	if c.BasisPoints > MaxBasisPoints {
		return fmt.Errorf("%w: basis points %d exceed %d", ErrRoyalty, c.BasisPoints, MaxBasisPoints)
	}
	if len(c.Creators) == 0 {
		return fmt.Errorf("%w: at least one creator is required", ErrRoyalty)
	}
	total := 0
	for _, cr := range c.Creators {
		if !wallet.ValidAddress(cr.Address) {
			return fmt.Errorf("%w: creator %w %q", ErrRoyalty, ErrInvalidAddress, cr.Address)
		}
		total += int(cr.Percentage)
	}
	if total != 100 {
		return fmt.Errorf("%w: creator percentages sum to %d, want 100", ErrRoyalty, total)
	}
	if c.Authority != "" && !wallet.ValidAddress(c.Authority) {
		return fmt.Errorf("%w: authority %w %q", ErrRoyalty, ErrInvalidAddress, c.Authority)
	}
	return nil
}

type CreateAssetRequest struct {
	Name       string `json:"name" yaml:"name"`
	URI        string `json:"uri" yaml:"uri"`
	Collection string `json:"collectionAddress,omitempty" yaml:"collectionAddress,omitempty"`
}

func (r *CreateAssetRequest) Operation() Operation { return OpCreateAsset }

func (r *CreateAssetRequest) Validate() error {
	if err := validateNameURI(r.Name, r.URI); err != nil {
		return err
	}
	return validateOptionalAddress("collectionAddress", r.Collection)
}

type CreateCollectionRequest struct {
	Name    string         `json:"name" yaml:"name"`
	URI     string         `json:"uri" yaml:"uri"`
	Royalty *RoyaltyConfig `json:"royaltyEnforcementConfig,omitempty" yaml:"royaltyEnforcementConfig,omitempty"`
}

func (r *CreateCollectionRequest) Operation() Operation { return OpCreateCollection }

func (r *CreateCollectionRequest) Validate() error {
	if err := validateNameURI(r.Name, r.URI); err != nil {
		return err
	}
	if r.Royalty != nil {
		return r.Royalty.Validate()
	}
	return nil
}

// UpdateAssetRequest changes an existing asset, or a collection when IsCollection is
// set. Empty fields keep their current on-chain value.
type UpdateAssetRequest struct {
	Mint          string `json:"mint" yaml:"mint"`
	Collection    string `json:"collectionAddress,omitempty" yaml:"collectionAddress,omitempty"`
	NewName       string `json:"newName,omitempty" yaml:"newName,omitempty"`
	NewURI        string `json:"newUri,omitempty" yaml:"newUri,omitempty"`
	NewCollection string `json:"newCollection,omitempty" yaml:"newCollection,omitempty"`
	NewAuthority  string `json:"newAuthority,omitempty" yaml:"newAuthority,omitempty"`
	IsCollection  bool   `json:"isCollection,omitempty" yaml:"isCollection,omitempty"`
}

func (r *UpdateAssetRequest) Operation() Operation {
	if r.IsCollection {
		return OpUpdateCollection
	}
	return OpUpdateAsset
}

func (r *UpdateAssetRequest) Validate() error {
	if !wallet.ValidAddress(r.Mint) {
		return fmt.Errorf("mint: %w %q", ErrInvalidAddress, r.Mint)
	}
	if r.NewName == "" && r.NewURI == "" && r.NewCollection == "" && r.NewAuthority == "" {
		return ErrNoChanges
	}
	if r.NewURI != "" && !validURI(r.NewURI) {
		return fmt.Errorf("newUri: %w", ErrInvalidURI)
	}
	if err := validateOptionalAddress("collectionAddress", r.Collection); err != nil {
		return err
	}
	if err := validateOptionalAddress("newCollection", r.NewCollection); err != nil {
		return err
	}
	return validateOptionalAddress("newAuthority", r.NewAuthority)
}

func validateNameURI(name, uri string) error {
	if name == "" {
		return ErrNameRequired
	}
	if !validURI(uri) {
		return fmt.Errorf("uri %q: %w", uri, ErrInvalidURI)
	}
	return nil
}

func validateOptionalAddress(field, addr string) error {
	if addr != "" && !wallet.ValidAddress(addr) {
		return fmt.Errorf("%s: %w %q", field, ErrInvalidAddress, addr)
	}
	return nil
}

// validURI accepts any absolute URI, e.g. https, ipfs or ar.
func validURI(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && (u.Host != "" || u.Opaque != "")
}
