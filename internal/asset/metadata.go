package asset

import "strings"

type Attribute struct {
	TraitType string `json:"trait_type" yaml:"trait_type"`
	Value     any    `json:"value" yaml:"value"`
}

type File struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
}

type Properties struct {
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
	Files    []File `json:"files,omitempty" yaml:"files,omitempty"`
}

// Metadata is the off-chain JSON document an asset's uri points at.
type Metadata struct {
	Name         string      `json:"name" yaml:"name"`
	Symbol       string      `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	Description  string      `json:"description,omitempty" yaml:"description,omitempty"`
	Image        string      `json:"image,omitempty" yaml:"image,omitempty"`
	AnimationURL string      `json:"animation_url,omitempty" yaml:"animation_url,omitempty"`
	ExternalURL  string      `json:"external_url,omitempty" yaml:"external_url,omitempty"`
	Attributes   []Attribute `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Properties   Properties  `json:"properties" yaml:"properties"`
}

// Category maps a content type to the metadata category convention.
func Category(contentType string) string {
	major, _, _ := strings.Cut(contentType, "/")
	switch {
	case major == "image":
		return "image"
	case major == "video":
		return "video"
	case major == "audio":
		return "audio"
	case major == "model":
		return "vr"
	case contentType == "text/html":
		return "html"
	default:
		return ""
	}
}

// isAnimated reports whether media belongs in animation_url rather than image.
func isAnimated(contentType string) bool {
	switch Category(contentType) {
	case "video", "audio", "vr", "html":
		return true
	}
	return false
}
