package models

// ImageRef identifies one embedded image of a document
type ImageRef struct {
	// Document is the absolute path of the HTML document embedding the image
	Document string

	// Src is the raw src attribute value
	Src string

	// Identity is a stable, display-safe name: the src for file references,
	// a content digest for data URIs
	Identity string
}

// MatchedImagePair is the Nth image of the original document
// matched with the Nth image of the reproduced document
type MatchedImagePair struct {
	Index      int
	Original   ImageRef
	Reproduced ImageRef
}

// ComparisonUnit is one matched HTML document pair and its image pairs
type ComparisonUnit struct {
	// Name is the original document path relative to the base directory
	Name string

	OriginalDocument   string
	ReproducedDocument string
	Images             []MatchedImagePair
}
