package domain

// Metadata keys stored with every indexed document
const (
	MetadataKeyFilename = "filename"
	MetadataKeySource   = "source"
)

// DocumentMetadata describes where an indexed document came from
type DocumentMetadata struct {
	Filename string `json:"filename"`
	Source   string `json:"source"`
}

// Document is a loaded text document awaiting embedding
type Document struct {
	PageContent string
	Metadata    DocumentMetadata
}

// IndexRecord is a document plus its embedding, ready for upsert
type IndexRecord struct {
	ID          string
	PageContent string
	Metadata    DocumentMetadata
	Embedding   []float32
}

// RetrievedDocument is a similarity search hit
type RetrievedDocument struct {
	ID          string
	PageContent string
	Metadata    DocumentMetadata
	Score       float64
}

// Sources converts retrieved documents into citation sources
func Sources(docs []RetrievedDocument) []Source {
	sources := make([]Source, len(docs))
	for i, d := range docs {
		sources[i] = Source{
			DocumentID: d.ID,
			Filename:   d.Metadata.Filename,
			Score:      d.Score,
		}
	}
	return sources
}
