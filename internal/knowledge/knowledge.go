// Package knowledge manages the vector knowledge base backing RAG lookups.
//
// Contents:
//   - Source type constants and documents table schema constants
//   - NewDocStoreConfig factory for the Genkit PostgreSQL plugin
//   - Splitter: recursive character text chunking
//   - Indexer: local document ingestion with change tracking
//   - Crawler: bounded same-host web ingestion
package knowledge

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/plugins/postgresql"
)

// Source type constants for knowledge documents.
const (
	// SourceTypeFile represents chunks ingested from local documents.
	SourceTypeFile = "file"

	// SourceTypeWeb represents chunks ingested from crawled web pages.
	SourceTypeWeb = "web"
)

// VectorDimension is the embedding width of the documents and tickets tables.
// Must match the vector(N) columns in db/migrations.
const VectorDimension = 768

// Table schema constants for the Genkit PostgreSQL plugin.
// These match the documents table in db/migrations.
const (
	DocumentsTableName    = "documents"
	DocumentsSchemaName   = "public"
	DocumentsIDColumn     = "id"
	DocumentsContentCol   = "content"
	DocumentsEmbeddingCol = "embedding"
	DocumentsMetadataCol  = "metadata"
)

// NewDocStoreConfig creates a postgresql.Config for the documents table.
// This factory keeps production and test wiring consistent.
func NewDocStoreConfig(embedder ai.Embedder) *postgresql.Config {
	return &postgresql.Config{
		TableName:          DocumentsTableName,
		SchemaName:         DocumentsSchemaName,
		IDColumn:           DocumentsIDColumn,
		ContentColumn:      DocumentsContentCol,
		EmbeddingColumn:    DocumentsEmbeddingCol,
		MetadataJSONColumn: DocumentsMetadataCol,
		MetadataColumns:    []string{"source_type"}, // For filtering by type
		Embedder:           embedder,
	}
}
