// ABOUTME: MCP tool definitions and registration for the transdoc server
// ABOUTME: Defines JSON schemas for the translate, lookup, record, correct and segment tools
package mcp

import (
	"github.com/charmbracelet/log"
	"github.com/harper/transdoc/internal/core"
	"github.com/harper/transdoc/internal/logging"
	"github.com/harper/transdoc/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

var dialectProperty = map[string]interface{}{
	"type":        "string",
	"description": "Document dialect: markdown, latex or text (default: markdown)",
	"enum":        []string{"markdown", "latex", "text"},
	"default":     "markdown",
}

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, store *storage.Storage, orch *core.Orchestrator, rec *core.Reconciler, logger *log.Logger) *Handlers {
	handlers := NewHandlers(store, orch, rec, logger)

	// 1. translate_text - Translate a document through the translation memory
	server.AddTool(mcp.Tool{
		Name:        "translate_text",
		Description: "Translate a document chunk by chunk. Chunks already in the translation memory are reused; new ones go to the provider and are recorded.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Document text to translate",
				},
				"from": map[string]interface{}{
					"type":        "string",
					"description": "Source language code or name, e.g. en",
				},
				"to": map[string]interface{}{
					"type":        "string",
					"description": "Target language code or name, e.g. fr",
				},
				"dialect": dialectProperty,
			},
			Required: []string{"text", "from", "to"},
		},
	}, handlers.TranslateText)

	// 2. lookup_translation - Find stored translations of a chunk
	server.AddTool(mcp.Tool{
		Name:        "lookup_translation",
		Description: "Find the stored translations of one chunk, given its text or its hash.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Chunk text (hashed after normalization)",
				},
				"hash": map[string]interface{}{
					"type":        "string",
					"description": "Chunk hash, used when text is not given",
				},
				"lang": map[string]interface{}{
					"type":        "string",
					"description": "Language of the chunk",
				},
				"to": map[string]interface{}{
					"type":        "string",
					"description": "Only return this language (optional)",
				},
			},
			Required: []string{"lang"},
		},
	}, handlers.LookupTranslation)

	// 3. get_record - Read one content record
	server.AddTool(mcp.Tool{
		Name:        "get_record",
		Description: "Read the text of one content record from the translation memory.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"lang": map[string]interface{}{
					"type":        "string",
					"description": "Record language",
				},
				"hash": map[string]interface{}{
					"type":        "string",
					"description": "Record hash",
				},
			},
			Required: []string{"lang", "hash"},
		},
	}, handlers.GetRecord)

	// 4. correct_document - Feed an edited translation back into the memory
	server.AddTool(mcp.Tool{
		Name:        "correct_document",
		Description: "Reconcile an edited translated document (with provenance markers) against the memory. Edited spans become corrections; untouched spans are accepted as reviewed.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Edited translated document, markers included",
				},
				"from": map[string]interface{}{
					"type":        "string",
					"description": "Source language of the original document",
				},
				"to": map[string]interface{}{
					"type":        "string",
					"description": "Language of the edited document",
				},
				"source": map[string]interface{}{
					"type":        "string",
					"description": "Current source document, used to detect drifted anchors (optional)",
				},
				"dialect": dialectProperty,
			},
			Required: []string{"text", "from", "to"},
		},
	}, handlers.CorrectDocument)

	// 5. segment_document - Show how a document is chunked
	server.AddTool(mcp.Tool{
		Name:        "segment_document",
		Description: "Split a document into translatable and literal chunks with their hashes and anchors.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Document text",
				},
				"dialect": dialectProperty,
			},
			Required: []string{"text"},
		},
	}, handlers.SegmentDocument)

	handlers.logger.Debug("registered MCP tools", "count", 5)
	return handlers
}

// NewHandlers creates handlers over the given components. orch and rec may be nil,
// in which case their tools report an error.
func NewHandlers(store *storage.Storage, orch *core.Orchestrator, rec *core.Reconciler, logger *log.Logger) *Handlers {
	return &Handlers{
		storage:      store,
		orchestrator: orch,
		reconciler:   rec,
		segmenter:    core.NewSegmenter(store.Content.Hasher()),
		logger:       logging.OrDiscard(logger),
	}
}
