// ABOUTME: MCP tool handler implementations for the transdoc server
// ABOUTME: Parses tool arguments, runs the core components and returns JSON results
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harper/transdoc/internal/core"
	"github.com/harper/transdoc/internal/dialect"
	"github.com/harper/transdoc/internal/models"
	"github.com/harper/transdoc/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	storage      *storage.Storage
	orchestrator *core.Orchestrator
	reconciler   *core.Reconciler
	segmenter    *core.Segmenter
	logger       *log.Logger
	inflight     sync.WaitGroup // Tracks running tool calls for clean shutdown
}

// TranslateText handles the translate_text tool
func (h *Handlers) TranslateText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.inflight.Add(1)
	defer h.inflight.Done()

	if h.orchestrator == nil {
		return mcp.NewToolResultError("no translation provider configured"), nil
	}
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text argument is required and must be a string"), nil
	}
	rc, errResult := runContext(request)
	if errResult != nil {
		return errResult, nil
	}
	d, err := dialect.ByName(request.GetString("dialect", dialect.Markdown))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := h.orchestrator.TranslateDocument(ctx, rc, text, d)
	if err != nil {
		h.logger.Warn("translate_text failed", "run", rc.RunID, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("translation failed: %v", err)), nil
	}

	response := map[string]interface{}{
		"run_id":     rc.RunID,
		"output":     res.Output,
		"hits":       res.Hits,
		"translated": res.Translated,
		"pending":    res.Pending,
		"failed":     res.Failed,
		"chunks":     res.Chunks,
	}
	return jsonResult(response)
}

// LookupTranslation handles the lookup_translation tool
func (h *Handlers) LookupTranslation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.inflight.Add(1)
	defer h.inflight.Done()

	lang, err := models.ParseLanguage(request.GetString("lang", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lang: %v", err)), nil
	}

	var hash models.ChunkHash
	if text := request.GetString("text", ""); text != "" {
		hash = h.storage.Content.Hasher().Hash(text)
	} else if raw := request.GetString("hash", ""); raw != "" {
		hash = models.ChunkHash(raw)
	} else {
		return mcp.NewToolResultError("either text or hash is required"), nil
	}

	var only models.Language
	if to := request.GetString("to", ""); to != "" {
		if only, err = models.ParseLanguage(to); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("to: %v", err)), nil
		}
	}

	res, err := core.Lookup(ctx, h.storage, lang, hash, only)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err)), nil
	}
	return jsonResult(res)
}

// GetRecord handles the get_record tool
func (h *Handlers) GetRecord(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.inflight.Add(1)
	defer h.inflight.Done()

	rawLang, err := request.RequireString("lang")
	if err != nil {
		return mcp.NewToolResultError("lang argument is required and must be a string"), nil
	}
	hash, err := request.RequireString("hash")
	if err != nil {
		return mcp.NewToolResultError("hash argument is required and must be a string"), nil
	}
	lang, err := models.ParseLanguage(rawLang)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lang: %v", err)), nil
	}

	text, err := h.storage.Content.Get(ctx, lang, models.ChunkHash(hash))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read record: %v", err)), nil
	}
	reviewed, err := h.storage.Index.IsReviewed(ctx, lang, models.ChunkHash(hash))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read review state: %v", err)), nil
	}

	response := map[string]interface{}{
		"lang":     lang,
		"hash":     hash,
		"text":     text,
		"reviewed": reviewed,
	}
	return jsonResult(response)
}

// CorrectDocument handles the correct_document tool
func (h *Handlers) CorrectDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.inflight.Add(1)
	defer h.inflight.Done()

	if h.reconciler == nil {
		return mcp.NewToolResultError("corrections are not available"), nil
	}
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text argument is required and must be a string"), nil
	}
	rc, errResult := runContext(request)
	if errResult != nil {
		return errResult, nil
	}
	d, err := dialect.ByName(request.GetString("dialect", dialect.Markdown))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var source *models.Scaffold
	if src := request.GetString("source", ""); src != "" {
		if source, err = h.segmenter.Segment(src, d); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to segment source: %v", err)), nil
		}
	}

	report, err := h.reconciler.Reconcile(ctx, rc, text, d, source)
	if err != nil {
		h.logger.Warn("correct_document failed", "run", rc.RunID, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("correction failed: %v", err)), nil
	}
	return jsonResult(report)
}

// SegmentDocument handles the segment_document tool
func (h *Handlers) SegmentDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text argument is required and must be a string"), nil
	}
	d, err := dialect.ByName(request.GetString("dialect", dialect.Markdown))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sc, err := h.segmenter.Segment(text, d)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("segmentation failed: %v", err)), nil
	}

	response := map[string]interface{}{
		"dialect":      sc.Dialect,
		"chunks":       sc.Chunks,
		"translatable": len(sc.Translatable()),
	}
	return jsonResult(response)
}

// Shutdown waits for running tool calls to finish
func (h *Handlers) Shutdown() {
	h.logger.Info("waiting for running tool calls")
	h.inflight.Wait()
}

// runContext reads the from/to arguments and tags the call with a run id
func runContext(request mcp.CallToolRequest) (models.RunContext, *mcp.CallToolResult) {
	from, err := models.ParseLanguage(request.GetString("from", ""))
	if err != nil {
		return models.RunContext{}, mcp.NewToolResultError(fmt.Sprintf("from: %v", err))
	}
	to, err := models.ParseLanguage(request.GetString("to", ""))
	if err != nil {
		return models.RunContext{}, mcp.NewToolResultError(fmt.Sprintf("to: %v", err))
	}
	rc := models.RunContext{Source: from, Target: to, RunID: uuid.New().String()[:8]}
	if err := rc.Validate(); err != nil {
		return rc, mcp.NewToolResultError(err.Error())
	}
	return rc, nil
}

func jsonResult(response interface{}) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}
