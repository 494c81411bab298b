// Package langserver exposes the formatter over the Language Server
// Protocol, for editors that format on save.
package langserver

import (
	"errors"
	"strings"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"

	"github.com/davidwessman/syntax-tree-erb/erb/parser"
	"github.com/davidwessman/syntax-tree-erb/format"
)

const lsName = "erbfmt"

type LSPServer struct {
	handler  protocol.Handler
	server   *server.Server
	version  string
	maxWidth int

	mu        sync.RWMutex
	documents map[protocol.DocumentUri]string
}

func NewLSPServer(version string, maxWidth int) *LSPServer {
	ls := &LSPServer{
		version:   version,
		maxWidth:  maxWidth,
		documents: make(map[protocol.DocumentUri]string),
	}

	ls.handler = protocol.Handler{
		Initialize:             ls.initialize,
		Initialized:            ls.initialized,
		Shutdown:               ls.shutdown,
		SetTrace:               ls.setTrace,
		TextDocumentDidOpen:    ls.textDocumentDidOpen,
		TextDocumentDidChange:  ls.textDocumentDidChange,
		TextDocumentDidClose:   ls.textDocumentDidClose,
		TextDocumentDidSave:    ls.textDocumentDidSave,
		TextDocumentFormatting: ls.textDocumentFormatting,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)

	return ls
}

func (ls *LSPServer) RunStdio() error {
	return ls.server.RunStdio()
}

func (ls *LSPServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := ls.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindFull),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}
	capabilities.DocumentFormattingProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

func (ls *LSPServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (ls *LSPServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (ls *LSPServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *LSPServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	ls.updateDocument(ctx, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (ls *LSPServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	change := params.ContentChanges[len(params.ContentChanges)-1]
	if whole, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
		ls.updateDocument(ctx, params.TextDocument.URI, whole.Text)
	}
	return nil
}

func (ls *LSPServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	ls.mu.Lock()
	delete(ls.documents, params.TextDocument.URI)
	ls.mu.Unlock()
	return nil
}

func (ls *LSPServer) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	if params.Text != nil {
		ls.updateDocument(ctx, params.TextDocument.URI, *params.Text)
	}
	return nil
}

// textDocumentFormatting formats the whole document and returns it
// as one edit replacing everything. Documents that do not parse are
// left untouched; the parse error is already visible as a
// diagnostic.
func (ls *LSPServer) textDocumentFormatting(ctx *glsp.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	ls.mu.RLock()
	text, ok := ls.documents[params.TextDocument.URI]
	ls.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	formatted, err := format.Format([]byte(text), format.WithMaxWidth(ls.maxWidth))
	if err != nil {
		return nil, nil
	}
	if string(formatted) == text {
		return nil, nil
	}

	return []protocol.TextEdit{
		{
			Range:   fullRange(text),
			NewText: string(formatted),
		},
	}, nil
}

// updateDocument stores the new content and republishes diagnostics
// for it.
func (ls *LSPServer) updateDocument(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	ls.mu.Lock()
	ls.documents[uri] = text
	ls.mu.Unlock()

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnose(text),
	})
}

// diagnose runs the parser over the document and converts the first
// failure into a diagnostic. An empty slice clears previous ones.
func diagnose(text string) []protocol.Diagnostic {
	_, err := parser.Parse([]byte(text))
	if err == nil {
		return []protocol.Diagnostic{}
	}

	line, column := 1, 0
	var lexErr *parser.LexError
	var parseErr *parser.ParseError
	switch {
	case errors.As(err, &lexErr):
		line, column = lexErr.Line, lexErr.Column
	case errors.As(err, &parseErr):
		line, column = parseErr.Line, parseErr.Column
	}

	severity := protocol.DiagnosticSeverityError
	source := lsName
	return []protocol.Diagnostic{
		{
			Range: protocol.Range{
				Start: protocol.Position{Line: uint32(line - 1), Character: uint32(column)},
				End:   protocol.Position{Line: uint32(line - 1), Character: uint32(column + 1)},
			},
			Severity: &severity,
			Source:   &source,
			Message:  err.Error(),
		},
	}
}

// fullRange spans the entire document, for whole-buffer edits.
func fullRange(text string) protocol.Range {
	lines := strings.Split(text, "\n")
	last := len(lines) - 1
	return protocol.Range{
		Start: protocol.Position{Line: 0, Character: 0},
		End:   protocol.Position{Line: uint32(last), Character: uint32(len(lines[last]))},
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func syncKindPtr(kind protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &kind
}
