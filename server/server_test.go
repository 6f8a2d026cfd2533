package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/auditmos/logseq-mcp/logging"
	"github.com/auditmos/logseq-mcp/logseq"
	"github.com/auditmos/logseq-mcp/pipeline"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	pages   map[string]map[string]any
	blocks  map[string]map[string]any
	created []logseq.BlockInput
	updated map[string]string
	err     error
	panics  bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		pages:   map[string]map[string]any{},
		blocks:  map[string]map[string]any{},
		updated: map[string]string{},
	}
}

func (f *fakeAPI) CreateBlock(_ context.Context, in logseq.BlockInput) (map[string]any, error) {
	if f.panics {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, in)
	return map[string]any{"uuid": "b-1", "content": in.Content}, nil
}

func (f *fakeAPI) UpdateBlock(_ context.Context, uuid, content string, _ map[string]any) (map[string]any, error) {
	f.updated[uuid] = content
	return map[string]any{"uuid": uuid, "content": content}, nil
}

func (f *fakeAPI) DeleteBlock(_ context.Context, uuid string) error {
	delete(f.blocks, uuid)
	return f.err
}

func (f *fakeAPI) GetBlock(_ context.Context, uuid string, _ bool) (map[string]any, error) {
	if b, ok := f.blocks[uuid]; ok {
		return b, nil
	}
	return nil, f.err
}

func (f *fakeAPI) CreatePage(_ context.Context, name, _ string, _ map[string]any) (map[string]any, error) {
	p := map[string]any{"name": name}
	f.pages[name] = p
	return p, nil
}

func (f *fakeAPI) GetPage(_ context.Context, name string) (map[string]any, error) {
	if p, ok := f.pages[name]; ok {
		return p, nil
	}
	return nil, f.err
}

func (f *fakeAPI) GetPageBlocks(_ context.Context, _ string) ([]any, error) {
	return []any{map[string]any{"content": "first"}}, nil
}

func (f *fakeAPI) GetAllPages(_ context.Context) ([]any, error) {
	return []any{
		map[string]any{"name": "notes"},
		map[string]any{"name": "mar 1st, 2024", "journal?": true},
	}, nil
}

func (f *fakeAPI) SearchPages(_ context.Context, _ string, limit int) ([]any, error) {
	out := make([]any, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, map[string]any{"name": i})
	}
	return out, nil
}

func (f *fakeAPI) ExecuteQuery(_ context.Context, _ string, inputs []string) ([]any, error) {
	return []any{inputs}, f.err
}

type captureLogger struct {
	mu    sync.Mutex
	calls []pipeline.Invocation
}

func (c *captureLogger) LogToolCall(inv pipeline.Invocation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, inv)
}

func (c *captureLogger) all() []pipeline.Invocation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]pipeline.Invocation(nil), c.calls...)
}

func newTestServer(api *fakeAPI) (*Server, *captureLogger) {
	logs := &captureLogger{}
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(5 * time.Millisecond)
		return now
	}
	return New(api, logs, Options{Version: "test", Diag: logging.NopLogger{}, Now: clock}), logs
}

func decodeResult(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotNil(t, res)
	require.False(t, res.IsError, resultText(res))
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &out))
	return out
}

func TestToolNames(t *testing.T) {
	s, _ := newTestServer(newFakeAPI())

	assert.Equal(t, []string{
		"create_block",
		"create_page",
		"delete_block",
		"execute_query",
		"get_all_pages",
		"get_block",
		"get_journal_page",
		"get_page",
		"search_pages",
		"update_block",
	}, s.ToolNames())
}

func TestCallToolSuccessLogsOnce(t *testing.T) {
	api := newFakeAPI()
	s, logs := newTestServer(api)

	res, err := s.CallTool(context.Background(), "create_block", map[string]any{
		"content": "Meeting notes",
		"page":    "Work",
	})
	require.NoError(t, err)
	out := decodeResult(t, res)
	assert.Equal(t, true, out["created"])

	calls := logs.all()
	require.Len(t, calls, 1)
	assert.Equal(t, "create_block", calls[0].ToolName)
	assert.NoError(t, calls[0].Err)
	assert.Equal(t, "Meeting notes", calls[0].Arguments["content"])
	assert.Equal(t, 5*time.Millisecond, calls[0].Duration)
	assert.NotNil(t, calls[0].Result)
	require.Len(t, api.created, 1)
	assert.Equal(t, "Work", api.created[0].Page)
}

func TestCallToolFailureLogsOnce(t *testing.T) {
	api := newFakeAPI()
	api.err = errors.New("logseq down")
	s, logs := newTestServer(api)

	res, err := s.CallTool(context.Background(), "create_block", map[string]any{
		"content": "x",
		"page":    "Work",
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "logseq down")

	calls := logs.all()
	require.Len(t, calls, 1)
	assert.EqualError(t, calls[0].Err, "logseq down")
	assert.Nil(t, calls[0].Result)
}

func TestCallToolValidationErrorLogsOnce(t *testing.T) {
	s, logs := newTestServer(newFakeAPI())

	res, err := s.CallTool(context.Background(), "create_block", map[string]any{"page": "Work"})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	calls := logs.all()
	require.Len(t, calls, 1)
	var verr *ValidationError
	require.ErrorAs(t, calls[0].Err, &verr)
	assert.Equal(t, "content", verr.Field)
	assert.Equal(t, "ValidationError", logging.ErrorType(calls[0].Err))
}

func TestCallToolPanicLogsOnce(t *testing.T) {
	api := newFakeAPI()
	api.panics = true
	s, logs := newTestServer(api)

	var res *mcp.CallToolResult
	var err error
	assert.NotPanics(t, func() {
		res, err = s.CallTool(context.Background(), "create_block", map[string]any{
			"content": "x",
			"page":    "Work",
		})
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "internal error", resultText(res))

	calls := logs.all()
	require.Len(t, calls, 1)
	var perr *logging.PanicError
	require.ErrorAs(t, calls[0].Err, &perr)
	assert.Equal(t, "boom", perr.Value)
}

func TestCallUnknownTool(t *testing.T) {
	s, logs := newTestServer(newFakeAPI())

	_, err := s.CallTool(context.Background(), "nope", nil)
	assert.Error(t, err)
	assert.Empty(t, logs.all())
}

func TestGetBlockNotFound(t *testing.T) {
	s, logs := newTestServer(newFakeAPI())

	res, err := s.CallTool(context.Background(), "get_block", map[string]any{"block_id": "missing"})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	calls := logs.all()
	require.Len(t, calls, 1)
	var nf *NotFoundError
	require.ErrorAs(t, calls[0].Err, &nf)
	assert.Equal(t, "missing", nf.Key)
}

func TestUpdateBlockKeepsContentForPropertyOnlyUpdate(t *testing.T) {
	api := newFakeAPI()
	api.blocks["b-7"] = map[string]any{"uuid": "b-7", "content": "original"}
	s, _ := newTestServer(api)

	res, err := s.CallTool(context.Background(), "update_block", map[string]any{
		"block_id":   "b-7",
		"properties": map[string]any{"status": "done"},
	})
	require.NoError(t, err)
	decodeResult(t, res)
	assert.Equal(t, "original", api.updated["b-7"])
}

func TestUpdateBlockRequiresChange(t *testing.T) {
	s, _ := newTestServer(newFakeAPI())

	res, err := s.CallTool(context.Background(), "update_block", map[string]any{"block_id": "b-7"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestDeleteBlock(t *testing.T) {
	s, _ := newTestServer(newFakeAPI())

	res, err := s.CallTool(context.Background(), "delete_block", map[string]any{"block_id": "b-1"})
	require.NoError(t, err)
	out := decodeResult(t, res)
	assert.Equal(t, "b-1", out["block_id"])
	assert.Equal(t, true, out["deleted"])
}

func TestGetPageWithBlocks(t *testing.T) {
	api := newFakeAPI()
	api.pages["notes"] = map[string]any{"name": "notes"}
	s, _ := newTestServer(api)

	res, err := s.CallTool(context.Background(), "get_page", map[string]any{"name": "notes"})
	require.NoError(t, err)
	out := decodeResult(t, res)
	assert.Equal(t, float64(1), out["count"])
	assert.Len(t, out["blocks"], 1)

	res, err = s.CallTool(context.Background(), "get_page", map[string]any{
		"name":             "notes",
		"include_children": false,
	})
	require.NoError(t, err)
	out = decodeResult(t, res)
	assert.NotContains(t, out, "blocks")
}

func TestGetJournalPageTriesFormats(t *testing.T) {
	api := newFakeAPI()
	api.pages["March 1st, 2024"] = map[string]any{"name": "march 1st, 2024"}
	s, logs := newTestServer(api)

	res, err := s.CallTool(context.Background(), "get_journal_page", map[string]any{"date": "2024-03-01"})
	require.NoError(t, err)
	out := decodeResult(t, res)
	assert.Equal(t, "March 1st, 2024", out["journal_page"])

	calls := logs.all()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Hints, "date")
}

func TestGetJournalPageInvalidDate(t *testing.T) {
	s, _ := newTestServer(newFakeAPI())

	res, err := s.CallTool(context.Background(), "get_journal_page", map[string]any{"date": "someday"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestSearchPagesDefaultLimit(t *testing.T) {
	s, _ := newTestServer(newFakeAPI())

	res, err := s.CallTool(context.Background(), "search_pages", map[string]any{"query": "notes"})
	require.NoError(t, err)
	out := decodeResult(t, res)
	assert.Equal(t, float64(defaultSearchLimit), out["count"])

	res, err = s.CallTool(context.Background(), "search_pages", map[string]any{"query": "notes", "limit": float64(3)})
	require.NoError(t, err)
	out = decodeResult(t, res)
	assert.Equal(t, float64(3), out["count"])
}

func TestExecuteQueryInputs(t *testing.T) {
	s, _ := newTestServer(newFakeAPI())

	res, err := s.CallTool(context.Background(), "execute_query", map[string]any{
		"query":  "[:find ?b :in $ ?m :where [?b :block/marker ?m]]",
		"inputs": []any{"TODO"},
	})
	require.NoError(t, err)
	out := decodeResult(t, res)
	assert.Equal(t, float64(1), out["count"])

	res, err = s.CallTool(context.Background(), "execute_query", map[string]any{
		"query":  "[:find ?b]",
		"inputs": []any{1},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGetAllPagesFiltersJournals(t *testing.T) {
	s, _ := newTestServer(newFakeAPI())

	res, err := s.CallTool(context.Background(), "get_all_pages", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(2), decodeResult(t, res)["count"])

	res, err = s.CallTool(context.Background(), "get_all_pages", map[string]any{"include_journals": false})
	require.NoError(t, err)
	assert.Equal(t, float64(1), decodeResult(t, res)["count"])
}

func TestHandleMessageListsTools(t *testing.T) {
	s, logs := newTestServer(newFakeAPI())
	ctx := context.Background()

	initialize := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`
	require.NotNil(t, s.MCP().HandleMessage(ctx, json.RawMessage(initialize)))

	resp := s.MCP().HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	names := make([]string, 0, len(decoded.Result.Tools))
	for _, tl := range decoded.Result.Tools {
		names = append(names, tl.Name)
	}
	assert.ElementsMatch(t, s.ToolNames(), names)
	assert.Empty(t, logs.all())
}

func TestHandleMessageToolCallLogsOnce(t *testing.T) {
	s, logs := newTestServer(newFakeAPI())
	ctx := context.Background()

	call := `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"delete_block","arguments":{"block_id":"b-9"}}}`
	require.NotNil(t, s.MCP().HandleMessage(ctx, json.RawMessage(call)))

	calls := logs.all()
	require.Len(t, calls, 1)
	assert.Equal(t, "delete_block", calls[0].ToolName)
	assert.Equal(t, "b-9", calls[0].Arguments["block_id"])
}
