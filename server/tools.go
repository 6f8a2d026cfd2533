package server

import (
	"context"

	"github.com/auditmos/logseq-mcp/logseq"
	"github.com/auditmos/logseq-mcp/privacy"
	"github.com/mark3labs/mcp-go/mcp"
)

const defaultSearchLimit = 10

func (s *Server) tools() []tool {
	return []tool{
		{
			def: mcp.NewTool("create_block",
				mcp.WithDescription("Create a new block in Logseq"),
				mcp.WithString("content", mcp.Required(), mcp.Description("The content of the block")),
				mcp.WithString("page", mcp.Required(), mcp.Description("The page to create the block in")),
				mcp.WithString("parent_block_id", mcp.Description("Optional parent block ID for nested blocks")),
				mcp.WithObject("properties", mcp.Description("Optional block properties")),
			),
			fn: s.createBlock,
		},
		{
			def: mcp.NewTool("update_block",
				mcp.WithDescription("Update an existing block in Logseq"),
				mcp.WithString("block_id", mcp.Required(), mcp.Description("The ID of the block to update")),
				mcp.WithString("content", mcp.Description("The new content for the block")),
				mcp.WithObject("properties", mcp.Description("Optional updated block properties")),
			),
			fn: s.updateBlock,
		},
		{
			def: mcp.NewTool("delete_block",
				mcp.WithDescription("Delete a block from Logseq"),
				mcp.WithString("block_id", mcp.Required(), mcp.Description("The ID of the block to delete")),
			),
			fn: s.deleteBlock,
		},
		{
			def: mcp.NewTool("get_block",
				mcp.WithDescription("Get a block from Logseq by ID"),
				mcp.WithString("block_id", mcp.Required(), mcp.Description("The ID of the block")),
				mcp.WithBoolean("include_children", mcp.DefaultBool(true), mcp.Description("Whether to include child blocks")),
			),
			fn: s.getBlock,
		},
		{
			def: mcp.NewTool("create_page",
				mcp.WithDescription("Create a new page in Logseq"),
				mcp.WithString("name", mcp.Required(), mcp.Description("The name of the page")),
				mcp.WithString("content", mcp.Description("Optional initial content for the page")),
				mcp.WithObject("properties", mcp.Description("Optional page properties")),
			),
			fn: s.createPage,
		},
		{
			def: mcp.NewTool("get_page",
				mcp.WithDescription("Get a page from Logseq by name"),
				mcp.WithString("name", mcp.Required(), mcp.Description("The name of the page to retrieve")),
				mcp.WithBoolean("include_children", mcp.DefaultBool(true), mcp.Description("Whether to include child blocks")),
			),
			fn: s.getPage,
		},
		{
			def: mcp.NewTool("get_journal_page",
				mcp.WithDescription("Get a journal page by date, e.g. 2023-12-25, 12/25/2023 or Dec 25th, 2023"),
				mcp.WithString("date", mcp.Required(), mcp.Description("The journal date")),
				mcp.WithBoolean("include_children", mcp.DefaultBool(true), mcp.Description("Whether to include child blocks")),
			),
			fn:    s.getJournalPage,
			hints: privacy.Hints{"date": privacy.HintPageName},
		},
		{
			def: mcp.NewTool("search_pages",
				mcp.WithDescription("Search for pages in Logseq"),
				mcp.WithString("query", mcp.Required(), mcp.Description("The search query")),
				mcp.WithNumber("limit", mcp.DefaultNumber(defaultSearchLimit), mcp.Description("Maximum number of results to return")),
			),
			fn: s.searchPages,
		},
		{
			def: mcp.NewTool("execute_query",
				mcp.WithDescription("Execute a Datalog query in Logseq"),
				mcp.WithString("query", mcp.Required(), mcp.Description("The Datalog query to execute")),
				mcp.WithArray("inputs", mcp.Description("Optional query inputs/parameters"), mcp.Items(map[string]any{"type": "string"})),
			),
			fn: s.executeQuery,
		},
		{
			def: mcp.NewTool("get_all_pages",
				mcp.WithDescription("List all pages in the current graph"),
				mcp.WithBoolean("include_journals", mcp.DefaultBool(true), mcp.Description("Whether to include journal pages")),
			),
			fn: s.getAllPages,
		},
	}
}

func (s *Server) createBlock(ctx context.Context, args arguments) (any, error) {
	content, err := args.requireString("content")
	if err != nil {
		return nil, err
	}
	page, err := args.requireString("page")
	if err != nil {
		return nil, err
	}
	parent, _, err := args.optString("parent_block_id")
	if err != nil {
		return nil, err
	}
	props, err := args.optObject("properties")
	if err != nil {
		return nil, err
	}

	block, err := s.api.CreateBlock(ctx, logseq.BlockInput{
		Content:       content,
		Page:          page,
		ParentBlockID: parent,
		Properties:    props,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"created": true, "block": block}, nil
}

func (s *Server) updateBlock(ctx context.Context, args arguments) (any, error) {
	id, err := args.requireString("block_id")
	if err != nil {
		return nil, err
	}
	content, hasContent, err := args.optString("content")
	if err != nil {
		return nil, err
	}
	props, err := args.optObject("properties")
	if err != nil {
		return nil, err
	}
	if !hasContent && props == nil {
		return nil, &ValidationError{Field: "content", Reason: "content or properties required"}
	}

	// updateBlock always replaces content, so keep the current text when
	// only properties change.
	if !hasContent {
		current, err := s.api.GetBlock(ctx, id, false)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, &NotFoundError{Kind: "block", Key: id}
		}
		content, _ = current["content"].(string)
	}

	block, err := s.api.UpdateBlock(ctx, id, content, props)
	if err != nil {
		return nil, err
	}
	return map[string]any{"block_id": id, "updated": true, "block": block}, nil
}

func (s *Server) deleteBlock(ctx context.Context, args arguments) (any, error) {
	id, err := args.requireString("block_id")
	if err != nil {
		return nil, err
	}
	if err := s.api.DeleteBlock(ctx, id); err != nil {
		return nil, err
	}
	return map[string]any{"block_id": id, "deleted": true}, nil
}

func (s *Server) getBlock(ctx context.Context, args arguments) (any, error) {
	id, err := args.requireString("block_id")
	if err != nil {
		return nil, err
	}
	children, err := args.optBool("include_children", true)
	if err != nil {
		return nil, err
	}

	block, err := s.api.GetBlock(ctx, id, children)
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, &NotFoundError{Kind: "block", Key: id}
	}
	return map[string]any{"found": true, "block": block}, nil
}

func (s *Server) createPage(ctx context.Context, args arguments) (any, error) {
	name, err := args.requireString("name")
	if err != nil {
		return nil, err
	}
	content, _, err := args.optString("content")
	if err != nil {
		return nil, err
	}
	props, err := args.optObject("properties")
	if err != nil {
		return nil, err
	}

	page, err := s.api.CreatePage(ctx, name, content, props)
	if err != nil {
		return nil, err
	}
	return map[string]any{"page_name": name, "created": true, "page": page}, nil
}

func (s *Server) getPage(ctx context.Context, args arguments) (any, error) {
	name, err := args.requireString("name")
	if err != nil {
		return nil, err
	}
	children, err := args.optBool("include_children", true)
	if err != nil {
		return nil, err
	}

	result, err := s.loadPage(ctx, name, children)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, &NotFoundError{Kind: "page", Key: name}
	}
	return result, nil
}

func (s *Server) getJournalPage(ctx context.Context, args arguments) (any, error) {
	date, err := args.requireString("date")
	if err != nil {
		return nil, err
	}
	children, err := args.optBool("include_children", true)
	if err != nil {
		return nil, err
	}

	names, err := logseq.JournalPageNames(date)
	if err != nil {
		return nil, &ValidationError{Field: "date", Reason: err.Error()}
	}
	for _, name := range names {
		result, err := s.loadPage(ctx, name, children)
		if err != nil {
			return nil, err
		}
		if result != nil {
			result["journal_page"] = name
			return result, nil
		}
	}
	return nil, &NotFoundError{Kind: "journal page", Key: names[0]}
}

// loadPage returns nil when the page does not exist.
func (s *Server) loadPage(ctx context.Context, name string, children bool) (map[string]any, error) {
	page, err := s.api.GetPage(ctx, name)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, nil
	}

	result := map[string]any{"found": true, "page": page}
	if children {
		blocks, err := s.api.GetPageBlocks(ctx, name)
		if err != nil {
			return nil, err
		}
		result["blocks"] = blocks
		result["count"] = len(blocks)
	}
	return result, nil
}

func (s *Server) searchPages(ctx context.Context, args arguments) (any, error) {
	query, err := args.requireString("query")
	if err != nil {
		return nil, err
	}
	limit, err := args.optInt("limit", defaultSearchLimit)
	if err != nil {
		return nil, err
	}

	pages, err := s.api.SearchPages(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"results": pages, "count": len(pages)}, nil
}

func (s *Server) executeQuery(ctx context.Context, args arguments) (any, error) {
	query, err := args.requireString("query")
	if err != nil {
		return nil, err
	}
	inputs, err := args.optStrings("inputs")
	if err != nil {
		return nil, err
	}

	rows, err := s.api.ExecuteQuery(ctx, query, inputs)
	if err != nil {
		return nil, err
	}
	return map[string]any{"results": rows, "count": len(rows)}, nil
}

func (s *Server) getAllPages(ctx context.Context, args arguments) (any, error) {
	journals, err := args.optBool("include_journals", true)
	if err != nil {
		return nil, err
	}

	pages, err := s.api.GetAllPages(ctx)
	if err != nil {
		return nil, err
	}
	if !journals {
		kept := make([]any, 0, len(pages))
		for _, p := range pages {
			if m, ok := p.(map[string]any); ok {
				if j, _ := m["journal?"].(bool); j {
					continue
				}
			}
			kept = append(kept, p)
		}
		pages = kept
	}
	return map[string]any{"pages": pages, "count": len(pages)}, nil
}
