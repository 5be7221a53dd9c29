package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/notebookmcp/backend/local"
)

func (ts *toolset) imageTools() []local.ToolDef {
	return []local.ToolDef{
		{
			Name:        GetImageResource,
			Title:       "Get image resource",
			Description: "Return the base64 data of an image produced by execute_code, given its resource_uri.",
			InputSchema: schema(map[string]any{
				"resource_uri": stringProp("Locator returned in execute_code images"),
			}, "resource_uri"),
			Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true, IdempotentHint: true},
			Tags:        []string{"image", "resource"},
			Handler:     ts.getImageResource,
		},
	}
}

func (ts *toolset) getImageResource(_ context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	uri, err := requiredString(args, "resource_uri", maxResourceURI)
	if err != nil {
		return fromError(err), nil
	}
	a, ok := ts.images.Get(uri)
	if !ok {
		return failure(CodeNotFound, "image not found: "+uri), nil
	}
	return success(struct {
		ResourceURI string `json:"resource_uri"`
		MIMEType    string `json:"mime_type"`
		Data        string `json:"data"`
		Width       int    `json:"width,omitempty"`
		Height      int    `json:"height,omitempty"`
		Description string `json:"description"`
	}{a.URI(), a.MIMEType, a.Data, a.Width, a.Height, a.Description}), nil
}
