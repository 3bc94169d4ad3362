package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/labspace/labnav/internal/domain/activity"
	"github.com/labspace/labnav/internal/domain/navigation"
)

func connectInMemory(t *testing.T, services Services) *sdkmcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	server := NewServer(Config{Services: services, TransportMode: "stdio"})
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func toolText(t *testing.T, res *sdkmcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestServer_ListsTools(t *testing.T) {
	session := connectInMemory(t, Services{})

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, tool := range res.Tools {
		names[tool.Name] = true
		require.NotEmpty(t, tool.Description, "tool %s should have description", tool.Name)
		require.NotNil(t, tool.InputSchema, "tool %s should have inputSchema", tool.Name)
	}
	require.Len(t, res.Tools, len(toolCatalog))
	for _, name := range []string{"navigate_to", "page_loaded", "submit_code", "recent_events"} {
		require.True(t, names[name], "missing tool %s", name)
	}
}

func TestServer_CallTool(t *testing.T) {
	registry := activity.NewRegistry()
	require.NoError(t, registry.Register(activity.NewDescriptor("7", "Loops", "")))

	session := connectInMemory(t, Services{
		Registry: registry,
		Navigation: navigationStub{
			navigateFn: func(_ context.Context, id string) error {
				if id == "" {
					return navigation.ErrInvalidActivityID
				}
				return nil
			},
		},
	})
	ctx := context.Background()

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "list_activities", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var list ActivityListResponse
	require.NoError(t, json.Unmarshal([]byte(toolText(t, res)), &list))
	require.Equal(t, []activity.Descriptor{{ID: "7", Title: "Loops"}}, list.Activities)

	res, err = session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "navigate_to",
		Arguments: map[string]any{"activity_id": "7"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	res, err = session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "navigate_to",
		Arguments: map[string]any{"activity_id": ""},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, toolText(t, res), CodeInvalidActivityID)
}

func TestServer_DocumentationResources(t *testing.T) {
	session := connectInMemory(t, Services{})
	ctx := context.Background()

	resources, err := session.ListResources(ctx, nil)
	require.NoError(t, err)
	require.Len(t, resources.Resources, len(docResources))

	for _, r := range resources.Resources {
		require.Equal(t, "text/markdown", r.MIMEType)
		read, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: r.URI})
		require.NoError(t, err)
		require.Len(t, read.Contents, 1)
		require.NotEmpty(t, read.Contents[0].Text)
	}
}
