// Package sdk provides a typed Go client for the Blotter MCP server.
//
// The client wraps mcp-go/client.CallTool with one method per tool and
// retries failed calls via fortify.
//
// Usage:
//
//	transport, _ := client.NewStdioTransport("blotter", "mcp")
//	c := sdk.NewClient(transport)
//	defer c.Close()
//
//	_, _ = c.Initialize(ctx)
//	next, _ := c.NextAction(ctx, "CR-2026-014", gate.RoleOfficer)
//	fmt.Println(next.Next.Action.Label())
package sdk
