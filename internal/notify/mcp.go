package notify

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
)

// ReminderMethod is the MCP notification method used for reminders.
const ReminderMethod = "notifications/flourish/care_reminder"

// Broadcaster is the part of the MCP server used to push notifications.
type Broadcaster interface {
	SendNotificationToAllClients(method string, params map[string]any)
}

var _ Broadcaster = (*server.MCPServer)(nil)

// MCP pushes reminders to every connected MCP client.
type MCP struct {
	srv Broadcaster
}

// NewMCP wraps an MCP server.
func NewMCP(srv Broadcaster) *MCP {
	return &MCP{srv: srv}
}

// Name implements Notifier.
func (m *MCP) Name() string { return "mcp" }

// Notify implements Notifier.
func (m *MCP) Notify(_ context.Context, n Notification) error {
	m.srv.SendNotificationToAllClients(ReminderMethod, map[string]any{
		"title":       n.Title,
		"body":        n.Body,
		"schedule_id": n.ScheduleID,
		"plant_name":  n.PlantName,
		"care_type":   n.CareType,
		"due":         n.Due.Format("2006-01-02"),
	})
	return nil
}
