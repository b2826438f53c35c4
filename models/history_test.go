package models

import "testing"

func TestWindowHistory_Empty(t *testing.T) {
	result := WindowHistory(nil, MaxModelMessages)
	if len(result) != 0 {
		t.Errorf("expected empty result, got %d messages", len(result))
	}
}

func TestWindowHistory_DropsMarkers(t *testing.T) {
	msgs := []Message{
		{ID: "a", Role: RoleUser, Type: TypeInput},
		{ID: "a", Role: RoleAssistant, Type: TypeAnswer},
		{ID: "a", Role: RoleAssistant, Type: TypeFollowup},
		{ID: "a", Role: RoleAssistant, Type: TypeEnd},
	}
	result := WindowHistory(msgs, MaxModelMessages)
	if len(result) != 2 {
		t.Fatalf("expected 2 messages after dropping markers, got %d", len(result))
	}
	for _, m := range result {
		if m.Type == TypeEnd || m.Type == TypeFollowup {
			t.Errorf("marker message %s survived windowing", m.Type)
		}
	}
}

func TestWindowHistory_KeepsMostRecent(t *testing.T) {
	var msgs []Message
	for i := 0; i < 10; i++ {
		msgs = append(msgs, Message{ID: "u", Role: RoleUser, Type: TypeInput})
		msgs = append(msgs, Message{ID: "a", Role: RoleAssistant, Type: TypeAnswer})
	}
	result := WindowHistory(msgs, 6)
	if len(result) != 6 {
		t.Errorf("expected window of 6, got %d", len(result))
	}
	if result[0].Role != RoleUser {
		t.Errorf("expected window to open on a user message, got %s", result[0].Role)
	}
}

func TestWindowHistory_SkipsOrphanedToolResult(t *testing.T) {
	// Truncation landed in the middle of a tool cycle.
	msgs := []Message{
		{ID: "t", Role: RoleTool, Type: TypeTool, Name: ToolSearch},
		{ID: "t", Role: RoleAssistant, Type: TypeAnswer},
		{ID: "u", Role: RoleUser, Type: TypeInput},
	}
	result := WindowHistory(msgs, 6)
	if len(result) != 2 {
		t.Fatalf("expected 2 messages after skipping orphan, got %d", len(result))
	}
	if result[0].Role != RoleAssistant {
		t.Errorf("expected window to open on the assistant message, got %s", result[0].Role)
	}
}

func TestWindowHistory_OnlyToolAndUserFallback(t *testing.T) {
	msgs := []Message{
		{ID: "t", Role: RoleTool, Type: TypeTool, Name: ToolSearch},
		{ID: "t2", Role: RoleTool, Type: TypeTool, Name: ToolRetrieve},
	}
	if result := WindowHistory(msgs, 6); len(result) != 0 {
		t.Errorf("expected empty window for tool-only history, got %d", len(result))
	}
}
