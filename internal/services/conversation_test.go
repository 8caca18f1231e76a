package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/epesi-labs/epesi-backend/internal/types"
)

func TestDeriveConversationTitle(t *testing.T) {
	exactly50 := strings.Repeat("x", 50)
	cases := []struct {
		name   string
		prompt string
		want   string
	}{
		{"short verbatim", "Show me revenue", "Show me revenue"},
		{"exactly 50 verbatim", exactly50, exactly50},
		{"51 truncated", exactly50 + "y", exactly50 + "..."},
		{"whitespace trimmed", "  hello  ", "hello"},
		{"empty", "   ", "New conversation"},
	}
	for _, tc := range cases {
		if got := DeriveConversationTitle(tc.prompt); got != tc.want {
			t.Errorf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestDeriveConversationTitle_RuneSafe(t *testing.T) {
	prompt := strings.Repeat("å", 60)
	title := DeriveConversationTitle(prompt)
	want := strings.Repeat("å", 50) + "..."
	if title != want {
		t.Fatalf("got %q want %q", title, want)
	}
}

func TestGetOrCreate_NewConversationDerivesTitle(t *testing.T) {
	db := newTestDB(t)
	dashboard := seedDashboard(t, db)
	svc := newTestConversations(t, db)

	conversation, err := svc.GetOrCreate(context.Background(), dashboard.ID, nil, "What drives our churn?", uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conversation.Title != "What drives our churn?" {
		t.Fatalf("unexpected title %q", conversation.Title)
	}
	if conversation.DashboardID != dashboard.ID {
		t.Fatalf("conversation bound to wrong dashboard")
	}
}

func TestGetOrCreate_UnknownIDFails(t *testing.T) {
	db := newTestDB(t)
	dashboard := seedDashboard(t, db)
	svc := newTestConversations(t, db)

	missing := uuid.New()
	_, err := svc.GetOrCreate(context.Background(), dashboard.ID, &missing, "prompt", uuid.New())
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestAppendMessage_BumpsConversationUpdatedAt(t *testing.T) {
	db := newTestDB(t)
	dashboard := seedDashboard(t, db)
	svc := newTestConversations(t, db)

	conversation, err := svc.GetOrCreate(context.Background(), dashboard.ID, nil, "first", uuid.New())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Age the conversation so the bump is observable.
	stale := time.Now().UTC().Add(-time.Hour)
	if err := db.Model(&types.Conversation{}).Where("id = ?", conversation.ID).
		UpdateColumn("updated_at", stale).Error; err != nil {
		t.Fatalf("age conversation: %v", err)
	}

	if _, err := svc.AppendMessage(context.Background(), conversation.ID, types.MessageRoleUser, "hello", nil); err != nil {
		t.Fatalf("append: %v", err)
	}

	var reloaded types.Conversation
	if err := db.First(&reloaded, "id = ?", conversation.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.UpdatedAt.After(stale.Add(time.Minute)) {
		t.Fatalf("updated_at must be bumped, got %v", reloaded.UpdatedAt)
	}
}

func TestListMessages_ChronologicalOrder(t *testing.T) {
	db := newTestDB(t)
	dashboard := seedDashboard(t, db)
	svc := newTestConversations(t, db)

	conversation, err := svc.GetOrCreate(context.Background(), dashboard.ID, nil, "first", uuid.New())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	base := time.Now().UTC().Add(-time.Hour)
	for i, content := range []string{"one", "two", "three"} {
		msg := &types.Message{
			ID:             uuid.New(),
			ConversationID: conversation.ID,
			Role:           types.MessageRoleUser,
			Content:        content,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(msg).Error; err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	messages, err := svc.ListMessages(context.Background(), conversation.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	if messages[0].Content != "one" || messages[2].Content != "three" {
		t.Fatalf("messages must be oldest-first: %q .. %q", messages[0].Content, messages[2].Content)
	}
}

func TestRecentConversationTurns_PairsMostRecentFirst(t *testing.T) {
	db := newTestDB(t)
	dashboard := seedDashboard(t, db)
	svc := newTestConversations(t, db)

	conversation, err := svc.GetOrCreate(context.Background(), dashboard.ID, nil, "first", uuid.New())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	base := time.Now().UTC().Add(-time.Hour)
	seed := func(offset time.Duration, role, content string, chart *types.ChartPayload) {
		msg := &types.Message{
			ID:             uuid.New(),
			ConversationID: conversation.ID,
			Role:           role,
			Content:        content,
			CreatedAt:      base.Add(offset),
		}
		if chart != nil {
			if err := msg.EncodeMetadata(&types.MessageMetadata{Charts: []types.ChartPayload{*chart}}); err != nil {
				t.Fatalf("metadata: %v", err)
			}
		}
		if err := db.Create(msg).Error; err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	seed(1*time.Minute, types.MessageRoleUser, "question one", nil)
	seed(2*time.Minute, types.MessageRoleAssistant, "reply one", &types.ChartPayload{Title: "Chart one", ChartType: types.ChartTypeBar})
	seed(3*time.Minute, types.MessageRoleUser, "question two", nil)
	seed(4*time.Minute, types.MessageRoleAssistant, "reply two", &types.ChartPayload{Title: "Chart two", ChartType: types.ChartTypePie})

	turns, err := svc.RecentConversationTurns(context.Background(), conversation.ID, maxPriorTurns)
	if err != nil {
		t.Fatalf("turns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Question != "question two" || turns[0].ChartTitle != "Chart two" {
		t.Fatalf("most recent turn must come first: %+v", turns[0])
	}
	if turns[1].Question != "question one" || turns[1].ChartTitle != "Chart one" {
		t.Fatalf("unexpected second turn: %+v", turns[1])
	}
}

func TestBlockTurns_AppendListDelete(t *testing.T) {
	db := newTestDB(t)
	dashboard := seedDashboard(t, db)
	svc := newTestConversations(t, db)
	positions, _ := newTestPositions(t, db)

	block := insertBlock(t, positions, dashboard.ID, "chart", nil)

	chart := &types.ChartPayload{Title: "T", ChartType: types.ChartTypeBar, Series: []types.SeriesPoint{{Label: "a", Value: 1}}}
	turn, err := svc.AppendBlockTurn(context.Background(), block.ID, "why?", chart)
	if err != nil {
		t.Fatalf("append turn: %v", err)
	}

	turns, err := svc.ListBlockTurns(context.Background(), block.ID)
	if err != nil {
		t.Fatalf("list turns: %v", err)
	}
	if len(turns) != 1 || turns[0].Question != "why?" {
		t.Fatalf("unexpected turns: %+v", turns)
	}
	decoded, err := turns[0].DecodeChart()
	if err != nil || decoded == nil || decoded.Title != "T" {
		t.Fatalf("chart snapshot must round-trip: %+v err=%v", decoded, err)
	}

	if err := svc.DeleteBlockTurn(context.Background(), turn.ID); err != nil {
		t.Fatalf("delete turn: %v", err)
	}
	turns, err = svc.ListBlockTurns(context.Background(), block.ID)
	if err != nil {
		t.Fatalf("relist turns: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected no turns after delete, got %d", len(turns))
	}
}
