package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/epesi-labs/epesi-backend/internal/repos"
	"github.com/epesi-labs/epesi-backend/internal/requestdata"
	"github.com/epesi-labs/epesi-backend/internal/types"
)

func newTestAgent(t *testing.T, db *gorm.DB, ai AIClient) (AgentService, ConversationService, repos.BlockRepo) {
	t.Helper()
	log := testLogger(t)
	blockRepo := repos.NewBlockRepo(db, log)
	conversations := newTestConversations(t, db)
	positions := NewPositionService(db, log, blockRepo)
	generation := NewGenerationService(log, ai)
	agent := NewAgentService(
		log,
		repos.NewDashboardRepo(db, log),
		repos.NewProjectRepo(db, log),
		repos.NewDataSourceRepo(db, log),
		blockRepo,
		generation,
		positions,
		conversations,
	)
	return agent, conversations, blockRepo
}

func authedContext(userID uuid.UUID) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{UserID: userID})
}

func seedDataSource(t *testing.T, db *gorm.DB, dashboard *types.Dashboard) *types.DataSource {
	t.Helper()
	var project types.Project
	if err := db.First(&project, "id = ?", dashboard.ProjectID).Error; err != nil {
		t.Fatalf("load project: %v", err)
	}
	source := &types.DataSource{
		ID:             uuid.New(),
		OrganizationID: project.OrganizationID,
		Name:           "sales",
		Fields:         []byte(`["month","revenue"]`),
		Rows:           []byte(`[{"month":"Jan","revenue":"100"},{"month":"Feb","revenue":"200"}]`),
		RowCount:       2,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.Create(source).Error; err != nil {
		t.Fatalf("seed data source: %v", err)
	}
	return source
}

func mustCount(t *testing.T, db *gorm.DB, model any, want int64) {
	t.Helper()
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != want {
		t.Fatalf("expected %d rows of %T, got %d", want, model, count)
	}
}

func TestSendPrompt_BackendFailurePersistsNothing(t *testing.T) {
	db := newTestDB(t)
	dashboard := seedDashboard(t, db)
	seedDataSource(t, db, dashboard)
	ai := &fakeAIClient{errs: []error{errors.New("service melted")}}
	agent, _, _ := newTestAgent(t, db, ai)

	_, err := agent.SendPrompt(authedContext(uuid.New()), dashboard.ID, nil, "show revenue", 1)
	var backend *GenerationBackendError
	if !errors.As(err, &backend) {
		t.Fatalf("expected GenerationBackendError, got %v", err)
	}

	mustCount(t, db, &types.Conversation{}, 0)
	mustCount(t, db, &types.Message{}, 0)
	mustCount(t, db, &types.Block{}, 0)
	mustCount(t, db, &types.ChatTurn{}, 0)
}

func TestSendPrompt_ContractViolationPersistsNothing(t *testing.T) {
	db := newTestDB(t)
	dashboard := seedDashboard(t, db)
	ai := &fakeAIClient{responses: []string{"sorry, no charts", "still chatting"}}
	agent, _, _ := newTestAgent(t, db, ai)

	_, err := agent.SendPrompt(authedContext(uuid.New()), dashboard.ID, nil, "show revenue", 1)
	var violation *GenerationContractViolation
	if !errors.As(err, &violation) {
		t.Fatalf("expected GenerationContractViolation, got %v", err)
	}

	mustCount(t, db, &types.Conversation{}, 0)
	mustCount(t, db, &types.Message{}, 0)
	mustCount(t, db, &types.Block{}, 0)
}

func TestSendPrompt_RequiresAuthenticatedUser(t *testing.T) {
	db := newTestDB(t)
	dashboard := seedDashboard(t, db)
	ai := &fakeAIClient{}
	agent, _, _ := newTestAgent(t, db, ai)

	_, err := agent.SendPrompt(context.Background(), dashboard.ID, nil, "prompt", 1)
	if err == nil {
		t.Fatalf("expected error for missing request data")
	}
	if ai.calls != 0 {
		t.Fatalf("backend must not be called without a user")
	}
}

func TestSendPrompt_PersistsFullTurn(t *testing.T) {
	db := newTestDB(t)
	dashboard := seedDashboard(t, db)
	seedDataSource(t, db, dashboard)
	response := `[
		{"question":"Revenue by month?","chart_type":"bar","chart_payload":[{"label":"Jan","value":100},{"label":"Feb","value":200}]},
		{"question":"Revenue share?","chart_type":"pie","chart_payload":[{"label":"Jan","value":100},{"label":"Feb","value":200}]}
	]`
	ai := &fakeAIClient{responses: []string{response}}
	agent, conversations, blockRepo := newTestAgent(t, db, ai)

	userID := uuid.New()
	result, err := agent.SendPrompt(authedContext(userID), dashboard.ID, nil, "show me revenue charts", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Conversation == nil || result.Conversation.Title != "show me revenue charts" {
		t.Fatalf("unexpected conversation: %+v", result.Conversation)
	}
	if len(result.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(result.Blocks))
	}

	// First generated chart lands at position 0, second at 1.
	blocks, err := blockRepo.ListByDashboard(context.Background(), nil, dashboard.ID)
	if err != nil {
		t.Fatalf("list blocks: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks on dashboard, got %d", len(blocks))
	}
	if blocks[0].Title != "Revenue by month?" || blocks[1].Title != "Revenue share?" {
		t.Fatalf("unexpected block order: %q / %q", blocks[0].Title, blocks[1].Title)
	}
	if blocks[0].Position != 0 || blocks[1].Position != 1 {
		t.Fatalf("positions must be dense from 0: %d / %d", blocks[0].Position, blocks[1].Position)
	}

	content, err := blocks[0].DecodeContent()
	if err != nil {
		t.Fatalf("decode content: %v", err)
	}
	if content.ChartData == nil || content.ChartData.ChartType != types.ChartTypeBar {
		t.Fatalf("unexpected chart data: %+v", content.ChartData)
	}
	if len(content.ChartData.Insights) == 0 {
		t.Fatalf("generated blocks must carry synthesized insights")
	}
	if content.LastPrompt != "show me revenue charts" {
		t.Fatalf("last prompt must be recorded, got %q", content.LastPrompt)
	}
	if content.DataSourceID == nil {
		t.Fatalf("single data source must be linked on the block")
	}

	messages, err := conversations.ListMessages(context.Background(), result.Conversation.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected user+assistant messages, got %d", len(messages))
	}
	if messages[0].Role != types.MessageRoleUser || messages[1].Role != types.MessageRoleAssistant {
		t.Fatalf("unexpected roles: %q / %q", messages[0].Role, messages[1].Role)
	}
	meta, err := messages[1].DecodeMetadata()
	if err != nil || len(meta.Charts) != 2 {
		t.Fatalf("assistant metadata must carry both charts: %+v err=%v", meta, err)
	}
	if !strings.Contains(messages[1].Content, "Added 2") {
		t.Fatalf("unexpected assistant text: %q", messages[1].Content)
	}

	for _, block := range blocks {
		turns, err := conversations.ListBlockTurns(context.Background(), block.ID)
		if err != nil {
			t.Fatalf("list turns: %v", err)
		}
		if len(turns) != 1 {
			t.Fatalf("each block must record its generation turn, got %d", len(turns))
		}
	}
}

func TestSendPrompt_UnderDeliveryReported(t *testing.T) {
	db := newTestDB(t)
	dashboard := seedDashboard(t, db)
	ai := &fakeAIClient{responses: []string{validChartJSON}}
	agent, _, _ := newTestAgent(t, db, ai)

	result, err := agent.SendPrompt(authedContext(uuid.New()), dashboard.ID, nil, "three charts please", 3)
	if err != nil {
		t.Fatalf("under-delivery must succeed: %v", err)
	}
	if len(result.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(result.Blocks))
	}
	if !strings.Contains(result.AssistantMessage.Content, "1 of 3") {
		t.Fatalf("under-delivery must be reported honestly: %q", result.AssistantMessage.Content)
	}
}

func TestSendPrompt_ExistingConversationFeedsHistory(t *testing.T) {
	db := newTestDB(t)
	dashboard := seedDashboard(t, db)
	ai := &fakeAIClient{responses: []string{validChartJSON}}
	agent, conversations, _ := newTestAgent(t, db, ai)

	userID := uuid.New()
	conversation, err := conversations.GetOrCreate(context.Background(), dashboard.ID, nil, "original question", userID)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	base := time.Now().UTC().Add(-time.Hour)
	userMsg := &types.Message{ID: uuid.New(), ConversationID: conversation.ID, Role: types.MessageRoleUser, Content: "original question", CreatedAt: base}
	if err := db.Create(userMsg).Error; err != nil {
		t.Fatalf("seed user message: %v", err)
	}
	assistantMsg := &types.Message{ID: uuid.New(), ConversationID: conversation.ID, Role: types.MessageRoleAssistant, Content: "Added 1 chart(s).", CreatedAt: base.Add(time.Minute)}
	if err := assistantMsg.EncodeMetadata(&types.MessageMetadata{Charts: []types.ChartPayload{{Title: "Original chart", ChartType: types.ChartTypeBar}}}); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if err := db.Create(assistantMsg).Error; err != nil {
		t.Fatalf("seed assistant message: %v", err)
	}

	result, err := agent.SendPrompt(authedContext(userID), dashboard.ID, &conversation.ID, "make it a pie chart", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Conversation.ID != conversation.ID {
		t.Fatalf("must reuse the existing conversation")
	}
	if len(ai.users) != 1 {
		t.Fatalf("expected 1 backend call, got %d", len(ai.users))
	}
	if !strings.Contains(ai.users[0], "original question") {
		t.Fatalf("prior turns must reach the prompt:\n%s", ai.users[0])
	}

	mustCount(t, db, &types.Conversation{}, 1)
}

func TestRegenerateBlock_UpdatesContentAndAppendsTurn(t *testing.T) {
	db := newTestDB(t)
	dashboard := seedDashboard(t, db)
	ai := &fakeAIClient{responses: []string{`[{"question":"Refined view","chart_type":"line","chart_payload":[{"label":"a","value":1}]}]`}}
	agent, conversations, _ := newTestAgent(t, db, ai)
	positions, _ := newTestPositions(t, db)

	block := insertBlock(t, positions, dashboard.ID, "old title", nil)
	if _, err := conversations.AppendBlockTurn(context.Background(), block.ID, "first ask", &types.ChartPayload{Title: "old title", ChartType: types.ChartTypeBar}); err != nil {
		t.Fatalf("seed turn: %v", err)
	}

	updated, turn, err := agent.RegenerateBlock(context.Background(), block.ID, "refine it")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Title != "Refined view" {
		t.Fatalf("block title must follow the new chart, got %q", updated.Title)
	}
	if turn.Question != "refine it" {
		t.Fatalf("unexpected turn: %+v", turn)
	}
	if !strings.Contains(ai.users[0], "first ask") {
		t.Fatalf("block history must feed the prompt:\n%s", ai.users[0])
	}

	turns, err := conversations.ListBlockTurns(context.Background(), block.ID)
	if err != nil {
		t.Fatalf("list turns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns after regeneration, got %d", len(turns))
	}
}

func TestConvertBlockChart_KeepsSeries(t *testing.T) {
	db := newTestDB(t)
	dashboard := seedDashboard(t, db)
	agent, _, _ := newTestAgent(t, db, &fakeAIClient{})
	positions, _ := newTestPositions(t, db)

	block := &types.Block{
		DashboardID: dashboard.ID,
		Title:       "Revenue",
		Type:        types.BlockTypeAI,
		Size:        6,
	}
	if err := block.EncodeContent(&types.BlockContent{ChartData: &types.ChartPayload{
		ChartType: types.ChartTypeBar,
		Title:     "Revenue",
		Series:    []types.SeriesPoint{{Label: "Jan", Value: 100}, {Label: "Feb", Value: 200}},
	}}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	created, err := positions.Insert(context.Background(), block, nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	converted, err := agent.ConvertBlockChart(context.Background(), created.ID, types.ChartTypePie)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	content, err := converted.DecodeContent()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if content.ChartData.ChartType != types.ChartTypePie {
		t.Fatalf("expected pie, got %q", content.ChartData.ChartType)
	}
	if len(content.ChartData.Series) != 2 || content.ChartData.Series[0].Value != 100 {
		t.Fatalf("series must survive conversion verbatim: %+v", content.ChartData.Series)
	}
}

func TestConvertBlockChart_RejectsInvalidType(t *testing.T) {
	db := newTestDB(t)
	dashboard := seedDashboard(t, db)
	agent, _, _ := newTestAgent(t, db, &fakeAIClient{})
	positions, _ := newTestPositions(t, db)
	block := insertBlock(t, positions, dashboard.ID, "b", nil)

	if _, err := agent.ConvertBlockChart(context.Background(), block.ID, "hologram"); err == nil {
		t.Fatalf("expected error for invalid chart type")
	}
}
