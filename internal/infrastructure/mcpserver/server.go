// Package mcpserver exposes the query orchestrator over the Model Context
// Protocol (stdio). One MCP server process is one conversation.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/0xcro3dile/storeinsights-go/internal/adapters/markdown"
	"github.com/0xcro3dile/storeinsights-go/internal/domain/entities"
	"github.com/0xcro3dile/storeinsights-go/internal/domain/scoring"
	"github.com/0xcro3dile/storeinsights-go/internal/domain/usecases"
)

// Version is set at build time via ldflags.
var Version = "dev"

const maxRankLimit = 100

// Server holds the single session backing the MCP tools.
type Server struct {
	sessions *usecases.SessionUseCase
	datasets usecases.DatasetSource
	weights  scoring.Weights
	logger   *zap.Logger

	mu        sync.Mutex
	sessionID string
}

// New creates the tool handlers. weights are used to rank a dataset that
// was loaded without the composite score.
func New(sessions *usecases.SessionUseCase, datasets usecases.DatasetSource, weights scoring.Weights, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		sessions: sessions,
		datasets: datasets,
		weights:  weights,
		logger:   logger.Named("mcp"),
	}
}

// MCPServer builds the protocol server with every tool registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer(
		"storeinsights",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions("Answers questions about restaurant performance data. "+
			"Several questions may be asked at once, separated by ? or ;."),
	)
	srv.AddTool(AskDefinition(), s.HandleAsk)
	srv.AddTool(RankDefinition(), s.HandleRank)
	return srv
}

// ServeStdio serves MCP on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	defer s.Close()
	return server.ServeStdio(s.MCPServer())
}

// AskDefinition returns the ask_restaurant_data tool definition.
func AskDefinition() mcp.Tool {
	return mcp.NewTool("ask_restaurant_data",
		mcp.WithDescription(
			"Ask one or more natural-language questions about the restaurant dataset. "+
				"Answers are computed from the data and returned as Markdown tables. "+
				"Multiple questions are answered separately, each under its own heading.",
		),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question(s). Example: 'Which store had the highest net sales? Which had the fastest service?'"),
		),
	)
}

// RankDefinition returns the rank_restaurants tool definition.
func RankDefinition() mcp.Tool {
	return mcp.NewTool("rank_restaurants",
		mcp.WithDescription(
			"Rank restaurants by composite performance score (net sales, average transaction, "+
				"beverage count, speed of service, discounts, cash over/short). Best first.",
		),
		mcp.WithNumber("limit",
			mcp.Description("Max rows (default: 10, max: 100, 0 for all)"),
		),
	)
}

// HandleAsk answers through the process session, starting it on first use.
func (s *Server) HandleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question := req.GetString("question", "")
	if question == "" {
		return mcp.NewToolResultError("'question' is required"), nil
	}

	id, err := s.session(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("starting session: %v", err)), nil
	}

	resp, err := s.sessions.Ask(ctx, &entities.ChatRequest{SessionID: id, Utterance: question})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(resp.Text), nil
}

// HandleRank ranks the current dataset by composite score.
func (s *Server) HandleRank(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := intArg(req, "limit", 10)
	if limit < 0 {
		return mcp.NewToolResultError("'limit' must not be negative"), nil
	}
	if limit > maxRankLimit {
		limit = maxRankLimit
	}

	ds := s.datasets.Current()
	if ds == nil {
		return mcp.NewToolResultError(usecases.ErrNoDataset.Error()), nil
	}

	ranked, err := scoring.Leaderboard(ds, s.weights, "", limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ranking failed: %v", err)), nil
	}
	return mcp.NewToolResultText(markdown.Ranking(ranked)), nil
}

// Close ends the process session, if one was started.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessionID == "" {
		return nil
	}
	err := s.sessions.End(s.sessionID)
	s.sessionID = ""
	if errors.Is(err, usecases.ErrSessionNotFound) {
		return nil
	}
	return err
}

func (s *Server) session(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessionID != "" {
		return s.sessionID, nil
	}
	session, err := s.sessions.Start(ctx)
	if err != nil {
		return "", err
	}
	s.sessionID = session.ID
	s.logger.Info("mcp session started", zap.String("session_id", session.ID))
	return s.sessionID, nil
}

// intArg extracts an integer argument from a tool request.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}
