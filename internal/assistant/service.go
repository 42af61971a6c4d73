package assistant

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ziadkadry99/vachat/internal/conversation"
	"github.com/ziadkadry99/vachat/internal/policy"
)

// Recorder receives completed turns, e.g. for evaluation logging.
// evaluation.Harness satisfies it.
type Recorder interface {
	Record(ctx context.Context, res *Result) error
}

// Service runs turns for multi-session callers (HTTP, websocket, MCP),
// persisting each session's history.
type Service struct {
	Engine   *Engine
	Search   Retriever
	Gate     Gate
	Sessions *conversation.SessionStore
	Recorder Recorder
	Logger   *log.Logger
}

func (s *Service) logger() *log.Logger {
	if s.Logger == nil {
		return log.Default()
	}
	return s.Logger
}

// Turn answers query within a session. An empty sessionID starts a new
// session when a session store is configured. The first slot's answer is
// the one kept as the session's assistant turn.
func (s *Service) Turn(ctx context.Context, sessionID, query string, slots []string) (*Result, string, error) {
	var history []conversation.Turn
	if s.Sessions != nil {
		if sessionID == "" {
			sess, err := s.Sessions.Create(ctx, "")
			if err != nil {
				return nil, "", err
			}
			sessionID = sess.ID
		} else if _, err := s.Sessions.Get(ctx, sessionID); err != nil {
			return nil, sessionID, err
		}

		turns, err := s.Sessions.Turns(ctx, sessionID)
		if err != nil {
			return nil, sessionID, err
		}
		history = turns
	}

	ctx = policy.WithSession(ctx, sessionID)
	res, err := s.Engine.Respond(ctx, query, history, slots)
	if err != nil {
		return nil, sessionID, err
	}

	if s.Sessions != nil && len(res.Answers) > 0 {
		now := time.Now()
		err := s.Sessions.Append(ctx, sessionID,
			conversation.UserTurn(query, res.Context, now),
			conversation.AssistantTurn(res.Answers[0].Text, now),
		)
		if err != nil {
			return res, sessionID, fmt.Errorf("saving turn: %w", err)
		}
	}

	if s.Recorder != nil && res.Verdict.Allowed {
		if err := s.Recorder.Record(ctx, res); err != nil {
			s.logger().Printf("assistant: recording evaluation: %v", err)
		}
	}
	return res, sessionID, nil
}
