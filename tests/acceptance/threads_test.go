package acceptance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/prperemyshlev/bridge-service/internal/domain"
	"github.com/prperemyshlev/bridge-service/internal/repository"
)

func (s *Suite) TestAppendMessage_BumpsThreadTimestamp() {
	edge := s.registerGuest("messages@example.com", "Password123")
	threads := repository.NewThreadRepository(s.Postgres)
	ctx := context.Background()

	thread := &domain.Thread{
		AccountID: edge.Account.ID,
		Title:     "transcript",
		Provider:  "openai",
		Model:     "gpt-4o",
		CreatedAt: time.Now().Add(-time.Hour),
		UpdatedAt: time.Now().Add(-time.Hour),
	}
	s.Require().NoError(threads.CreateThread(ctx, thread))

	message := &domain.Message{
		ThreadID: thread.ID,
		Role:     domain.MessageRoleUser,
		Content:  "hello",
	}
	s.Require().NoError(threads.AppendMessage(ctx, message))

	stored, err := threads.GetThread(ctx, thread.ID)
	s.Require().NoError(err)
	s.WithinDuration(message.CreatedAt, stored.UpdatedAt, time.Second)

	listed, err := threads.ListMessages(ctx, thread.ID)
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal("hello", listed[0].Content)
}

func (s *Suite) TestAppendMessage_MissingThreadLeavesNoRows() {
	threads := repository.NewThreadRepository(s.Postgres)
	ctx := context.Background()

	message := &domain.Message{
		ThreadID: uuid.New().String(),
		Role:     domain.MessageRoleUser,
		Content:  "orphan",
	}
	s.Require().Error(threads.AppendMessage(ctx, message))

	var count int
	err := s.Postgres.DB.QueryRow(
		`SELECT COUNT(*) FROM messages WHERE id = $1`, message.ID,
	).Scan(&count)
	s.Require().NoError(err)
	s.Equal(0, count)
}
