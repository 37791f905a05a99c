package usecase

import (
	"context"
	"time"

	"docintel/internal/domain"
	"docintel/internal/port"
)

// AnswerUseCase answers a question from retrieved documents.
type AnswerUseCase struct {
	retrieve *RetrieveUseCase
	chat     port.ChatModel
}

func NewAnswerUseCase(retrieve *RetrieveUseCase, chat port.ChatModel) *AnswerUseCase {
	return &AnswerUseCase{retrieve: retrieve, chat: chat}
}

// Answer retrieves context for question and asks the chat model. The model
// is called even when nothing matched; the answer text is returned as the
// model produced it.
func (u *AnswerUseCase) Answer(ctx context.Context, creds domain.Credentials, question string) (domain.Answer, error) {
	start := time.Now()

	matches, err := u.retrieve.Retrieve(ctx, creds.Embedding, question)
	if err != nil {
		return domain.Answer{}, err
	}

	messages := BuildMessages(BuildContext(matches), question)
	text, err := u.chat.Complete(ctx, creds.Chat, messages)
	if err != nil {
		return domain.Answer{}, err
	}

	return domain.Answer{
		Question: question,
		Text:     text,
		Matches:  matches,
		Elapsed:  time.Since(start),
	}, nil
}
