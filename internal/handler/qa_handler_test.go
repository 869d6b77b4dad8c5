package handler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pdf-qa-be/internal/constant"
	"pdf-qa-be/internal/dto"
	"pdf-qa-be/internal/pkg/logger"
	"pdf-qa-be/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQAService struct {
	err  error
	last *dto.QuestionMessage
}

func (s *stubQAService) Answer(_ context.Context, req *dto.QuestionMessage) (*dto.AnswerMessage, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &dto.AnswerMessage{Answer: "42", Confidence: 0.5, ConversationId: "conv-1"}, nil
}

func TestHandleMessage(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		err      error
		wantCode string
	}{
		{name: "not json", payload: `{"documentId":`, wantCode: constant.CodeInvalidMessageFormat},
		{name: "missing question", payload: `{"documentId":1}`, wantCode: constant.CodeInvalidMessageFormat},
		{name: "zero document", payload: `{"documentId":0,"question":"hi"}`, wantCode: constant.CodeInvalidMessageFormat},
		{name: "negative document", payload: `{"documentId":-1,"question":"hi"}`, wantCode: constant.CodeInvalidMessageFormat},
		{
			name:     "service failure",
			payload:  `{"documentId":1,"question":"hi"}`,
			err:      fmt.Errorf("document 1: %w", service.ErrDocumentNotReady),
			wantCode: constant.CodeQAProcessingError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewQAHandler(&stubQAService{err: tt.err}, nil, logger.NewNopLogger())

			reply := h.HandleMessage(context.Background(), "client", []byte(tt.payload))

			msg, ok := reply.(dto.ErrorMessage)
			require.True(t, ok, "expected an error frame, got %T", reply)
			assert.Equal(t, tt.wantCode, msg.Code)
			assert.NotEmpty(t, msg.Detail)
			if tt.err != nil {
				assert.Contains(t, msg.Detail, "not processed")
			}
		})
	}
}

func TestHandleMessageAnswers(t *testing.T) {
	stub := &stubQAService{}
	h := NewQAHandler(stub, nil, logger.NewNopLogger())

	reply := h.HandleMessage(context.Background(), "client",
		[]byte(`{"documentId":3,"question":"what?","conversationId":"abc","metadata":{"lang":"en"}}`))

	answer, ok := reply.(*dto.AnswerMessage)
	require.True(t, ok)
	assert.Equal(t, "42", answer.Answer)
	require.NotNil(t, stub.last)
	assert.EqualValues(t, 3, stub.last.DocumentId)
	assert.Equal(t, "abc", stub.last.ConversationId)
	assert.Equal(t, "en", stub.last.Metadata["lang"])
}

func TestHandleMessageKeepsWrappedCause(t *testing.T) {
	cause := errors.New("llm offline")
	h := NewQAHandler(&stubQAService{err: cause}, nil, logger.NewNopLogger())

	reply := h.HandleMessage(context.Background(), "client", []byte(`{"documentId":1,"question":"hi"}`))

	msg := reply.(dto.ErrorMessage)
	assert.Equal(t, constant.MessageQAFailed, msg.Error)
	assert.Equal(t, "llm offline", msg.Detail)
}
