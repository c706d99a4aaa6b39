package server

import (
	"context"
	"log/slog"

	"blogme/internal/middleware"
	"blogme/internal/notifications"
)

// Event type constants prevent typos in event names.
const (
	EventCommentCreated      = "comment_created"
	EventCommentDeleted      = "comment_deleted"
	EventPostReactionUpdated = "post_reaction_updated"
	EventUploadProgress      = "upload_progress"
)

// Event delivery is best effort: a failed publish is logged and never fails the request.
func (s *Server) publishPostEvent(ctx context.Context, postID uint, eventType string, payload map[string]any) {
	s.publish(ctx, notifications.PostTopic(postID), eventType, payload)
}

func (s *Server) publishUserEvent(ctx context.Context, userID uint, eventType string, payload map[string]any) {
	s.publish(ctx, notifications.UserTopic(userID), eventType, payload)
}

func (s *Server) publish(ctx context.Context, topic notifications.Topic, eventType string, payload map[string]any) {
	err := s.publisher.Publish(ctx, topic, notifications.Event{Type: eventType, Payload: payload})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish event",
			slog.String("type", eventType), slog.String("topic", topic.String()), slog.String("error", err.Error()))
	}
}
