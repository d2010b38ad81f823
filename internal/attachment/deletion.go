package attachment

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/radif/attachments/internal/storage"
)

// DeleteAttachment removes key if it belongs to taskID. The scope check runs
// before the store is contacted. Deleting a missing key reports false, not an error.
func (s *Service) DeleteAttachment(ctx context.Context, taskID, key string) (bool, error) {
	if err := ValidateTaskID(taskID); err != nil {
		return false, err
	}
	if key == "" {
		return false, validationf("name query param required")
	}
	if !BelongsToTask(key, taskID) {
		return false, ErrOutOfScope
	}

	log := zerolog.Ctx(ctx).With().Str("task_id", taskID).Str("key", key).Logger()

	ok, err := s.store.Exists(ctx, key)
	if err != nil {
		return false, storeErr("check attachment", err)
	}
	if !ok {
		log.Debug().Msg("attachment already absent")
		s.obs.AttachmentDeleted(false)
		return false, nil
	}

	if err := s.store.Delete(ctx, key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.obs.AttachmentDeleted(false)
			return false, nil
		}
		return false, storeErr("delete attachment", err)
	}

	log.Info().Msg("attachment deleted")
	s.obs.AttachmentDeleted(true)
	return true, nil
}
