package usecase

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"tradeloop/internal/domain/entity"
	"tradeloop/internal/domain/repository"
	"tradeloop/internal/domain/service"
	"tradeloop/pkg/errors"
	"tradeloop/pkg/logger"
)

const defaultProofMaxBytes = 5 * 1024 * 1024

type ProofUseCase struct {
	store    repository.DataStore
	storage  service.ProofStorage
	features *service.FeatureRegistry
	notifier RefreshNotifier
	logger   logger.Logger
	maxBytes int64
	now      func() time.Time
}

func NewProofUseCase(
	store repository.DataStore,
	storage service.ProofStorage,
	features *service.FeatureRegistry,
	notifier RefreshNotifier,
	log logger.Logger,
	maxBytes int64,
) *ProofUseCase {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if maxBytes <= 0 {
		maxBytes = defaultProofMaxBytes
	}
	return &ProofUseCase{
		store:    store,
		storage:  storage,
		features: features,
		notifier: notifier,
		logger:   log,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// MaxBytes is the largest proof image accepted.
func (uc *ProofUseCase) MaxBytes() int64 {
	return uc.maxBytes
}

// AttachProof uploads image as completion evidence for record and stores the
// public URL on the trade. Every rejection happens before the upload. Once
// uploaded, the object is never uploaded again; if the trade cannot be
// patched, the object is removed and the error surfaced.
func (uc *ProofUseCase) AttachProof(ctx context.Context, userID string, record *entity.TradeRecord, image []byte) (string, error) {
	if record == nil {
		return "", errors.BadRequest("Trade is required", nil)
	}
	if !record.CanUploadProof() {
		return "", errors.PreconditionFailed("Proof can only be attached to a completed trade")
	}
	if record.Origin() == entity.OriginListing {
		return "", errors.PreconditionFailed("Proof can only be attached to a swap or donation")
	}
	if !uc.features.IsSupported(service.FeatureProofPhoto) {
		return "", errors.FeatureUnavailable("Proof photo")
	}
	if len(image) == 0 {
		return "", errors.BadRequest("Proof image is empty", nil)
	}
	if int64(len(image)) > uc.maxBytes {
		return "", errors.BadRequest(fmt.Sprintf("Proof image exceeds maximum allowed (%dMB)", uc.maxBytes/(1024*1024)), nil)
	}

	mtype := mimetype.Detect(image)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", errors.BadRequest("Proof must be an image", nil)
	}

	objectPath := fmt.Sprintf("proofs/%s/%s-%d%s", userID, record.ID, uc.now().Unix(), mtype.Extension())
	url, err := uc.storage.UploadFile(ctx, bytes.NewReader(image), mtype.String(), objectPath)
	if err != nil {
		return "", errors.Upstream("Failed to upload proof image", err)
	}

	err = uc.store.Patch(ctx, resourceFor(record.Origin()), record.ID, map[string]interface{}{
		"proof_photo_url": url,
	})
	if err != nil {
		uc.discardUpload(ctx, url, record.ID)
		if uc.features.IsCompatibilityError(err.Error(), service.FeatureProofPhoto) {
			if uc.features.MarkUnsupported(service.FeatureProofPhoto) {
				uc.logger.Warn("Backend lacks optional columns, feature disabled",
					"feature", string(service.FeatureProofPhoto), "query", "attach_proof", "error", err)
			}
			return "", errors.SchemaIncompatible("Backend does not support proof photos", err)
		}
		return "", upstream("Failed to attach proof", err)
	}

	uc.logger.Info("Proof attached", "tradeID", record.ID, "userID", userID)
	uc.notifier.NotifyRefresh(userID, ScopeTrades)
	if record.CounterpartyID != "" && record.CounterpartyID != userID {
		uc.notifier.NotifyRefresh(record.CounterpartyID, ScopeTrades)
	}
	return url, nil
}

func (uc *ProofUseCase) discardUpload(ctx context.Context, url, tradeID string) {
	if err := uc.storage.DeleteFile(context.WithoutCancel(ctx), url); err != nil {
		uc.logger.Warn("Failed to remove orphaned proof image", "tradeID", tradeID, "url", url, "error", err)
	}
}
