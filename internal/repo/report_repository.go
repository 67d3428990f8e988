package repo

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/OxyHQ/mention-api/internal/db"
	"github.com/OxyHQ/mention-api/internal/errs"
	"github.com/OxyHQ/mention-api/internal/model"
)

type reportRepository struct {
	mongoRepo *db.Repository[model.Report]
	logger    *zap.Logger
}

type ReportRepository interface {
	Insert(ctx context.Context, report *model.Report) (string, error)
}

func NewReportRepository(mongoRepo *db.Repository[model.Report], logger *zap.Logger) ReportRepository {
	return &reportRepository{
		mongoRepo: mongoRepo,
		logger:    logger,
	}
}

func (r *reportRepository) Insert(ctx context.Context, report *model.Report) (string, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	result, err := r.mongoRepo.Create(ctx, *report)
	if err != nil {
		r.logger.Error("failed to insert report",
			zap.String("message_id", report.MessageID.Hex()),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: insert report: %v", errs.ErrPersistence, err)
	}
	return objectIDHex(result.InsertedID), nil
}
