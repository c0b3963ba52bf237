package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"stockd/internal/models"
	"stockd/internal/repositories"
	"stockd/pkg/logger"

	"github.com/google/uuid"
)

const exportURLExpiry = 24 * time.Hour

// ExportService writes a closed period's frozen quantities to object storage
// as CSV and hands back a presigned download link.
type ExportService interface {
	ExportPeriod(ctx context.Context, companyID, periodID uuid.UUID) (string, error)
}

type exportService struct {
	repos   repositories.Repos
	storage StorageService
	bucket  string
	log     *logger.Logger
}

func NewExportService(repos repositories.Repos, storage StorageService, bucket string, log *logger.Logger) ExportService {
	return &exportService{repos: repos, storage: storage, bucket: bucket, log: log}
}

func (s *exportService) ExportPeriod(ctx context.Context, companyID, periodID uuid.UUID) (string, error) {
	period, err := s.repos.Periods.GetByID(ctx, companyID, periodID)
	if err != nil {
		return "", err
	}
	if period.State != models.PeriodClosed {
		return "", ErrPeriodNotClosed
	}
	rows, err := s.repos.Periods.CacheRows(ctx, period.ID, nil, nil)
	if err != nil {
		return "", err
	}

	locationNames, err := s.locationNames(ctx, companyID, rows)
	if err != nil {
		return "", err
	}
	productNames, err := s.productNames(ctx, companyID, rows)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"location", "product", "quantity"}); err != nil {
		return "", err
	}
	for _, row := range rows {
		record := []string{
			locationNames[row.LocationID],
			productNames[row.ProductID],
			strconv.FormatFloat(row.InternalQuantity, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	objectName := fmt.Sprintf("%s/periods/%s-%s.csv", companyID, period.Date.Format("2006-01-02"), period.ID)
	if err := s.storage.EnsureBucketExists(ctx, s.bucket); err != nil {
		return "", err
	}
	if err := s.storage.Upload(ctx, s.bucket, objectName, "text/csv", &buf, int64(buf.Len())); err != nil {
		return "", err
	}
	url, err := s.storage.GetPresignedURL(ctx, s.bucket, objectName, exportURLExpiry)
	if err != nil {
		return "", err
	}
	s.log.Info().Str("period", period.Name).Int("rows", len(rows)).Msg("period exported")
	return url, nil
}

func (s *exportService) locationNames(ctx context.Context, companyID uuid.UUID, rows []*models.PeriodCache) (map[uuid.UUID]string, error) {
	ids := make([]uuid.UUID, 0, len(rows))
	seen := make(map[uuid.UUID]bool)
	for _, row := range rows {
		if !seen[row.LocationID] {
			seen[row.LocationID] = true
			ids = append(ids, row.LocationID)
		}
	}
	names := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		loc, err := s.repos.Locations.GetByID(ctx, companyID, id)
		if err != nil {
			return nil, err
		}
		names[id] = loc.Name
	}
	return names, nil
}

func (s *exportService) productNames(ctx context.Context, companyID uuid.UUID, rows []*models.PeriodCache) (map[uuid.UUID]string, error) {
	ids := make([]uuid.UUID, 0, len(rows))
	seen := make(map[uuid.UUID]bool)
	for _, row := range rows {
		if !seen[row.ProductID] {
			seen[row.ProductID] = true
			ids = append(ids, row.ProductID)
		}
	}
	products, err := s.repos.Products.GetByIDs(ctx, companyID, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	return names, nil
}
