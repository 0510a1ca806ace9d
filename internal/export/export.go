// Package export writes point-in-time CSV snapshots of every current rating
// to object storage for bulk consumers such as model training jobs.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/ratingkeeper/internal/logging"
	"github.com/dmitrijs2005/ratingkeeper/internal/metrics"
	"github.com/dmitrijs2005/ratingkeeper/internal/models"
	"github.com/google/uuid"
)

// Header is the first CSV record of every snapshot.
var Header = []string{"account_id", "item_id", "value", "recorded_at"}

// RatingsSource is satisfied by *services.RatingService.
type RatingsSource interface {
	AllRatings(ctx context.Context) ([]models.Rating, error)
}

// ObjectPutter is the part of *s3.Client the exporter uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Exporter struct {
	source  RatingsSource
	client  ObjectPutter
	bucket  string
	logger  logging.Logger
	metrics *metrics.Manager
	now     func() time.Time
}

// NewExporter returns an Exporter uploading to bucket. mm may be nil.
func NewExporter(source RatingsSource, client ObjectPutter, bucket string, log logging.Logger, mm *metrics.Manager) *Exporter {
	return &Exporter{
		source:  source,
		client:  client,
		bucket:  bucket,
		logger:  log,
		metrics: mm,
		now:     time.Now,
	}
}

// StorageKey returns a fresh object key under snapshots/YYYY/MM/DD/.
func StorageKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("snapshots/%04d/%02d/%02d/%s.csv", t.Year(), t.Month(), t.Day(), uuid.New())
}

// Snapshot reads all ratings, uploads them as CSV and returns the object key.
func (e *Exporter) Snapshot(ctx context.Context) (key string, err error) {
	start := time.Now()
	defer func() {
		outcome := metrics.OutcomeOK
		if err != nil {
			outcome = metrics.OutcomeError
		}
		e.metrics.Since(metrics.OpExport, outcome, start)
	}()

	rs, err := e.source.AllRatings(ctx)
	if err != nil {
		return "", fmt.Errorf("read ratings: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rs); err != nil {
		return "", err
	}

	key = StorageKey(e.now())
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(e.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(int64(buf.Len())),
		ContentType:   aws.String("text/csv"),
	})
	if err != nil {
		e.logger.Error(ctx, "snapshot upload failed", "bucket", e.bucket, "key", key, "error", err)
		return "", fmt.Errorf("upload snapshot: %w", err)
	}

	e.logger.Info(ctx, "ratings snapshot uploaded", "bucket", e.bucket, "key", key, "rows", len(rs))
	return key, nil
}

// WriteCSV writes rs ordered by (account_id, item_id) after Header.
// Timestamps are RFC 3339 in UTC.
func WriteCSV(w io.Writer, rs []models.Rating) error {
	sorted := make([]models.Rating, len(rs))
	copy(sorted, rs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].AccountID != sorted[j].AccountID {
			return sorted[i].AccountID < sorted[j].AccountID
		}
		return sorted[i].ItemID < sorted[j].ItemID
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	for _, r := range sorted {
		record := []string{
			strconv.FormatInt(r.AccountID, 10),
			strconv.FormatInt(r.ItemID, 10),
			strconv.FormatFloat(r.Value, 'g', -1, 64),
			r.RecordedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
