package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/dualcal/internal/calendar"
	"github.com/dmitrijs2005/dualcal/internal/common"
	"github.com/dmitrijs2005/dualcal/internal/logging"
	"github.com/dmitrijs2005/dualcal/internal/server/auth"
	"github.com/dmitrijs2005/dualcal/internal/server/config"
	"github.com/dmitrijs2005/dualcal/internal/server/metrics"
	"github.com/dmitrijs2005/dualcal/internal/server/models"
	"github.com/dmitrijs2005/dualcal/internal/server/store"
	"github.com/dmitrijs2005/dualcal/internal/timex"
	"github.com/google/uuid"
)

const exportURLValidity = 15 * time.Minute

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// ExportService renders a month as iCalendar and publishes it to
// S3-compatible storage.
type ExportService struct {
	records store.RecordStore
	config  *config.Config
	metrics *metrics.Metrics
	logger  logging.Logger
	now     func() time.Time
}

func NewExportService(records store.RecordStore, cfg *config.Config, m *metrics.Metrics, l logging.Logger) *ExportService {
	return &ExportService{records: records, config: cfg, metrics: m, logger: l.With("module", "export"), now: time.Now}
}

// ExportKey returns a fresh object key for uid's export of v.
func ExportKey(uid string, v calendar.View) string {
	return fmt.Sprintf("exports/%s/%04d-%02d-%v.ics", uid, v.Year, v.Month, uuid.New())
}

func (s *ExportService) s3Client() (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// Render writes uid's month as iCalendar: one all-day event per day labelled
// with the adjusted Hijri date, then the account's events and the holidays
// falling in the month.
func (s *ExportService) Render(ctx context.Context, account models.UserAccount, v calendar.View) ([]byte, error) {
	month := calendar.Build(v, account.HijriAdjustment)
	items := calendar.MonthICS(month)

	prefix := fmt.Sprintf("%04d-%02d-", v.Year, v.Month)
	events, err := queryEvents(ctx, s.records, account.UID)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		if d, ok := dayIn(e.Date, prefix); ok {
			items = append(items, calendar.ICSEvent{UID: "event-" + e.ID + "@dualcal", Date: d, Summary: e.Title})
		}
	}
	holidays, err := queryHolidays(ctx, s.records)
	if err != nil {
		return nil, err
	}
	for _, h := range holidays {
		if d, ok := dayIn(h.Date, prefix); ok {
			items = append(items, calendar.ICSEvent{UID: "holiday-" + h.ID + "@dualcal", Date: d, Summary: h.Title, Description: "Holiday"})
		}
	}

	var buf bytes.Buffer
	name := v.String() + " (" + month.HijriSpan() + ")"
	if err := calendar.WriteICS(&buf, name, s.now(), items); err != nil {
		return nil, internalError("Error rendering export", err)
	}
	return buf.Bytes(), nil
}

func dayIn(date, prefix string) (time.Time, bool) {
	if !strings.HasPrefix(date, prefix) {
		return time.Time{}, false
	}
	d, err := time.Parse(timex.DateLayout, date)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// ExportMonth uploads the caller's month and returns a presigned GET URL.
func (s *ExportService) ExportMonth(ctx context.Context, caller auth.Identity, year, month int) (*models.Export, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if month < 1 || month > 12 || year < 1 || year > 9999 {
		return nil, common.Status(common.ErrInvalidArgument, "Invalid year or month")
	}
	account, err := loadAccount(ctx, s.records, caller.UID)
	if err != nil {
		return nil, err
	}
	v := calendar.View{Year: year, Month: month}

	body, err := s.Render(ctx, account, v)
	if err != nil {
		s.metrics.Exported(err)
		return nil, err
	}

	out, err := s.upload(ctx, ExportKey(caller.UID, v), body)
	s.metrics.Exported(err)
	if err != nil {
		s.logger.Error(ctx, "export failed", "uid", caller.UID, logging.Err(err))
		return nil, internalError("Error exporting month", err)
	}
	s.logger.Info(ctx, "month exported", "uid", caller.UID, "key", out.Key)
	return out, nil
}

func (s *ExportService) upload(ctx context.Context, key string, body []byte) (*models.Export, error) {
	client, err := s.s3Client()
	if err != nil {
		return nil, err
	}
	bucket := s.config.S3Bucket

	if _, err := putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/calendar; charset=utf-8"),
	}); err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(exportURLValidity))
	if err != nil {
		return nil, fmt.Errorf("presign: %w", err)
	}

	return &models.Export{Key: key, URL: req.URL, ExpiresAt: s.now().Add(exportURLValidity)}, nil
}
