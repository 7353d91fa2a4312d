package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/daianaegermichels/financas/internal/logging"
	sc "github.com/daianaegermichels/financas/internal/server/config"
	"github.com/daianaegermichels/financas/internal/server/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const presignExpires = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

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

// Statement points at an exported CSV in object storage.
type Statement struct {
	Key string
	URL string
}

// StatementService exports a user's entries as CSV to S3-compatible storage.
type StatementService struct {
	entries *EntryService
	config  *sc.Config
	logger  logging.Logger
	now     func() time.Time
}

func NewStatementService(entries *EntryService, config *sc.Config, logger logging.Logger) *StatementService {
	return &StatementService{
		entries: entries,
		config:  config,
		logger:  logger.With("module", "statements"),
		now:     time.Now,
	}
}

func (s *StatementService) storageKey(userID int64) string {
	d := s.now()
	return fmt.Sprintf("statements/%d/%04d/%02d/%02d/%v.csv", userID, d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *StatementService) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
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

// Export uploads the user's entries of year (0 means every year) followed by
// the settled balance, and returns a presigned download URL.
func (s *StatementService) Export(ctx context.Context, userID int64, year int) (*Statement, error) {
	balance, err := s.entries.BalanceForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	list, err := s.entries.Search(ctx, models.EntryFilter{UserID: userID, Year: year})
	if err != nil {
		return nil, err
	}

	body, err := renderCSV(list, balance)
	if err != nil {
		return nil, fmt.Errorf("render statement: %w", err)
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	key := s.storageKey(userID)

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return nil, err
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpires))
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "statement exported", "user_id", userID, "key", key, "entries", len(list))

	return &Statement{Key: key, URL: req.URL}, nil
}

// csvText keeps spreadsheets from evaluating free text as a formula.
func csvText(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}

func renderCSV(list []*models.Entry, balance decimal.Decimal) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	records := [][]string{{"id", "descricao", "mes", "ano", "valor", "tipo", "status", "data_cadastro"}}
	for _, e := range list {
		records = append(records, []string{
			strconv.FormatInt(e.ID, 10),
			csvText(e.Description),
			strconv.Itoa(e.Month),
			strconv.Itoa(e.Year),
			e.Amount.StringFixed(2),
			string(e.Type),
			string(e.Status),
			e.CreatedAt.Format(time.RFC3339),
		})
	}
	records = append(records, []string{"saldo", "", "", "", balance.StringFixed(2), "", "", ""})

	if err := w.WriteAll(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
