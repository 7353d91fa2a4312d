package services

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/daianaegermichels/financas/internal/common"
	"github.com/daianaegermichels/financas/internal/logging"
	sc "github.com/daianaegermichels/financas/internal/server/config"
	"github.com/daianaegermichels/financas/internal/server/events"
	"github.com/daianaegermichels/financas/internal/server/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type s3Capture struct {
	bucket      string
	key         string
	body        string
	contentType string
	presignKey  string
	expires     time.Duration
	endpoint    string
	region      string
}

// stubS3 replaces the S3 seams for the duration of the test.
func stubS3(t *testing.T, putErr, presignErr error) *s3Capture {
	t.Helper()

	origLoad, origNewS3, origNewPre := loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient
	origPut, origPresign := putObject, presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		putObject = origPut
		presignGetObject = origPresign
	})

	c := &s3Capture{}

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		c.region = lo.Region
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		if opts.BaseEndpoint != nil {
			c.endpoint = *opts.BaseEndpoint
		}
		return &s3.Client{}
	}
	newS3PresignClient = func(cl *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }

	putObject = func(cl *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		if putErr != nil {
			return nil, putErr
		}
		b, err := io.ReadAll(in.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		c.bucket = *in.Bucket
		c.key = *in.Key
		c.body = string(b)
		c.contentType = aws.ToString(in.ContentType)
		return &s3.PutObjectOutput{}, nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		if presignErr != nil {
			return nil, presignErr
		}
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		c.presignKey = *in.Key
		c.expires = po.Expires
		return &v4.PresignedHTTPRequest{URL: "http://minio/" + *in.Key + "?sig=1"}, nil
	}

	return c
}

func newStatementService(t *testing.T, store *memStore) *StatementService {
	t.Helper()
	db, _ := newSQLMockDB(t)
	cfg := &sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "financas",
	}
	entries := newEntryService(t, db, store, events.NopPublisher{})
	s := NewStatementService(entries, cfg, logging.Nop{})
	s.now = func() time.Time { return time.Date(2022, 7, 3, 8, 0, 0, 0, time.UTC) }
	return s
}

func seedStatementEntries(t *testing.T, store *memStore, userID int64) {
	t.Helper()
	for _, e := range []*models.Entry{
		{Description: "Salario", Month: 6, Year: 2022, Amount: decimal.RequireFromString("5000"), Type: models.EntryTypeIncome, Status: models.EntryStatusSettled, UserID: userID},
		{Description: "Aluguel, junho", Month: 6, Year: 2022, Amount: decimal.RequireFromString("1500.5"), Type: models.EntryTypeExpense, Status: models.EntryStatusSettled, UserID: userID},
		{Description: "Bonus", Month: 12, Year: 2021, Amount: decimal.RequireFromString("300"), Type: models.EntryTypeIncome, Status: models.EntryStatusSettled, UserID: userID},
	} {
		_, err := memEntries{store}.Create(context.Background(), e)
		require.NoError(t, err)
	}
}

func TestExport_Success(t *testing.T) {
	capture := stubS3(t, nil, nil)

	store := newMemStore()
	owner := store.addUser("Maria", "maria@example.com", "hash")
	seedStatementEntries(t, store, owner.ID)

	s := newStatementService(t, store)

	st, err := s.Export(context.Background(), owner.ID, 2022)
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", capture.region)
	assert.Equal(t, "http://127.0.0.1:9000", capture.endpoint)
	assert.Equal(t, "financas", capture.bucket)
	assert.Equal(t, "text/csv", capture.contentType)
	assert.True(t, strings.HasPrefix(capture.key, "statements/1/2022/07/03/"), capture.key)
	assert.True(t, strings.HasSuffix(capture.key, ".csv"), capture.key)
	assert.Equal(t, capture.key, capture.presignKey)
	assert.Equal(t, 15*time.Minute, capture.expires)

	assert.Equal(t, capture.key, st.Key)
	assert.Equal(t, "http://minio/"+capture.key+"?sig=1", st.URL)

	records, err := csv.NewReader(strings.NewReader(capture.body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"id", "descricao", "mes", "ano", "valor", "tipo", "status", "data_cadastro"}, records[0])
	assert.Equal(t, "Salario", records[1][1])
	assert.Equal(t, "5000.00", records[1][4])
	assert.Equal(t, "Aluguel, junho", records[2][1])
	assert.Equal(t, "1500.50", records[2][4])
	assert.Equal(t, "EXPENSE", records[2][5])
	assert.Equal(t, []string{"saldo", "", "", "", "3799.50", "", "", ""}, records[3])
}

func TestExport_UnknownUser(t *testing.T) {
	capture := stubS3(t, nil, nil)
	s := newStatementService(t, newMemStore())

	_, err := s.Export(context.Background(), 9, 0)
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Empty(t, capture.key)
}

func TestExport_Errors(t *testing.T) {
	store := newMemStore()
	owner := store.addUser("Maria", "maria@example.com", "hash")

	t.Run("load config", func(t *testing.T) {
		stubS3(t, nil, nil)
		loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
			return aws.Config{}, errors.New("load-fail")
		}

		_, err := newStatementService(t, store).Export(context.Background(), owner.ID, 0)
		assert.EqualError(t, err, "load-fail")
	})

	t.Run("put", func(t *testing.T) {
		stubS3(t, errors.New("put-fail"), nil)

		_, err := newStatementService(t, store).Export(context.Background(), owner.ID, 0)
		assert.EqualError(t, err, "put-fail")
	})

	t.Run("presign", func(t *testing.T) {
		stubS3(t, nil, errors.New("presign-fail"))

		_, err := newStatementService(t, store).Export(context.Background(), owner.ID, 0)
		assert.EqualError(t, err, "presign-fail")
	})
}

func TestRenderCSV_Empty(t *testing.T) {
	b, err := renderCSV(nil, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "id,descricao,mes,ano,valor,tipo,status,data_cadastro\nsaldo,,,,0.00,,,\n", string(b))
}

func TestRenderCSV_EscapesFormulas(t *testing.T) {
	list := []*models.Entry{
		{ID: 1, Description: "=HYPERLINK(\"http://x\")", Month: 1, Year: 2024, Amount: decimal.NewFromInt(1), Type: models.EntryTypeIncome, Status: models.EntryStatusSettled},
		{ID: 2, Description: "+1", Month: 1, Year: 2024, Amount: decimal.NewFromInt(1), Type: models.EntryTypeIncome, Status: models.EntryStatusSettled},
		{ID: 3, Description: "-2", Month: 1, Year: 2024, Amount: decimal.NewFromInt(1), Type: models.EntryTypeExpense, Status: models.EntryStatusSettled},
		{ID: 4, Description: "@SUM(A1)", Month: 1, Year: 2024, Amount: decimal.NewFromInt(1), Type: models.EntryTypeExpense, Status: models.EntryStatusSettled},
		{ID: 5, Description: "Mercado", Month: 1, Year: 2024, Amount: decimal.NewFromInt(1), Type: models.EntryTypeExpense, Status: models.EntryStatusSettled},
	}

	b, err := renderCSV(list, decimal.Zero)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(b))).ReadAll()
	require.NoError(t, err)

	got := make([]string, 0, len(list))
	for _, r := range records[1 : len(records)-1] {
		got = append(got, r[1])
	}
	assert.Equal(t, []string{"'=HYPERLINK(\"http://x\")", "'+1", "'-2", "'@SUM(A1)", "Mercado"}, got)
}
