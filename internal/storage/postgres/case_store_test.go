package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/dhc-order-crawler/internal/crawler"
)

func TestInsertWritesRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewCaseStoreWithPool(mock, "cases")
	require.NoError(t, err)
	now := time.Unix(1700000000, 0).UTC()
	store.now = func() time.Time { return now }

	url := "https://archive.test/a.pdf"
	record := crawler.CaseRecord{
		Parties:         "A vs B",
		Status:          "Pending",
		NextHearingDate: "12-05-2024",
		CaseInfo:        "CS(COMM)/1/2023",
		Orders: []crawler.OrderRecord{{
			SequenceNumber: "1",
			CaseNumber:     "CS(COMM) 1/2023",
			OrderDate:      "01/01/2024",
			DocumentURL:    &url,
			DocumentStatus: crawler.DocumentArchived,
		}},
	}

	mock.ExpectExec("INSERT INTO cases").
		WithArgs(
			pgxmock.AnyArg(),
			record.CaseInfo,
			record.Parties,
			record.Status,
			record.NextHearingDate,
			[]byte(`[{"snumber":"1","case_number":"CS(COMM) 1/2023","date_of_order":"01/01/2024","corrigenda_link":"","hindi_order":"","url":"https://archive.test/a.pdf","document_status":"archived"}]`),
			now,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Insert(context.Background(), record))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertEmptyOrders(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewCaseStoreWithPool(mock, "")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO cases").
		WithArgs(pgxmock.AnyArg(), "FAO(COMM)/2/2020", "", "", "", []byte(`[]`), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Insert(context.Background(), crawler.CaseRecord{CaseInfo: "FAO(COMM)/2/2020"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPropagatesError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewCaseStoreWithPool(mock, "cases")
	require.NoError(t, err)

	boom := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO cases").
		WithArgs(pgxmock.AnyArg(), "CS(COMM)/1/2023", "", "", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(boom)

	err = store.Insert(context.Background(), crawler.CaseRecord{CaseInfo: "CS(COMM)/1/2023"})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRequiresCaseInfo(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewCaseStoreWithPool(mock, "cases")
	require.NoError(t, err)
	assert.Error(t, store.Insert(context.Background(), crawler.CaseRecord{}))
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewCaseStoreWithPool(mock, "dhc_cases")
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS dhc_cases").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewCaseStoreWithPoolValidation(t *testing.T) {
	t.Parallel()

	_, err := NewCaseStoreWithPool(nil, "cases")
	assert.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	_, err = NewCaseStoreWithPool(mock, "cases; DROP TABLE cases")
	assert.Error(t, err)
}

func TestNewCaseStoreRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewCaseStore(context.Background(), Config{})
	assert.Error(t, err)
}
