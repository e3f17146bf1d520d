package mongo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/JakeFAU/dhc-order-crawler/internal/crawler"
)

func captureStore(docs *[]any, err error) *CaseStore {
	return &CaseStore{insert: func(_ context.Context, document any) error {
		if err != nil {
			return err
		}
		*docs = append(*docs, document)
		return nil
	}}
}

func TestInsertDocumentShape(t *testing.T) {
	var docs []any
	store := captureStore(&docs, nil)

	url := "https://archive.test/a.pdf"
	record := crawler.CaseRecord{
		Parties:         "A vs B",
		Status:          "Pending",
		NextHearingDate: "12-05-2024",
		CaseInfo:        "CS(COMM)/1/2023",
		Orders: []crawler.OrderRecord{
			{SequenceNumber: "1", CaseNumber: "CS(COMM) 1/2023", DocumentURL: &url, DocumentStatus: crawler.DocumentArchived},
			{SequenceNumber: "2", DocumentStatus: crawler.DocumentFailed, DocumentErr: errors.New("timeout")},
		},
	}
	require.NoError(t, store.Insert(context.Background(), record))
	require.Len(t, docs, 1)

	raw, err := bson.Marshal(docs[0])
	require.NoError(t, err)
	doc := bson.Raw(raw)

	assert.Equal(t, "A vs B", doc.Lookup("parties").StringValue())
	assert.Equal(t, "Pending", doc.Lookup("status").StringValue())
	assert.Equal(t, "12-05-2024", doc.Lookup("next_date").StringValue())
	assert.Equal(t, "CS(COMM)/1/2023", doc.Lookup("case_info").StringValue())

	assert.Equal(t, "1", doc.Lookup("orders", "0", "snumber").StringValue())
	assert.Equal(t, url, doc.Lookup("orders", "0", "url").StringValue())
	assert.Equal(t, "archived", doc.Lookup("orders", "0", "document_status").StringValue())

	_, err = doc.LookupErr("orders", "1", "url")
	assert.Error(t, err, "url is omitted when no document was archived")
	_, err = doc.LookupErr("orders", "1", "DocumentErr")
	assert.Error(t, err)
	assert.Equal(t, "failed", doc.Lookup("orders", "1", "document_status").StringValue())
	_, err = doc.LookupErr("orders", "2")
	assert.Error(t, err)
}

func TestInsertNilOrdersStoredAsEmptyArray(t *testing.T) {
	var docs []any
	store := captureStore(&docs, nil)
	require.NoError(t, store.Insert(context.Background(), crawler.CaseRecord{CaseInfo: "CS(COMM)/2/2023"}))

	raw, err := bson.Marshal(docs[0])
	require.NoError(t, err)
	orders, ok := bson.Raw(raw).Lookup("orders").ArrayOK()
	require.True(t, ok)
	values, err := orders.Values()
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestInsertWrapsError(t *testing.T) {
	boom := errors.New("server selection timeout")
	store := captureStore(new([]any), boom)

	err := store.Insert(context.Background(), crawler.CaseRecord{CaseInfo: "CS(COMM)/1/2023"})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "CS(COMM)/1/2023")
}

func TestUnconfiguredStore(t *testing.T) {
	var store *CaseStore
	assert.Error(t, store.Insert(context.Background(), crawler.CaseRecord{}))
	assert.NoError(t, store.Close())
	assert.NoError(t, (&CaseStore{}).Close())
}

func TestNewCaseStoreValidation(t *testing.T) {
	_, err := NewCaseStore(context.Background(), Config{})
	assert.Error(t, err)
	_, err = NewCaseStore(context.Background(), Config{URI: "mongodb://localhost:27017"})
	assert.Error(t, err)
}
