package crawler

import (
	"fmt"
	"strconv"
)

// DocumentStatus records what happened to the document attached to an order row.
type DocumentStatus string

// Document status values persisted alongside each order.
const (
	DocumentNone     DocumentStatus = "none"
	DocumentArchived DocumentStatus = "archived"
	DocumentFailed   DocumentStatus = "failed"
)

// CaseQuery identifies one probe against the portal. It is built fresh for
// every case number and never persisted.
type CaseQuery struct {
	CaseType   string
	CaseNumber int
	FilingYear int
	Token      string
}

// CaseInfo returns the "{type}/{number}/{year}" identifier stored with the record.
func (q CaseQuery) CaseInfo() string {
	return fmt.Sprintf("%s/%d/%d", q.CaseType, q.CaseNumber, q.FilingYear)
}

// FormNumber returns the case number as the portal form expects it.
func (q CaseQuery) FormNumber() string {
	return strconv.Itoa(q.CaseNumber)
}

// FormYear returns the filing year as the portal form expects it.
func (q CaseQuery) FormYear() string {
	return strconv.Itoa(q.FilingYear)
}

// OrderRecord is one row of a case's order history.
type OrderRecord struct {
	SequenceNumber string `json:"snumber" bson:"snumber"`
	CaseNumber     string `json:"case_number" bson:"case_number"`
	OrderDate      string `json:"date_of_order" bson:"date_of_order"`
	Corrigenda     string `json:"corrigenda_link" bson:"corrigenda_link"`
	HindiOrder     string `json:"hindi_order" bson:"hindi_order"`
	// DocumentURL is set only when the linked document was fetched and archived.
	DocumentURL    *string        `json:"url,omitempty" bson:"url,omitempty"`
	DocumentStatus DocumentStatus `json:"document_status" bson:"document_status"`
	// DocumentErr holds the failure when DocumentStatus is DocumentFailed.
	DocumentErr error `json:"-" bson:"-"`
}

// CaseRecord is the structured result of resolving one CaseQuery.
type CaseRecord struct {
	Parties         string        `json:"parties" bson:"parties"`
	Status          string        `json:"status" bson:"status"`
	NextHearingDate string        `json:"next_date" bson:"next_date"`
	Orders          []OrderRecord `json:"orders" bson:"orders"`
	CaseInfo        string        `json:"case_info" bson:"case_info"`
}

// DocumentCounts tallies the document outcome of each order in the record.
func (r CaseRecord) DocumentCounts() (archived, failed int) {
	for _, o := range r.Orders {
		switch o.DocumentStatus {
		case DocumentArchived:
			archived++
		case DocumentFailed:
			failed++
		}
	}
	return archived, failed
}

// Cursor is the enumeration position owned by the Driver.
type Cursor struct {
	FilingYear int    `json:"filing_year"`
	CaseType   string `json:"case_type"`
	CaseNumber int    `json:"case_number"`
	MissStreak int    `json:"miss_streak"`
}

// Summary counts what a crawl run did so far.
type Summary struct {
	Probes            int `json:"probes"`
	Hits              int `json:"hits"`
	Misses            int `json:"misses"`
	Persisted         int `json:"persisted"`
	PersistFailures   int `json:"persist_failures"`
	DocumentsArchived int `json:"documents_archived"`
	DocumentsFailed   int `json:"documents_failed"`
	TypesExhausted    int `json:"types_exhausted"`
}
