package models

import (
	"fmt"
	"strings"
)

type EntryType string

const (
	EntryTypeIncome  EntryType = "INCOME"
	EntryTypeExpense EntryType = "EXPENSE"
)

type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "PENDING"
	EntryStatusSettled   EntryStatus = "SETTLED"
	EntryStatusCancelled EntryStatus = "CANCELLED"
)

var entryTypes = map[string]EntryType{
	"INCOME":  EntryTypeIncome,
	"RECEITA": EntryTypeIncome,
	"EXPENSE": EntryTypeExpense,
	"DESPESA": EntryTypeExpense,
}

var entryStatuses = map[string]EntryStatus{
	"PENDING":   EntryStatusPending,
	"PENDENTE":  EntryStatusPending,
	"SETTLED":   EntryStatusSettled,
	"EFETIVADO": EntryStatusSettled,
	"CANCELLED": EntryStatusCancelled,
	"CANCELADO": EntryStatusCancelled,
}

// ParseEntryType accepts the canonical names and their Portuguese aliases,
// ignoring case and surrounding spaces.
func ParseEntryType(s string) (EntryType, error) {
	if t, ok := entryTypes[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown entry type %q", s)
}

// ParseEntryStatus accepts the canonical names and their Portuguese aliases,
// ignoring case and surrounding spaces.
func ParseEntryStatus(s string) (EntryStatus, error) {
	if st, ok := entryStatuses[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown entry status %q", s)
}

func (t EntryType) Valid() bool {
	return t == EntryTypeIncome || t == EntryTypeExpense
}

func (s EntryStatus) Valid() bool {
	return s == EntryStatusPending || s == EntryStatusSettled || s == EntryStatusCancelled
}
