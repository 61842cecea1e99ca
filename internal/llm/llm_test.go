package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCompleter struct {
	CompleteFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

func (m *mockCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return m.CompleteFunc(ctx, systemPrompt, userPrompt)
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"fenced array", "```json\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"fenced object", "```\n{\"transactions\": []}\n```", `{"transactions": []}`},
		{"prose around array", "Here you go: [1, 2] hope it helps", `[1, 2]`},
		{"object containing array", `Sure! {"names": [{"original": "x"}]} done`, `{"names": [{"original": "x"}]}`},
		{"already clean", ` [] `, `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSON(tt.raw))
		})
	}
}

func TestExtractionResult_DecodesBothShapes(t *testing.T) {
	var wrapped, bare ExtractionResult
	require.NoError(t, decodeReply(`{"transactions":[{"date":"2024-01-05","description":"Coffee","amount":-3.5,"category":"dining"}]}`, &wrapped))
	require.NoError(t, decodeReply("```json\n[{\"date\":\"2024-01-05\",\"description\":\"Coffee\",\"amount\":\"-3.50\",\"category\":\"dining\"}]\n```", &bare))

	a, b := wrapped.Normalize(), bare.Normalize()
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.True(t, a[0].Amount.Equal(b[0].Amount))
	assert.Equal(t, domain.CategoryDining, a[0].Category)
}

func TestExtractionResult_Normalize(t *testing.T) {
	var res ExtractionResult
	require.NoError(t, decodeReply(`[
		{"date":"01/15/2024","description":"  ACME   PAYROLL ","amount":"$2,000.00","category":"groceries"},
		{"date":"not a date","description":"x","amount":1},
		{"date":"2024-01-16","description":"","amount":1},
		{"date":"2024-01-17","description":"Zero","amount":0},
		{"date":"2024-01-18","description":"Shop","amount":"-12","category":"made_up"}
	]`, &res))

	txs := res.Normalize()
	require.Len(t, txs, 2)
	assert.Equal(t, "ACME PAYROLL", txs[0].Description)
	assert.Equal(t, domain.CategoryIncomeSalary, txs[0].Category, "sign-mismatched category is reclassified")
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, domain.CategoryOther, txs[1].Category)
}

func TestExtractChunks_IsolatesFailures(t *testing.T) {
	m := &mockCompleter{CompleteFunc: func(_ context.Context, _, chunk string) (string, error) {
		switch {
		case strings.Contains(chunk, "fail"):
			return "", errors.New("quota exceeded")
		case strings.Contains(chunk, "garbage"):
			return "I could not find any transactions, sorry.", nil
		}
		return `{"transactions":[{"date":"2024-02-01","description":"` + chunk + `","amount":-1}]}`, nil
	}}

	txs, err := NewExtractor(m, 2).ExtractChunks(context.Background(), []string{"first", "fail", "garbage", "last"})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "first", txs[0].Description)
	assert.Equal(t, "last", txs[1].Description)
}

func TestExtractChunks_AllFailed(t *testing.T) {
	m := &mockCompleter{CompleteFunc: func(context.Context, string, string) (string, error) {
		return "", errors.New("unavailable")
	}}
	_, err := NewExtractor(m, 0).ExtractChunks(context.Background(), []string{"a", "b"})
	assert.Error(t, err)

	txs, err := NewExtractor(m, 0).ExtractChunks(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, txs)
}

func TestDeterministicName(t *testing.T) {
	assert.Equal(t, "STARBUCKS", DeterministicName("CARD 4821 STARBUCKS #1234 12/01"))
	assert.Equal(t, "TESCO STORES 3012", DeterministicName("POS 1234 TESCO STORES 3012 REF 998877"))
	assert.Equal(t, "Netflix", DeterministicName("  Netflix  "))
	assert.Equal(t, "12345678", DeterministicName("12345678"), "never empty")
}

func TestCleanNames_Fallback(t *testing.T) {
	res := NewCleaner(nil, 0).CleanNames(context.Background(), []string{"POS UBER TRIP", "POS UBER TRIP", ""})
	assert.Equal(t, domain.SourceFallback, res.Source)
	assert.Equal(t, map[string]string{"POS UBER TRIP": "UBER TRIP"}, res.Names)
}

func TestCleanNames_ModelWithFailedBatch(t *testing.T) {
	m := &mockCompleter{CompleteFunc: func(_ context.Context, _, user string) (string, error) {
		if strings.Contains(user, "BROKEN") {
			return "", errors.New("timeout")
		}
		return `{"names":[{"original":"AMZN MKTP US*2K4","clean":"Amazon"}]}`, nil
	}}
	c := NewCleaner(m, 2)
	c.BatchSize = 1

	res := c.CleanNames(context.Background(), []string{"AMZN MKTP US*2K4", "BROKEN CARD 1234 SHOP"})
	assert.Equal(t, domain.SourceModel, res.Source)
	assert.Equal(t, 1, res.Failures)
	assert.Equal(t, "Amazon", res.Names["AMZN MKTP US*2K4"])
	assert.Equal(t, "BROKEN SHOP", res.Names["BROKEN CARD 1234 SHOP"])

	applied := res.Apply([]domain.Transaction{{Description: "AMZN MKTP US*2K4"}})
	assert.Equal(t, "Amazon", applied[0].Description)
}
