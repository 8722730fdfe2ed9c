package types

import (
	"time"

	"github.com/example/chainbadge/internal/source"
)

// Result is the amount part of a query response.
type Result struct {
	Type          string `json:"type"` // always "decimal"
	Value         string `json:"value"`
	Decimals      uint8  `json:"decimals"`
	Formatted     string `json:"formatted"`
	FormattedTiny string `json:"formatted_tiny"`
}

// Metadata describes the source of a result.
type Metadata struct {
	Type      string `json:"type"` // "evm" or "bitcoin"
	Symbol    string `json:"symbol"`
	Label     string `json:"label"`
	Icon      string `json:"icon,omitempty"`
	ChainID   string `json:"chain_id,omitempty"`
	TokenKind string `json:"token_kind,omitempty"`
	Contract  string `json:"contract,omitempty"`
	Network   string `json:"network,omitempty"`
}

// QueryResponse is the JSON response for GET /api/query/*.
type QueryResponse struct {
	Result    Result   `json:"result"`
	Metadata  Metadata `json:"metadata"`
	Source    string   `json:"source"`     // "cache" or "rpc"
	FetchedAt string   `json:"fetched_at"` // RFC3339
}

// ErrorResponse is returned with every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func NowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }

// NewQueryResponse renders resp for the wire.
func NewQueryResponse(resp *source.Response, src string, ts time.Time) QueryResponse {
	f := resp.Formatted()
	value := "0"
	if resp.Amount.Value != nil {
		value = resp.Amount.Value.String()
	}
	return QueryResponse{
		Result: Result{
			Type:          "decimal",
			Value:         value,
			Decimals:      resp.Amount.Decimals,
			Formatted:     f.Full,
			FormattedTiny: f.Tiny,
		},
		Metadata:  NewMetadata(resp.Metadata),
		Source:    src,
		FetchedAt: ts.UTC().Format(time.RFC3339),
	}
}

func NewMetadata(m source.Metadata) Metadata {
	out := Metadata{Symbol: m.Symbol(), Label: m.Label(), Icon: m.Icon()}
	switch m := m.(type) {
	case source.EvmMetadata:
		out.Type = "evm"
		out.ChainID = m.Chain.Key()
		out.TokenKind = string(m.Source.Kind)
		if m.Source.Contract != nil {
			out.Contract = m.Source.Contract.Hex()
		}
	case source.BitcoinMetadata:
		out.Type = "bitcoin"
		out.Network = m.Network.String()
	}
	return out
}

// BatchRequest represents the incoming payload for batch lookups.
type BatchRequest struct {
	Queries []string `json:"queries"`
}

// BatchEntry is one successful lookup of a batch.
type BatchEntry struct {
	Query string `json:"query"`
	QueryResponse
}

// BatchError captures a per-query failure.
type BatchError struct {
	Query  string `json:"query"`
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// BatchResponse is the JSON response for the batch endpoint.
type BatchResponse struct {
	Results []BatchEntry `json:"results"`
	Errors  []BatchError `json:"errors"`
}
