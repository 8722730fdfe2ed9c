package chainlist

import (
	"encoding/json"
	"math/big"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Chain is one entry of the chain registry. Records are replaced wholesale on
// refresh and must not be mutated after parsing.
type Chain struct {
	Name           string
	Chain          string
	ShortName      string
	Icon           string
	InfoURL        string
	RPC            []string
	NativeCurrency Currency
	ChainID        *big.Int
	NetworkID      *big.Int
	Slip44         *int64
	ENS            string
	Explorers      []Explorer
}

// Currency describes a chain's native coin.
type Currency struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// Explorer is a block explorer listed for a chain.
type Explorer struct {
	Name     string
	URL      string
	Icon     string
	Standard string
}

// Key returns the directory key for the chain id.
func (c *Chain) Key() string { return Key(c.ChainID) }

// Explorer returns the preferred explorer: the first EIP3091 one, else the
// first listed.
func (c *Chain) Explorer() (Explorer, bool) {
	if len(c.Explorers) == 0 {
		return Explorer{}, false
	}
	for _, e := range c.Explorers {
		if strings.EqualFold(e.Standard, "EIP3091") && e.URL != "" {
			return e, true
		}
	}
	return c.Explorers[0], c.Explorers[0].URL != ""
}

// Key is the canonical map key for a chain id.
func Key(id *big.Int) string {
	if id == nil {
		return ""
	}
	return id.String()
}

type rawChain struct {
	Name           string      `json:"name"`
	Chain          string      `json:"chain"`
	Icon           string      `json:"icon"`
	RPC            []string    `json:"rpc"`
	InfoURL        string      `json:"infoURL"`
	ShortName      string      `json:"shortName"`
	ChainID        json.Number `json:"chainId"`
	NetworkID      json.Number `json:"networkId"`
	Slip44         *int64      `json:"slip44,omitempty"`
	NativeCurrency struct {
		Name     string `json:"name"`
		Symbol   string `json:"symbol"`
		Decimals uint8  `json:"decimals"`
	} `json:"nativeCurrency"`
	ENS *struct {
		Registry string `json:"registry"`
	} `json:"ens,omitempty"`
	Explorers []struct {
		Name     string `json:"name"`
		URL      string `json:"url"`
		Icon     string `json:"icon"`
		Standard string `json:"standard"`
	} `json:"explorers,omitempty"`
}

// Parse decodes a registry document (a JSON array of chain records). Records
// whose chain id is not a non-negative integer are skipped; the number skipped
// is returned alongside the parsed chains.
func Parse(b []byte) ([]Chain, int, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return nil, 0, errors.Wrap(err, "decode chain list")
	}

	out := make([]Chain, 0, len(raws))
	skipped := 0
	for _, r := range raws {
		var rc rawChain
		if err := json.Unmarshal(r, &rc); err != nil {
			skipped++
			continue
		}
		c, ok := rc.toChain()
		if !ok {
			skipped++
			continue
		}
		out = append(out, c)
	}
	return out, skipped, nil
}

func (rc rawChain) toChain() (Chain, bool) {
	id, ok := parseUint(rc.ChainID)
	if !ok {
		return Chain{}, false
	}
	netID, _ := parseUint(rc.NetworkID)

	c := Chain{
		Name:      rc.Name,
		Chain:     rc.Chain,
		ShortName: rc.ShortName,
		Icon:      rc.Icon,
		InfoURL:   rc.InfoURL,
		RPC:       append([]string(nil), rc.RPC...),
		NativeCurrency: Currency{
			Name:     rc.NativeCurrency.Name,
			Symbol:   rc.NativeCurrency.Symbol,
			Decimals: rc.NativeCurrency.Decimals,
		},
		ChainID:   id,
		NetworkID: netID,
		Slip44:    rc.Slip44,
	}
	if rc.ENS != nil {
		c.ENS = rc.ENS.Registry
	}
	for _, e := range rc.Explorers {
		c.Explorers = append(c.Explorers, Explorer{Name: e.Name, URL: strings.TrimRight(e.URL, "/"), Icon: e.Icon, Standard: e.Standard})
	}
	return c, true
}

func parseUint(n json.Number) (*big.Int, bool) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return nil, false
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

func sortByID(chains []*Chain) {
	sort.Slice(chains, func(i, j int) bool { return chains[i].ChainID.Cmp(chains[j].ChainID) < 0 })
}
