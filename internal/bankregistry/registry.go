// Package bankregistry is the local bank reference lookup used by
// verification. No external call is made; the registry ships with the
// binary and can be extended from a JSON file at startup.
package bankregistry

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
)

var ErrBankNotFound = errors.New("bank not found in registry")

// Bank is one registry row.
type Bank struct {
	Code string `json:"code"`
	BIC  string `json:"bic"`
	Name string `json:"name"`
}

// Registry resolves banks by routing code or BIC.
type Registry struct {
	mu     sync.RWMutex
	byCode map[string]Bank
	byBIC  map[string]Bank
}

// New builds a registry seeded with the builtin table.
func New() *Registry {
	r := &Registry{
		byCode: make(map[string]Bank),
		byBIC:  make(map[string]Bank),
	}
	for _, b := range builtinBanks {
		r.add(b)
	}
	return r
}

// LoadFile merges additional banks from a JSON file into the registry.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var banks []Bank
	if err := json.Unmarshal(data, &banks); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range banks {
		r.add(b)
	}
	return nil
}

func (r *Registry) add(b Bank) {
	if b.Code != "" {
		r.byCode[b.Code] = b
	}
	if b.BIC != "" {
		r.byBIC[strings.ToUpper(b.BIC)] = b
	}
}

// LookupByCode resolves a bank by its routing code.
func (r *Registry) LookupByCode(code string) (*Bank, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.byCode[code]; ok {
		return &b, nil
	}
	return nil, ErrBankNotFound
}

// LookupByBIC resolves a bank by BIC. An eight-character BIC matches its
// eleven-character head-office form and vice versa.
func (r *Registry) LookupByBIC(bic string) (*Bank, error) {
	bic = strings.ToUpper(bic)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.byBIC[bic]; ok {
		return &b, nil
	}
	if len(bic) == 11 {
		if b, ok := r.byBIC[bic[:8]]; ok {
			return &b, nil
		}
	}
	if len(bic) == 8 {
		if b, ok := r.byBIC[bic+"XXX"]; ok {
			return &b, nil
		}
	}
	return nil, ErrBankNotFound
}

var builtinBanks = []Bank{
	{Code: "10000000", BIC: "MARKDEF1100", Name: "Bundesbank Berlin"},
	{Code: "10010010", BIC: "PBNKDEFFXXX", Name: "Postbank Ndl der Deutsche Bank"},
	{Code: "10050000", BIC: "BELADEBEXXX", Name: "Landesbank Berlin"},
	{Code: "20030000", BIC: "HYVEDEMM300", Name: "UniCredit Bank Hamburg"},
	{Code: "25050180", BIC: "SPKHDE2HXXX", Name: "Sparkasse Hannover"},
	{Code: "30050000", BIC: "WELADEDDXXX", Name: "Landesbank Hessen-Thueringen Duesseldorf"},
	{Code: "37040044", BIC: "COBADEFFXXX", Name: "Commerzbank Koeln"},
	{Code: "50010517", BIC: "INGDDEFFXXX", Name: "ING-DiBa Frankfurt am Main"},
	{Code: "50070010", BIC: "DEUTDEFFXXX", Name: "Deutsche Bank Frankfurt am Main"},
	{Code: "60050101", BIC: "SOLADEST600", Name: "Landesbank Baden-Wuerttemberg"},
	{Code: "70020270", BIC: "HYVEDEMMXXX", Name: "UniCredit Bank Muenchen"},
	{Code: "76026000", BIC: "NORSDE71XXX", Name: "norisbank Nuernberg"},
}
